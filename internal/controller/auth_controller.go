package controller

import (
	"errors"

	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/service"
	"mytestbuddies_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	OTPService  *service.OTPService
}

func NewAuthController(authService *service.AuthService, otpService *service.OTPService) *AuthController {
	return &AuthController{AuthService: authService, OTPService: otpService}
}

// RegisterRequest defines the registration payload
// swagger:model RegisterRequest
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile" binding:"omitempty,len=10,numeric"`
	Password string `json:"password" binding:"required,min=8"`
	UserType string `json:"userType" binding:"omitempty,oneof=student"`
}

// Register godoc
// @Summary Register a new student account
// @Description Creates an account for an email that already passed OTP verification
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "registration details"
// @Success 201 {object} object "created"
// @Failure 400 {object} object "bad request"
// @Failure 409 {object} object "email already registered"
// @Router /api/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
		Role:     model.Student,
	}

	if err := c.AuthService.Register(ctx.Request.Context(), user); err != nil {
		switch {
		case errors.Is(err, util.ErrEmailRegistered):
			util.Conflict(ctx, "email already registered")
		case errors.Is(err, util.ErrEmailNotVerified):
			util.Error(ctx, 403, "verify your email first")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{"id": user.ID, "email": user.Email})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Log in
// @Description Exchanges credentials for a JWT
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "credentials"
// @Success 200 {object} object "token"
// @Failure 401 {object} object "invalid credentials"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, err := c.AuthService.Login(req.Email, req.Password)
	if err != nil {
		util.Error(ctx, 401, "invalid email or password")
		return
	}

	util.Success(ctx, gin.H{"token": token})
}

type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SendOTP godoc
// @Summary Send a verification code
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body SendOTPRequest true "target email"
// @Success 200 {object} object "sent"
// @Router /api/auth/send-otp [post]
func (c *AuthController) SendOTP(ctx *gin.Context) {
	var req SendOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.OTPService.Send(ctx.Request.Context(), req.Email); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"success": true})
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"otp" binding:"required"`
}

// VerifyOTP godoc
// @Summary Verify an emailed code
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body VerifyOTPRequest true "email and code"
// @Success 200 {object} object "verified"
// @Failure 400 {object} object "wrong or expired code"
// @Router /api/auth/verify-otp [post]
func (c *AuthController) VerifyOTP(ctx *gin.Context) {
	var req VerifyOTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.OTPService.Verify(ctx.Request.Context(), req.Email, req.Code); err != nil {
		util.BadRequest(ctx, "invalid or expired otp")
		return
	}
	util.Success(ctx, gin.H{"success": true})
}

// Me godoc
// @Summary Current user profile
// @Tags auth
// @Produce  json
// @Success 200 {object} object "profile"
// @Failure 401 {object} object "unauthorized"
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, gin.H{"user": user})
}
