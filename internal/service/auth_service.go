package service

import (
	"context"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/repository"
	"mytestbuddies_backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	OTP      *OTPService
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, otp *OTPService, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		OTP:      otp,
		Cfg:      cfg,
	}
}

// Register creates the account. The email must have passed OTP verification
// first; payment verification happens later and only gates quiz entry.
func (s *AuthService) Register(ctx context.Context, user *model.User) error {
	if !s.OTP.IsVerified(ctx, user.Email) {
		return util.ErrEmailNotVerified
	}

	_, err := s.UserRepo.FindByEmail(user.Email)
	if err == nil {
		return util.ErrEmailRegistered
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)
	user.EmailVerified = true

	if err := s.UserRepo.Create(user); err != nil {
		return err
	}

	s.OTP.ConsumeVerified(ctx, user.Email)
	return nil
}

func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if err != nil {
		return "", util.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", util.ErrUserNotFound
	}

	_ = s.UserRepo.UpdateLastLogin(user.ID)

	return util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, _ := s.UserRepo.FindByID(claims.UserID)
	return user
}
