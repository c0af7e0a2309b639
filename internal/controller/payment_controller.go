package controller

import (
	"errors"
	"io"

	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/service"
	"mytestbuddies_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	PaymentService *service.PaymentService
	AuthService    *service.AuthService
}

func NewPaymentController(paymentService *service.PaymentService, authService *service.AuthService) *PaymentController {
	return &PaymentController{PaymentService: paymentService, AuthService: authService}
}

type CreateOrderRequest struct {
	QuizID string `json:"quizId"`
}

// CreateOrder godoc
// @Summary Open a quiz entry payment
// @Tags payments
// @Accept  json
// @Produce  json
// @Success 201 {object} object "{order_id, amount}"
// @Router /api/payments/order [post]
func (c *PaymentController) CreateOrder(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CreateOrderRequest
	_ = ctx.ShouldBindJSON(&req)

	payment, err := c.PaymentService.CreateOrder(user, req.QuizID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{
		"order_id": payment.ID,
		"amount":   payment.Amount,
		"status":   payment.Status,
	})
}

// QRCode godoc
// @Summary UPI QR code for a payment
// @Tags payments
// @Produce  json
// @Param   id path string true "payment id"
// @Success 200 {object} service.QRCodeResult
// @Router /api/payments/{id}/qr [get]
func (c *PaymentController) QRCode(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.PaymentService.QRCode(user, ctx.Param("id"))
	if err != nil {
		c.writePaymentErr(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"payment_id":  result.PaymentID,
		"amount":      result.Amount,
		"upi_uri":     result.UPIURI,
		"qr_data_url": result.QRImage,
	})
}

// SubmitUTR godoc
// @Summary Attach a UTR and proof screenshot to a payment
// @Description Multipart form: utr plus an optional proof screenshot
// @Tags payments
// @Accept  mpfd
// @Produce  json
// @Param   id path string true "payment id"
// @Success 200 {object} model.Payment
// @Router /api/payments/{id}/utr [post]
func (c *PaymentController) SubmitUTR(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	utr := ctx.PostForm("utr")
	if utr == "" {
		util.BadRequest(ctx, "utr is required")
		return
	}

	var (
		file io.Reader
		size int64
		name string
		mime string
	)
	if fileHeader, err := ctx.FormFile("screenshot"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		defer f.Close()
		file = f
		size = fileHeader.Size
		name = fileHeader.Filename
		mime = fileHeader.Header.Get("Content-Type")
	}

	payment, err := c.PaymentService.SubmitUTR(ctx.Request.Context(), user, ctx.Param("id"),
		utr, file, size, name, mime)
	if err != nil {
		c.writePaymentErr(ctx, err)
		return
	}
	util.Success(ctx, payment)
}

// Status godoc
// @Summary Look up a payment by its bank reference
// @Tags payments
// @Produce  json
// @Param   utr path string true "bank reference"
// @Success 200 {object} object "{status, verified}"
// @Router /api/payment/status/{utr} [get]
func (c *PaymentController) Status(ctx *gin.Context) {
	payment, err := c.PaymentService.StatusByUTR(ctx.Param("utr"))
	if err != nil {
		c.writePaymentErr(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"order_id": payment.ID,
		"status":   payment.Status,
		"verified": payment.Status == "success",
	})
}

type UpdateStatusRequest struct {
	Status string `json:"paymentstatus" binding:"required"`
}

// UpdateStatus godoc
// @Summary Set a payment's status by bank reference
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   utr path string true "bank reference"
// @Param   body body UpdateStatusRequest true "new status"
// @Success 200 {object} model.Payment
// @Router /api/payment/status/{utr} [put]
func (c *PaymentController) UpdateStatus(ctx *gin.Context) {
	var req UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	payment, err := c.PaymentService.UpdateStatusByUTR(ctx.Param("utr"), model.PaymentStatus(req.Status))
	if err != nil {
		c.writePaymentErr(ctx, err)
		return
	}
	util.Success(ctx, payment)
}

// All godoc
// @Summary Every payment on record
// @Tags admin
// @Produce  json
// @Success 200 {array} model.Payment
// @Router /api/payment/all-payments [get]
func (c *PaymentController) All(ctx *gin.Context) {
	payments, err := c.PaymentService.List()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"payments": payments})
}

// Pending godoc
// @Summary Payments awaiting verification
// @Tags admin
// @Produce  json
// @Success 200 {array} model.Payment
// @Router /api/admin/payments/pending [get]
func (c *PaymentController) Pending(ctx *gin.Context) {
	payments, err := c.PaymentService.ListPending()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, payments)
}

type VerifyRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
}

// Verify godoc
// @Summary Approve or reject a pending payment
// @Description Approval unlocks quiz access for the payer
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   id path string true "payment id"
// @Param   body body VerifyRequest true "decision"
// @Success 200 {object} model.Payment
// @Router /api/admin/payments/{id}/verify [post]
func (c *PaymentController) Verify(ctx *gin.Context) {
	var req VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	payment, err := c.PaymentService.Verify(ctx.Param("id"), req.Action == "approve")
	if err != nil {
		c.writePaymentErr(ctx, err)
		return
	}
	util.Success(ctx, payment)
}

func (c *PaymentController) writePaymentErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrPaymentNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.BadRequest(ctx, err.Error())
	}
}
