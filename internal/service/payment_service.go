package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/repository"
	"mytestbuddies_backend/internal/util"
	"mytestbuddies_backend/pkg/logger"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentService struct {
	Payments *repository.PaymentRepository
	Users    *repository.UserRepository
	Storage  *StorageService
	Cfg      *config.Config
}

func NewPaymentService(payments *repository.PaymentRepository, users *repository.UserRepository, storage *StorageService, cfg *config.Config) *PaymentService {
	return &PaymentService{Payments: payments, Users: users, Storage: storage, Cfg: cfg}
}

// CreateOrder opens a payment with the fixed quiz entry amount. The UTR and
// screenshot come later, once the student has paid through their UPI app.
func (s *PaymentService) CreateOrder(user *model.User, quizID string) (*model.Payment, error) {
	payment := &model.Payment{
		UserID: user.ID,
		QuizID: quizID,
		Amount: s.Cfg.PaymentSettings().Amount,
		Status: model.PaymentCreated,
	}
	if err := s.Payments.Create(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// UPIURI builds the upi://pay deep link for the given payment.
func (s *PaymentService) UPIURI(payment *model.Payment) string {
	pay := s.Cfg.PaymentSettings()
	v := url.Values{}
	v.Set("pa", pay.UPIID)
	v.Set("pn", pay.PayeeName)
	v.Set("am", fmt.Sprintf("%d.00", payment.Amount))
	v.Set("cu", "INR")
	v.Set("tn", "Quiz entry "+payment.ID)
	return "upi://pay?" + v.Encode()
}

type QRCodeResult struct {
	PaymentID string `json:"paymentId"`
	Amount    int    `json:"amount"`
	UPIURI    string `json:"upiUri"`
	QRImage   string `json:"qrImage"`
}

// QRCode renders the UPI deep link as a PNG data URL the client can drop
// straight into an <img> tag.
func (s *PaymentService) QRCode(user *model.User, paymentID string) (*QRCodeResult, error) {
	payment, err := s.findOwned(user, paymentID)
	if err != nil {
		return nil, err
	}

	uri := s.UPIURI(payment)
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	return &QRCodeResult{
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		UPIURI:    uri,
		QRImage:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// SubmitUTR records the bank reference and proof screenshot and moves the
// payment into the admin verification queue.
func (s *PaymentService) SubmitUTR(ctx context.Context, user *model.User, paymentID, utr string, screenshot io.Reader, size int64, originalName, contentType string) (*model.Payment, error) {
	payment, err := s.findOwned(user, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == model.PaymentSuccess {
		return nil, errors.New("payment already verified")
	}

	utr = strings.TrimSpace(utr)
	if len(utr) < 6 {
		return nil, errors.New("utr looks too short")
	}
	if existing, err := s.Payments.FindByUTR(utr); err == nil && existing.ID != payment.ID {
		return nil, errors.New("utr already submitted for another payment")
	}

	if screenshot != nil {
		ext := filepath.Ext(originalName)
		if ext == "" {
			ext = ".png"
		}
		name := fmt.Sprintf("payments/%d_%s%s", user.ID, uuid.New().String(), ext)
		loc, err := s.Storage.Upload(ctx, name, screenshot, size, contentType)
		if err != nil {
			return nil, fmt.Errorf("upload screenshot: %w", err)
		}
		payment.ScreenshotURL = loc
	}

	payment.UTR = utr
	payment.Status = model.PaymentPending
	if err := s.Payments.Update(payment); err != nil {
		return nil, err
	}

	logger.Log.Info("payment proof submitted",
		zap.String("payment_id", payment.ID),
		zap.Uint("user_id", user.ID),
		zap.String("utr", utr))
	return payment, nil
}

// StatusByUTR is the student-facing poll endpoint after submitting proof.
func (s *PaymentService) StatusByUTR(utr string) (*model.Payment, error) {
	payment, err := s.Payments.FindByUTR(strings.TrimSpace(utr))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// UpdateStatusByUTR is the admin bulk-tooling path: set a payment's status
// directly by its bank reference. Marking success unlocks quiz access.
func (s *PaymentService) UpdateStatusByUTR(utr string, status model.PaymentStatus) (*model.Payment, error) {
	switch status {
	case model.PaymentPending, model.PaymentSuccess, model.PaymentFailed:
	default:
		return nil, errors.New("unknown payment status")
	}

	payment, err := s.StatusByUTR(utr)
	if err != nil {
		return nil, err
	}

	payment.Status = status
	if err := s.Payments.Update(payment); err != nil {
		return nil, err
	}
	if status == model.PaymentSuccess {
		if err := s.Users.SetCanTakeQuiz(payment.UserID, true); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (s *PaymentService) List() ([]model.Payment, error) {
	return s.Payments.List()
}

func (s *PaymentService) ListPending() ([]model.Payment, error) {
	return s.Payments.ListByStatus(model.PaymentPending)
}

// Verify settles a pending payment. Approval unlocks quiz access for the payer.
func (s *PaymentService) Verify(paymentID string, approve bool) (*model.Payment, error) {
	payment, err := s.Payments.FindByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.Status != model.PaymentPending {
		return nil, errors.New("payment is not awaiting verification")
	}

	if approve {
		payment.Status = model.PaymentSuccess
	} else {
		payment.Status = model.PaymentFailed
	}
	if err := s.Payments.Update(payment); err != nil {
		return nil, err
	}

	if approve {
		if err := s.Users.SetCanTakeQuiz(payment.UserID, true); err != nil {
			logger.Log.Error("unlock quiz access",
				zap.Uint("user_id", payment.UserID), zap.Error(err))
			return nil, err
		}
	}

	logger.Log.Info("payment verified",
		zap.String("payment_id", payment.ID),
		zap.Bool("approved", approve))
	return payment, nil
}

func (s *PaymentService) findOwned(user *model.User, paymentID string) (*model.Payment, error) {
	payment, err := s.Payments.FindByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.UserID != user.ID && user.Role != model.Admin {
		return nil, util.ErrPermissionDenied
	}
	return payment, nil
}

// HasAccess reports whether the user may enter a quiz. Admins always can.
func (s *PaymentService) HasAccess(user *model.User) (bool, error) {
	if user.Role == model.Admin || user.CanTakeQuiz {
		return true, nil
	}
	ok, err := s.Payments.HasVerifiedPayment(user.ID)
	if err != nil {
		return false, err
	}
	if ok {
		// Older rows may predate the flag backfill.
		_ = s.Users.SetCanTakeQuiz(user.ID, true)
	}
	return ok, nil
}
