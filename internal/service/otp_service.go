package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"mytestbuddies_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

const (
	otpTTL      = 5 * time.Minute
	verifiedTTL = 30 * time.Minute // window to finish registration after verify
)

// OTPService issues single-use email verification codes backed by Redis.
type OTPService struct {
	Redis  *redis.Client
	Mailer Mailer
}

func NewOTPService(rdb *redis.Client, mailer Mailer) *OTPService {
	return &OTPService{Redis: rdb, Mailer: mailer}
}

func (s *OTPService) Send(ctx context.Context, email string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}

	if err := s.Redis.Set(ctx, otpKey(email), code, otpTTL).Err(); err != nil {
		return err
	}

	body := fmt.Sprintf("Your MyTestBuddies verification code is %s. It expires in 5 minutes.", code)
	return s.Mailer.Send(email, "MyTestBuddies email verification", body)
}

// Verify consumes the code: a correct code works exactly once.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	stored, err := s.Redis.Get(ctx, otpKey(email)).Result()
	if err != nil || stored != code {
		return util.ErrInvalidOTP
	}

	s.Redis.Del(ctx, otpKey(email))
	return s.Redis.Set(ctx, verifiedKey(email), "1", verifiedTTL).Err()
}

func (s *OTPService) IsVerified(ctx context.Context, email string) bool {
	val, err := s.Redis.Get(ctx, verifiedKey(email)).Result()
	return err == nil && val == "1"
}

// ConsumeVerified clears the marker once registration goes through.
func (s *OTPService) ConsumeVerified(ctx context.Context, email string) {
	s.Redis.Del(ctx, verifiedKey(email))
}

func otpKey(email string) string {
	return "otp:" + email
}

func verifiedKey(email string) string {
	return "otp_verified:" + email
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
