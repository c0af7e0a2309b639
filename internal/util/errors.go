package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrInvalidOTP           = errors.New("invalid or expired OTP")
	ErrFieldNotFound        = errors.New("field not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrNoQuestions          = errors.New("field has no questions")
	ErrAttemptNotFound      = errors.New("no attempt in progress")
	ErrAttemptSubmitted     = errors.New("quiz already submitted")
	ErrAttemptExpired       = errors.New("quiz time is over")
	ErrNothingAnswered      = errors.New("answer at least one question before submitting")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotVerified   = errors.New("payment not verified")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNoReport             = errors.New("no completed attempt to report")
)
