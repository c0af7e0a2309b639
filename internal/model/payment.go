package model

type PaymentStatus string

const (
	PaymentCreated PaymentStatus = "created"              // order placed, no UTR yet
	PaymentPending PaymentStatus = "pending_verification" // UTR submitted, awaiting admin
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is a UPI order for quiz entry. The order ID doubles as the
// payment's `_id` the client tracks.
type Payment struct {
	UUIDBase
	UserID        uint          `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	QuizID        string        `gorm:"type:varchar(36)" json:"quizId,omitempty"`
	Amount        int           `gorm:"not null" json:"amount"`
	UTR           string        `gorm:"size:50;index" json:"utr,omitempty"`
	ScreenshotURL string        `gorm:"size:255" json:"screenshotUrl,omitempty"`
	Status        PaymentStatus `gorm:"size:30;default:'created'" json:"status"`
}

func (Payment) TableName() string {
	return "payments"
}
