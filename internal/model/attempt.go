package model

import (
	"encoding/json"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// QuizAttempt is one timed run through a field's questions. The deadline is
// fixed at start; grading flips the status exactly once.
type QuizAttempt struct {
	UUIDBase
	FieldID  string `gorm:"index;type:varchar(36);not null;uniqueIndex:idx_attempt_live,priority:2" json:"fieldId"`
	UserID   uint   `gorm:"index;type:bigint unsigned;not null;uniqueIndex:idx_attempt_live,priority:1" json:"userId"`
	UserName string `gorm:"size:100" json:"userName"`
	// LiveKey is "1" while the attempt is in progress and NULL afterwards.
	// NULLs never collide in the unique index, so a user can hold many
	// completed attempts per field but only one live one.
	LiveKey       *string       `gorm:"size:1;uniqueIndex:idx_attempt_live,priority:3" json:"-"`
	Status        AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	TimedOut      bool          `gorm:"default:false" json:"timedOut"`
	StartedAt     time.Time     `json:"startedAt"`
	Deadline      time.Time     `gorm:"index" json:"deadline"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	TotalAnswered int           `gorm:"default:0" json:"totalAnswered"`
	TotalCorrect  int           `gorm:"default:0" json:"totalCorrect"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// RemainingSeconds is wall-clock time left, floored at zero.
func (a *QuizAttempt) RemainingSeconds(now time.Time) int {
	if a.Status != AttemptInProgress {
		return 0
	}
	left := int(a.Deadline.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// AttemptAnswer is a per-question grading outcome. The question is snapshotted
// as it existed at grading time so later edits don't rewrite history.
type AttemptAnswer struct {
	UUIDBase
	AttemptID       string          `gorm:"index;type:varchar(36);not null" json:"attemptId"`
	QuestionID      string          `gorm:"index;type:varchar(36);not null" json:"questionId"`
	QuestionText    string          `gorm:"type:text" json:"questionText"`
	QuestionType    QuestionType    `gorm:"size:20" json:"questionType"`
	QuestionOptions json.RawMessage `gorm:"type:json" json:"questionOptions,omitempty"`
	SubmittedAnswer string          `gorm:"type:text" json:"submittedAnswer"`
	CorrectAnswer   string          `gorm:"type:text" json:"correctAnswer"`
	IsCorrect       bool            `gorm:"default:false" json:"isCorrect"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
