package model

import "encoding/json"

type QuestionType string

const (
	MCQ         QuestionType = "mcq"
	Descriptive QuestionType = "descriptive"
)

// Option is one MCQ choice. Answers are matched on the option text,
// mirroring what the client submits.
type Option struct {
	Text string `json:"text"`
}

type Question struct {
	UUIDBase
	FieldID       string          `gorm:"index;type:varchar(36);not null" json:"fieldId"`
	Type          QuestionType    `gorm:"size:20;not null" json:"type"`
	Text          string          `gorm:"type:text;not null" json:"text"`
	Options       json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	CorrectAnswer string          `gorm:"type:text" json:"correctAnswer,omitempty"`
	Solution      string          `gorm:"type:text" json:"solution,omitempty"`
	TimeAllocated int             `gorm:"default:0" json:"timeAllocated"` // seconds; 0 falls back to the field default
}

func (Question) TableName() string {
	return "questions"
}

// ParsedOptions decodes the stored options list; nil for descriptive questions.
func (q *Question) ParsedOptions() []Option {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []Option
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}
