package service

import (
	"time"

	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/repository"
)

type DashboardService struct {
	Fields    *repository.FieldRepository
	Questions *repository.QuestionRepository
	Attempts  *repository.AttemptRepository
}

func NewDashboardService(fields *repository.FieldRepository, questions *repository.QuestionRepository, attempts *repository.AttemptRepository) *DashboardService {
	return &DashboardService{Fields: fields, Questions: questions, Attempts: attempts}
}

type QuizSummary struct {
	FieldID       string `json:"fieldId"`
	Name          string `json:"name"`
	Audience      string `json:"for"`
	QuestionCount int64  `json:"questionCount"`
	Attempted     bool   `json:"attempted"`
	BestScore     int    `json:"bestScore"`
}

type AttemptSummary struct {
	AttemptID     string     `json:"attemptId"`
	FieldID       string     `json:"fieldId"`
	FieldName     string     `json:"fieldName"`
	TotalAnswered int        `json:"totalAnswered"`
	TotalCorrect  int        `json:"totalCorrect"`
	TimedOut      bool       `json:"timedOut"`
	CompletedAt   *time.Time `json:"completedAt"`
}

type DashboardReport struct {
	Quizzes  []QuizSummary    `json:"quizzes"`
	Attempts []AttemptSummary `json:"attempts"`
}

// Overview builds the student landing view: every quiz with its size, plus
// the caller's completed attempts newest first.
func (s *DashboardService) Overview(user *model.User) (*DashboardReport, error) {
	fields, err := s.Fields.List()
	if err != nil {
		return nil, err
	}
	attempts, err := s.Attempts.ListCompletedByUser(user.ID)
	if err != nil {
		return nil, err
	}

	fieldNames := make(map[string]string, len(fields))
	bestByField := make(map[string]int)
	for _, a := range attempts {
		if a.TotalCorrect > bestByField[a.FieldID] {
			bestByField[a.FieldID] = a.TotalCorrect
		}
	}

	report := &DashboardReport{
		Quizzes:  make([]QuizSummary, 0, len(fields)),
		Attempts: make([]AttemptSummary, 0, len(attempts)),
	}
	for _, f := range fields {
		fieldNames[f.ID] = f.Name
		count, err := s.Questions.CountByField(f.ID)
		if err != nil {
			return nil, err
		}
		_, attempted := bestByField[f.ID]
		if !attempted {
			for _, a := range attempts {
				if a.FieldID == f.ID {
					attempted = true
					break
				}
			}
		}
		report.Quizzes = append(report.Quizzes, QuizSummary{
			FieldID:       f.ID,
			Name:          f.Name,
			Audience:      f.Audience,
			QuestionCount: count,
			Attempted:     attempted,
			BestScore:     bestByField[f.ID],
		})
	}
	for _, a := range attempts {
		report.Attempts = append(report.Attempts, AttemptSummary{
			AttemptID:     a.ID,
			FieldID:       a.FieldID,
			FieldName:     fieldNames[a.FieldID],
			TotalAnswered: a.TotalAnswered,
			TotalCorrect:  a.TotalCorrect,
			TimedOut:      a.TimedOut,
			CompletedAt:   a.CompletedAt,
		})
	}
	return report, nil
}
