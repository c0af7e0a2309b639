package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/util"
	"mytestbuddies_backend/pkg/logger"
	"mytestbuddies_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Narrow store views so the session flow can be exercised without MySQL.
type fieldStore interface {
	FindByID(id string) (*model.Field, error)
}

type questionStore interface {
	ListByField(fieldID string) ([]model.Question, error)
}

type attemptStore interface {
	Create(a *model.QuizAttempt) error
	FindByID(id string) (*model.QuizAttempt, error)
	FindInProgress(userID uint, fieldID string) (*model.QuizAttempt, error)
	FindLatestCompleted(userID uint, fieldID string) (*model.QuizAttempt, error)
	ListOverdue(now time.Time, limit int) ([]model.QuizAttempt, error)
	Complete(a *model.QuizAttempt, answers []model.AttemptAnswer) error
	GetAnswers(attemptID string) ([]model.AttemptAnswer, error)
}

// QuizService owns the timed quiz session: loading questions, the attempt
// deadline, the draft answer buffer, one-shot grading, and the scored report.
type QuizService struct {
	Fields    fieldStore
	Questions questionStore
	Attempts  attemptStore
	Buffer    *AnswerBuffer
	Cfg       *config.Config

	// Now is swappable for deterministic expiry tests.
	Now func() time.Time
}

func NewQuizService(fields fieldStore, questions questionStore, attempts attemptStore, buffer *AnswerBuffer, cfg *config.Config) *QuizService {
	return &QuizService{
		Fields:    fields,
		Questions: questions,
		Attempts:  attempts,
		Buffer:    buffer,
		Cfg:       cfg,
		Now:       time.Now,
	}
}

// StudentQuestion is the learner-facing view: no correct answer, no solution.
type StudentQuestion struct {
	ID            string             `json:"_id"`
	Type          model.QuestionType `json:"type"`
	Text          string             `json:"text"`
	Options       []model.Option     `json:"options,omitempty"`
	TimeAllocated int                `json:"timeAllocated"`
}

// LoadQuestions returns the ordered question list for a field. An unknown
// field or empty set yields an empty list, not an error.
func (s *QuizService) LoadQuestions(fieldID string) ([]StudentQuestion, error) {
	qs, err := s.Questions.ListByField(fieldID)
	if err != nil {
		return nil, err
	}

	out := make([]StudentQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, StudentQuestion{
			ID:            q.ID,
			Type:          q.Type,
			Text:          q.Text,
			Options:       q.ParsedOptions(),
			TimeAllocated: s.timeFor(&q, nil),
		})
	}
	return out, nil
}

type AttemptState struct {
	Attempt          *model.QuizAttempt `json:"attempt"`
	RemainingSeconds int                `json:"remainingSeconds"`
	QuestionCount    int                `json:"questionCount"`
}

// StartAttempt opens (or resumes) the user's timed attempt on a field. The
// deadline is fixed server-side from the per-question time allocations; a
// previous attempt that already expired is graded as timed out first.
func (s *QuizService) StartAttempt(ctx context.Context, userID uint, userName, fieldID string) (*AttemptState, error) {
	field, err := s.Fields.FindByID(fieldID)
	if err != nil {
		return nil, util.ErrFieldNotFound
	}

	questions, err := s.Questions.ListByField(fieldID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrNoQuestions
	}

	now := s.Now()

	if existing, err := s.Attempts.FindInProgress(userID, fieldID); err == nil {
		if existing.Deadline.After(now) {
			return &AttemptState{
				Attempt:          existing,
				RemainingSeconds: existing.RemainingSeconds(now),
				QuestionCount:    len(questions),
			}, nil
		}
		// Stale attempt: grade what was buffered, then fall through to a fresh one.
		if err := s.expireAttempt(ctx, existing); err != nil && !errors.Is(err, util.ErrAttemptSubmitted) {
			return nil, err
		}
	}

	limit := 0
	for i := range questions {
		limit += s.timeFor(&questions[i], field)
	}

	attempt := &model.QuizAttempt{
		FieldID:   fieldID,
		UserID:    userID,
		UserName:  userName,
		Status:    model.AttemptInProgress,
		StartedAt: now,
		Deadline:  now.Add(time.Duration(limit) * time.Second),
	}
	if err := s.Attempts.Create(attempt); err != nil {
		// A racing start for the same user and field hit the live-attempt
		// unique index first; resume the attempt that won.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, ferr := s.Attempts.FindInProgress(userID, fieldID); ferr == nil {
				return &AttemptState{
					Attempt:          existing,
					RemainingSeconds: existing.RemainingSeconds(now),
					QuestionCount:    len(questions),
				}, nil
			}
		}
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()

	return &AttemptState{
		Attempt:          attempt,
		RemainingSeconds: limit,
		QuestionCount:    len(questions),
	}, nil
}

// SaveAnswer buffers one draft answer, last-write-wins per question.
func (s *QuizService) SaveAnswer(ctx context.Context, userID uint, attemptID, questionID, answer string) error {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return util.ErrAttemptNotFound
	}
	if attempt.UserID != userID {
		return util.ErrPermissionDenied
	}
	if attempt.Status != model.AttemptInProgress {
		return util.ErrAttemptSubmitted
	}

	now := s.Now()
	if !attempt.Deadline.After(now) {
		return util.ErrAttemptExpired
	}

	// Keep the buffer around past the deadline so the sweeper can grade it.
	ttl := attempt.Deadline.Sub(now) + time.Hour
	return s.Buffer.Set(ctx, attempt.ID, questionID, answer, ttl)
}

type AnswerPair struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// Submit is the manual path. The payload merges over the draft buffer, at
// least one answered question is required, and the in_progress -> completed
// transition happens exactly once even if the expiry sweeper races it.
func (s *QuizService) Submit(ctx context.Context, userID uint, fieldID, userName string, pairs []AnswerPair) error {
	attempt, err := s.Attempts.FindInProgress(userID, fieldID)
	if err != nil {
		if latest, lerr := s.Attempts.FindLatestCompleted(userID, fieldID); lerr == nil && latest != nil {
			return util.ErrAttemptSubmitted
		}
		return util.ErrAttemptNotFound
	}

	if userName != "" && attempt.UserName == "" {
		attempt.UserName = userName
	}

	answers, err := s.Buffer.All(ctx, attempt.ID)
	if err != nil {
		logger.Log.Warn("answer buffer read failed, using payload only", zap.Error(err))
		answers = map[string]string{}
	}
	for _, p := range pairs {
		answers[p.QuestionID] = p.Answer
	}

	// Answers for question IDs outside the field must not satisfy the
	// at-least-one-answer gate, so count against the field's question set.
	questions, err := s.Questions.ListByField(attempt.FieldID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(questions))
	for i := range questions {
		known[questions[i].ID] = true
	}
	for id := range answers {
		if !known[id] {
			delete(answers, id)
		}
	}

	if countAnswered(answers) == 0 {
		return util.ErrNothingAnswered
	}

	return s.finalize(ctx, attempt, answers, false)
}

// ExpireOverdue auto-submits attempts whose deadline passed, with whatever
// the buffer holds at that instant, even nothing. Called from the sweeper.
func (s *QuizService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.Attempts.ListOverdue(s.Now(), 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		if err := s.expireAttempt(ctx, &overdue[i]); err != nil {
			if errors.Is(err, util.ErrAttemptSubmitted) {
				continue // manual submit won the race
			}
			logger.Log.Error("auto-submit failed",
				zap.String("attempt", overdue[i].ID),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *QuizService) expireAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	answers, err := s.Buffer.All(ctx, attempt.ID)
	if err != nil {
		answers = map[string]string{}
	}
	return s.finalize(ctx, attempt, answers, true)
}

// finalize grades and completes the attempt. The store's status predicate is
// the one-shot guard: losing the submit/expiry race surfaces as
// ErrAttemptSubmitted and nothing is graded twice.
func (s *QuizService) finalize(ctx context.Context, attempt *model.QuizAttempt, answers map[string]string, timedOut bool) error {
	questions, err := s.Questions.ListByField(attempt.FieldID)
	if err != nil {
		return err
	}

	graded, answered, correct := gradeAnswers(questions, answers)

	now := s.Now()
	attempt.TimedOut = timedOut
	attempt.CompletedAt = &now
	attempt.TotalAnswered = answered
	attempt.TotalCorrect = correct

	if err := s.Attempts.Complete(attempt, graded); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptSubmitted
		}
		return err
	}

	_ = s.Buffer.Clear(ctx, attempt.ID)

	trigger := "manual"
	if timedOut {
		trigger = "timeout"
	}
	monitoring.AttemptsSubmitted.WithLabelValues(trigger).Inc()

	logger.Log.Info("attempt graded",
		zap.String("attempt", attempt.ID),
		zap.String("field", attempt.FieldID),
		zap.Int("answered", answered),
		zap.Int("correct", correct),
		zap.Bool("timedOut", timedOut))
	return nil
}

// gradeAnswers snapshots every question with the learner's answer and a
// correctness flag. Matching is trimmed and case-insensitive; MCQ answers
// are the selected option's display text.
func gradeAnswers(questions []model.Question, answers map[string]string) ([]model.AttemptAnswer, int, int) {
	graded := make([]model.AttemptAnswer, 0, len(questions))
	answered, correct := 0, 0

	for _, q := range questions {
		ans := answers[q.ID]
		isAnswered := strings.TrimSpace(ans) != ""
		isCorrect := isAnswered && normalizeAnswer(ans) == normalizeAnswer(q.CorrectAnswer)

		if isAnswered {
			answered++
		}
		if isCorrect {
			correct++
		}

		graded = append(graded, model.AttemptAnswer{
			QuestionID:      q.ID,
			QuestionText:    q.Text,
			QuestionType:    q.Type,
			QuestionOptions: q.Options,
			SubmittedAnswer: ans,
			CorrectAnswer:   q.CorrectAnswer,
			IsCorrect:       isCorrect,
		})
	}
	return graded, answered, correct
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ProgressReport mirrors the shape the client renders after submission.
type ProgressReport struct {
	TotalAnswered     int             `json:"totalAnswered"`
	TotalCorrect      int             `json:"totalCorrect"`
	QuestionsAnswered []AnswerOutcome `json:"questionsAnswered"`
}

type AnswerOutcome struct {
	QuestionID      string             `json:"questionId"`
	Question        string             `json:"question"`
	Type            model.QuestionType `json:"type"`
	SubmittedAnswer string             `json:"submittedAnswer"`
	IsCorrect       bool               `json:"isCorrect"`
	CorrectAnswer   string             `json:"correctAnswer,omitempty"` // only when incorrect
	CreatedAt       time.Time          `json:"createdAt"`
}

// Progress builds the scored report for the user's latest completed attempt.
// Duplicate entries for one question (question edits create versions) are
// collapsed to the most recently created entry.
func (s *QuizService) Progress(userID uint, fieldID string) (*ProgressReport, error) {
	attempt, err := s.Attempts.FindLatestCompleted(userID, fieldID)
	if err != nil {
		return nil, util.ErrNoReport
	}

	answers, err := s.Attempts.GetAnswers(attempt.ID)
	if err != nil {
		return nil, err
	}

	deduped := dedupeLatest(answers)

	outcomes := make([]AnswerOutcome, 0, len(deduped))
	for _, a := range deduped {
		out := AnswerOutcome{
			QuestionID:      a.QuestionID,
			Question:        a.QuestionText,
			Type:            a.QuestionType,
			SubmittedAnswer: a.SubmittedAnswer,
			IsCorrect:       a.IsCorrect,
			CreatedAt:       a.CreatedAt,
		}
		if !a.IsCorrect {
			out.CorrectAnswer = a.CorrectAnswer
		}
		outcomes = append(outcomes, out)
	}

	return &ProgressReport{
		TotalAnswered:     attempt.TotalAnswered,
		TotalCorrect:      attempt.TotalCorrect,
		QuestionsAnswered: outcomes,
	}, nil
}

// dedupeLatest keeps one entry per question ID, latest CreatedAt wins,
// preserving the overall list order.
func dedupeLatest(answers []model.AttemptAnswer) []model.AttemptAnswer {
	keep := make(map[string]model.AttemptAnswer, len(answers))
	order := make([]string, 0, len(answers))

	for _, a := range answers {
		prev, seen := keep[a.QuestionID]
		if !seen {
			keep[a.QuestionID] = a
			order = append(order, a.QuestionID)
			continue
		}
		if a.CreatedAt.After(prev.CreatedAt) {
			keep[a.QuestionID] = a
		}
	}

	out := make([]model.AttemptAnswer, 0, len(order))
	for _, id := range order {
		out = append(out, keep[id])
	}
	return out
}

func (s *QuizService) timeFor(q *model.Question, field *model.Field) int {
	if q.TimeAllocated > 0 {
		return q.TimeAllocated
	}
	if field != nil && field.DefaultTimePerQuestion > 0 {
		return field.DefaultTimePerQuestion
	}
	return s.Cfg.QuizSettings().DefaultTimePerQuestion
}
