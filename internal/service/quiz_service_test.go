package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/util"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type fakeFields struct {
	fields map[string]*model.Field
}

func (f *fakeFields) FindByID(id string) (*model.Field, error) {
	field, ok := f.fields[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return field, nil
}

type fakeQuestions struct {
	byField map[string][]model.Question
}

func (f *fakeQuestions) ListByField(fieldID string) ([]model.Question, error) {
	return f.byField[fieldID], nil
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[string]*model.QuizAttempt
	answers  map[string][]model.AttemptAnswer
	seq      int
	// hideInProgress makes the next N FindInProgress calls miss, simulating
	// a racing start whose insert is not yet visible to the lookup.
	hideInProgress int
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{
		attempts: map[string]*model.QuizAttempt{},
		answers:  map[string][]model.AttemptAnswer{},
	}
}

// Create mirrors the live-attempt unique index: a second in_progress row for
// the same user and field is rejected with gorm.ErrDuplicatedKey.
func (f *fakeAttempts) Create(a *model.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.UserID == a.UserID && existing.FieldID == a.FieldID && existing.Status == model.AttemptInProgress {
			return gorm.ErrDuplicatedKey
		}
	}
	f.seq++
	a.ID = fmt.Sprintf("attempt-%d", f.seq)
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttempts) FindByID(id string) (*model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) FindInProgress(userID uint, fieldID string) (*model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideInProgress > 0 {
		f.hideInProgress--
		return nil, gorm.ErrRecordNotFound
	}
	for _, a := range f.attempts {
		if a.UserID == userID && a.FieldID == fieldID && a.Status == model.AttemptInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAttempts) FindLatestCompleted(userID uint, fieldID string) (*model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.QuizAttempt
	for _, a := range f.attempts {
		if a.UserID != userID || a.FieldID != fieldID || a.Status != model.AttemptCompleted {
			continue
		}
		if latest == nil || (a.CompletedAt != nil && latest.CompletedAt != nil && a.CompletedAt.After(*latest.CompletedAt)) {
			latest = a
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeAttempts) ListOverdue(now time.Time, limit int) ([]model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QuizAttempt
	for _, a := range f.attempts {
		if a.Status == model.AttemptInProgress && !a.Deadline.After(now) {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Complete mirrors the production status predicate: only an in_progress row
// transitions, a lost race reports gorm.ErrRecordNotFound.
func (f *fakeAttempts) Complete(a *model.QuizAttempt, answers []model.AttemptAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.attempts[a.ID]
	if !ok || stored.Status != model.AttemptInProgress {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Status = model.AttemptCompleted
	f.attempts[a.ID] = &cp
	for i := range answers {
		answers[i].AttemptID = a.ID
	}
	f.answers[a.ID] = answers
	return nil
}

func (f *fakeAttempts) GetAnswers(attemptID string) ([]model.AttemptAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[attemptID], nil
}

func mcq(id, text, correct string, seconds int) model.Question {
	opts, _ := json.Marshal([]model.Option{{Text: "Paris"}, {Text: "London"}, {Text: correct}})
	q := model.Question{
		FieldID:       "f1",
		Type:          model.MCQ,
		Text:          text,
		Options:       opts,
		CorrectAnswer: correct,
		TimeAllocated: seconds,
	}
	q.ID = id
	return q
}

type quizFixture struct {
	svc      *QuizService
	attempts *fakeAttempts
	redis    *miniredis.Miniredis
	now      time.Time
}

func newQuizFixture(t *testing.T, questions []model.Question) *quizFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	field := &model.Field{Name: "History", DefaultTimePerQuestion: 20}
	field.ID = "f1"

	fx := &quizFixture{
		attempts: newFakeAttempts(),
		redis:    mr,
		now:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	fx.svc = NewQuizService(
		&fakeFields{fields: map[string]*model.Field{"f1": field}},
		&fakeQuestions{byField: map[string][]model.Question{"f1": questions}},
		fx.attempts,
		NewAnswerBuffer(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		&config.Config{Quiz: config.QuizConfig{DefaultTimePerQuestion: 30}},
	)
	fx.svc.Now = func() time.Time { return fx.now }
	return fx
}

func (fx *quizFixture) advance(d time.Duration) {
	fx.now = fx.now.Add(d)
}

func TestStartAttemptFixesDeadline(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{
		mcq("q1", "Q1", "A", 10),
		mcq("q2", "Q2", "B", 10),
		mcq("q3", "Q3", "C", 10),
	})

	state, err := fx.svc.StartAttempt(context.Background(), 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if state.RemainingSeconds != 30 {
		t.Fatalf("expected 30s budget, got %d", state.RemainingSeconds)
	}
	if !state.Attempt.Deadline.Equal(fx.now.Add(30 * time.Second)) {
		t.Fatalf("deadline not fixed at start: %v", state.Attempt.Deadline)
	}
	if state.QuestionCount != 3 {
		t.Fatalf("expected 3 questions, got %d", state.QuestionCount)
	}
}

func TestStartAttemptUsesFieldDefaultTime(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{
		mcq("q1", "Q1", "A", 0), // falls back to the field's 20s
		mcq("q2", "Q2", "B", 15),
	})

	state, err := fx.svc.StartAttempt(context.Background(), 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if state.RemainingSeconds != 35 {
		t.Fatalf("expected 35s budget, got %d", state.RemainingSeconds)
	}
}

func TestStartAttemptRejectsUnknownField(t *testing.T) {
	fx := newQuizFixture(t, nil)

	_, err := fx.svc.StartAttempt(context.Background(), 1, "Asha", "missing")
	if !errors.Is(err, util.ErrFieldNotFound) {
		t.Fatalf("expected field-not-found, got %v", err)
	}
}

func TestStartAttemptRejectsEmptyField(t *testing.T) {
	fx := newQuizFixture(t, nil)

	_, err := fx.svc.StartAttempt(context.Background(), 1, "Asha", "f1")
	if !errors.Is(err, util.ErrNoQuestions) {
		t.Fatalf("expected no-questions, got %v", err)
	}
}

func TestStartAttemptResumesLiveAttempt(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 30)})

	first, err := fx.svc.StartAttempt(context.Background(), 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	fx.advance(10 * time.Second)

	second, err := fx.svc.StartAttempt(context.Background(), 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if second.Attempt.ID != first.Attempt.ID {
		t.Fatalf("expected the live attempt to resume, got a new one")
	}
	if second.RemainingSeconds != 20 {
		t.Fatalf("expected 20s left, got %d", second.RemainingSeconds)
	}
}

func TestStartAttemptRaceKeepsSingleLiveAttempt(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 30)})
	ctx := context.Background()

	first, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// A second request interleaves before the first insert is visible to its
	// lookup; the unique index rejects the duplicate and the winner resumes.
	fx.attempts.hideInProgress = 1
	second, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("racing start failed: %v", err)
	}
	if second.Attempt.ID != first.Attempt.ID {
		t.Fatalf("expected the racing start to resume %s, got %s", first.Attempt.ID, second.Attempt.ID)
	}

	live := 0
	for _, a := range fx.attempts.attempts {
		if a.Status == model.AttemptInProgress {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live attempt, got %d", live)
	}
}

func TestLoadQuestionsHidesAnswers(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Capital of France?", "Paris", 10)})

	questions, err := fx.svc.LoadQuestions("f1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	raw, _ := json.Marshal(questions[0])
	for _, leaked := range []string{"correctAnswer", "solution"} {
		if json.Valid(raw) && containsKey(raw, leaked) {
			t.Fatalf("student view leaks %q: %s", leaked, raw)
		}
	}
	if questions[0].ID != "q1" {
		t.Fatalf("expected _id q1, got %s", questions[0].ID)
	}
}

func containsKey(raw []byte, key string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}

func TestLoadQuestionsEmptyFieldIsNotAnError(t *testing.T) {
	fx := newQuizFixture(t, nil)

	questions, err := fx.svc.LoadQuestions("f1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected empty list, got %d", len(questions))
	}
}

func TestSubmitMergesPayloadOverBuffer(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{
		mcq("q1", "Q1", "Paris", 30),
		mcq("q2", "Q2", "London", 30),
		mcq("q3", "Q3", "Berlin", 30),
	})
	ctx := context.Background()

	state, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Draft answers: q1 right, q2 wrong.
	if err := fx.svc.SaveAnswer(ctx, 1, state.Attempt.ID, "q1", "Paris"); err != nil {
		t.Fatalf("save q1: %v", err)
	}
	if err := fx.svc.SaveAnswer(ctx, 1, state.Attempt.ID, "q2", "Paris"); err != nil {
		t.Fatalf("save q2: %v", err)
	}

	// Final payload corrects q2; matching ignores case and whitespace.
	err = fx.svc.Submit(ctx, 1, "f1", "Asha", []AnswerPair{{QuestionID: "q2", Answer: "  london "}})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	attempt, _ := fx.attempts.FindByID(state.Attempt.ID)
	if attempt.Status != model.AttemptCompleted {
		t.Fatalf("expected completed, got %s", attempt.Status)
	}
	if attempt.TotalAnswered != 2 || attempt.TotalCorrect != 2 {
		t.Fatalf("expected 2 answered / 2 correct, got %d / %d", attempt.TotalAnswered, attempt.TotalCorrect)
	}
	if attempt.TimedOut {
		t.Fatalf("manual submit must not flag timedOut")
	}

	answers, _ := fx.attempts.GetAnswers(attempt.ID)
	if len(answers) != 3 {
		t.Fatalf("expected a snapshot per question, got %d", len(answers))
	}
	if fx.redis.Exists("attempt:" + attempt.ID + ":answers") {
		t.Fatalf("buffer should be cleared after grading")
	}
}

func TestSubmitRequiresAtLeastOneAnswer(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 30)})
	ctx := context.Background()

	state, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Blank answers don't count as answered.
	err = fx.svc.Submit(ctx, 1, "f1", "Asha", []AnswerPair{{QuestionID: "q1", Answer: "   "}})
	if !errors.Is(err, util.ErrNothingAnswered) {
		t.Fatalf("expected nothing-answered, got %v", err)
	}

	attempt, _ := fx.attempts.FindByID(state.Attempt.ID)
	if attempt.Status != model.AttemptInProgress {
		t.Fatalf("rejected submit must leave the attempt open")
	}
}

func TestSubmitIgnoresAnswersForForeignQuestions(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "Paris", 30)})
	ctx := context.Background()

	state, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// An answer for a question outside the field must not satisfy the
	// at-least-one-answer gate.
	err = fx.svc.Submit(ctx, 1, "f1", "Asha", []AnswerPair{{QuestionID: "other-field-q", Answer: "Paris"}})
	if !errors.Is(err, util.ErrNothingAnswered) {
		t.Fatalf("expected nothing-answered, got %v", err)
	}
	attempt, _ := fx.attempts.FindByID(state.Attempt.ID)
	if attempt.Status != model.AttemptInProgress {
		t.Fatalf("rejected submit must leave the attempt open")
	}

	// With one real answer alongside, the stray pair is dropped from grading.
	err = fx.svc.Submit(ctx, 1, "f1", "Asha", []AnswerPair{
		{QuestionID: "other-field-q", Answer: "Paris"},
		{QuestionID: "q1", Answer: "Paris"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	attempt, _ = fx.attempts.FindByID(state.Attempt.ID)
	if attempt.TotalAnswered != 1 || attempt.TotalCorrect != 1 {
		t.Fatalf("expected 1 answered / 1 correct, got %d / %d", attempt.TotalAnswered, attempt.TotalCorrect)
	}
	answers, _ := fx.attempts.GetAnswers(attempt.ID)
	for _, a := range answers {
		if a.QuestionID == "other-field-q" {
			t.Fatalf("stray question id must not be snapshotted")
		}
	}
}

func TestSubmitIsOneShot(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 30)})
	ctx := context.Background()

	if _, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	pairs := []AnswerPair{{QuestionID: "q1", Answer: "A"}}
	if err := fx.svc.Submit(ctx, 1, "f1", "Asha", pairs); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if err := fx.svc.Submit(ctx, 1, "f1", "Asha", pairs); !errors.Is(err, util.ErrAttemptSubmitted) {
		t.Fatalf("expected already-submitted, got %v", err)
	}
}

func TestSweeperSubmitsOverdueAttemptOnce(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{
		mcq("q1", "Q1", "A", 10),
		mcq("q2", "Q2", "B", 10),
	})
	ctx := context.Background()

	state, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// One second short of the deadline: nothing to sweep.
	fx.advance(19 * time.Second)
	if n, _ := fx.svc.ExpireOverdue(ctx); n != 0 {
		t.Fatalf("swept %d attempts before the deadline", n)
	}

	fx.advance(1 * time.Second)
	n, err := fx.svc.ExpireOverdue(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 sweep, got %d", n)
	}

	attempt, _ := fx.attempts.FindByID(state.Attempt.ID)
	if attempt.Status != model.AttemptCompleted || !attempt.TimedOut {
		t.Fatalf("expected completed+timedOut, got %s timedOut=%v", attempt.Status, attempt.TimedOut)
	}
	// Zero answers is a valid timeout submission.
	if attempt.TotalAnswered != 0 {
		t.Fatalf("expected 0 answered, got %d", attempt.TotalAnswered)
	}

	if n, _ := fx.svc.ExpireOverdue(ctx); n != 0 {
		t.Fatalf("second sweep graded again: %d", n)
	}
}

func TestManualSubmitAfterSweepIsRejected(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 10)})
	ctx := context.Background()

	if _, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	fx.advance(11 * time.Second)
	if _, err := fx.svc.ExpireOverdue(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	err := fx.svc.Submit(ctx, 1, "f1", "Asha", []AnswerPair{{QuestionID: "q1", Answer: "A"}})
	if !errors.Is(err, util.ErrAttemptSubmitted) {
		t.Fatalf("expected already-submitted after sweep, got %v", err)
	}
}

func TestSaveAnswerRejectsAfterDeadline(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 10)})
	ctx := context.Background()

	state, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	fx.advance(10 * time.Second)
	err = fx.svc.SaveAnswer(ctx, 1, state.Attempt.ID, "q1", "A")
	if !errors.Is(err, util.ErrAttemptExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestSaveAnswerChecksOwnership(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 30)})
	ctx := context.Background()

	state, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	err = fx.svc.SaveAnswer(ctx, 2, state.Attempt.ID, "q1", "A")
	if !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestProgressReportsLatestPerQuestion(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{
		mcq("q1", "Q1", "Paris", 30),
		mcq("q2", "Q2", "London", 30),
	})
	ctx := context.Background()

	if _, err := fx.svc.StartAttempt(ctx, 1, "Asha", "f1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	err := fx.svc.Submit(ctx, 1, "f1", "Asha", []AnswerPair{
		{QuestionID: "q1", Answer: "Paris"},
		{QuestionID: "q2", Answer: "Berlin"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	report, err := fx.svc.Progress(1, "f1")
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if report.TotalAnswered != 2 || report.TotalCorrect != 1 {
		t.Fatalf("expected 2/1, got %d/%d", report.TotalAnswered, report.TotalCorrect)
	}
	if len(report.QuestionsAnswered) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(report.QuestionsAnswered))
	}
	for _, o := range report.QuestionsAnswered {
		if o.IsCorrect && o.CorrectAnswer != "" {
			t.Fatalf("correct answers must not echo the key: %+v", o)
		}
		if !o.IsCorrect && o.CorrectAnswer == "" {
			t.Fatalf("incorrect answers must reveal the key: %+v", o)
		}
	}
}

func TestProgressWithoutCompletedAttempt(t *testing.T) {
	fx := newQuizFixture(t, []model.Question{mcq("q1", "Q1", "A", 30)})

	_, err := fx.svc.Progress(1, "f1")
	if !errors.Is(err, util.ErrNoReport) {
		t.Fatalf("expected no-report, got %v", err)
	}
}

func TestDedupeLatestKeepsNewestEntry(t *testing.T) {
	old := model.AttemptAnswer{QuestionID: "q1", SubmittedAnswer: "stale"}
	old.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fresh := model.AttemptAnswer{QuestionID: "q1", SubmittedAnswer: "fresh"}
	fresh.CreatedAt = old.CreatedAt.Add(time.Minute)
	other := model.AttemptAnswer{QuestionID: "q2", SubmittedAnswer: "kept"}
	other.CreatedAt = old.CreatedAt

	out := dedupeLatest([]model.AttemptAnswer{old, other, fresh})
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out[0].QuestionID != "q1" || out[0].SubmittedAnswer != "fresh" {
		t.Fatalf("expected latest q1 entry first, got %+v", out[0])
	}
	if out[1].QuestionID != "q2" {
		t.Fatalf("expected q2 second, got %+v", out[1])
	}
}
