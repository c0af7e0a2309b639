package repository

import (
	"time"

	"mytestbuddies_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Create inserts a new in-progress attempt. The unique index on
// (user_id, field_id, live_key) rejects a second live attempt for the same
// user and field with gorm.ErrDuplicatedKey.
func (r *AttemptRepository) Create(a *model.QuizAttempt) error {
	live := "1"
	a.LiveKey = &live
	return r.DB.Create(a).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.First(&a, "id = ?", id).Error
	return &a, err
}

func (r *AttemptRepository) FindInProgress(userID uint, fieldID string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("user_id = ? AND field_id = ? AND status = ?", userID, fieldID, model.AttemptInProgress).
		Order("created_at desc").
		First(&a).Error
	return &a, err
}

func (r *AttemptRepository) FindLatestCompleted(userID uint, fieldID string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("user_id = ? AND field_id = ? AND status = ?", userID, fieldID, model.AttemptCompleted).
		Order("completed_at desc").
		First(&a).Error
	return &a, err
}

func (r *AttemptRepository) ListCompletedByUser(userID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND status = ?", userID, model.AttemptCompleted).
		Order("completed_at desc").
		Find(&attempts).Error
	return attempts, err
}

// ListOverdue returns in-progress attempts whose deadline has passed.
func (r *AttemptRepository) ListOverdue(now time.Time, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("status = ? AND deadline < ?", model.AttemptInProgress, now).
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// Complete flips the attempt to completed and stores its graded answers in one
// transaction. The status predicate makes the transition one-shot: a second
// caller (manual submit racing the expiry sweeper) updates zero rows and gets
// ErrRecordNotFound instead of double-grading.
func (r *AttemptRepository) Complete(a *model.QuizAttempt, answers []model.AttemptAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND status = ?", a.ID, model.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":         model.AttemptCompleted,
				"live_key":       nil,
				"timed_out":      a.TimedOut,
				"completed_at":   a.CompletedAt,
				"total_answered": a.TotalAnswered,
				"total_correct":  a.TotalCorrect,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		for i := range answers {
			answers[i].AttemptID = a.ID
		}
		if len(answers) == 0 {
			return nil
		}
		return tx.Create(&answers).Error
	})
}

func (r *AttemptRepository) GetAnswers(attemptID string) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Order("created_at asc").Find(&answers).Error
	return answers, err
}
