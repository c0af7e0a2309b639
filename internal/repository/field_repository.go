package repository

import (
	"mytestbuddies_backend/internal/model"

	"gorm.io/gorm"
)

type FieldRepository struct {
	DB *gorm.DB
}

func NewFieldRepository(db *gorm.DB) *FieldRepository {
	return &FieldRepository{DB: db}
}

func (r *FieldRepository) Create(field *model.Field) error {
	return r.DB.Create(field).Error
}

func (r *FieldRepository) FindByID(id string) (*model.Field, error) {
	var field model.Field
	err := r.DB.First(&field, "id = ?", id).Error
	return &field, err
}

func (r *FieldRepository) List() ([]model.Field, error) {
	var fields []model.Field
	err := r.DB.Order("created_at desc").Find(&fields).Error
	return fields, err
}

func (r *FieldRepository) Update(field *model.Field) error {
	return r.DB.Save(field).Error
}

// Delete removes the field and everything hanging off it.
func (r *FieldRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("field_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		var attemptIDs []string
		if err := tx.Model(&model.QuizAttempt{}).Where("field_id = ?", id).Pluck("id", &attemptIDs).Error; err == nil && len(attemptIDs) > 0 {
			if err := tx.Where("attempt_id IN ?", attemptIDs).Delete(&model.AttemptAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("field_id = ?", id).Delete(&model.QuizAttempt{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Field{}, "id = ?", id).Error
	})
}
