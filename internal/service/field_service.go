package service

import (
	"errors"

	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/repository"
	"mytestbuddies_backend/internal/util"

	"gorm.io/gorm"
)

type FieldService struct {
	Fields    *repository.FieldRepository
	Questions *repository.QuestionRepository
}

func NewFieldService(fields *repository.FieldRepository, questions *repository.QuestionRepository) *FieldService {
	return &FieldService{Fields: fields, Questions: questions}
}

type FieldReq struct {
	Name                   *string `json:"name"`
	Description            *string `json:"description"`
	Audience               *string `json:"for"`
	DefaultTimePerQuestion *int    `json:"defaultTimePerQuestion"`
}

func (s *FieldService) Create(req FieldReq) (*model.Field, error) {
	if req.Name == nil || *req.Name == "" {
		return nil, errors.New("name is required")
	}

	field := &model.Field{
		Name:                   *req.Name,
		Audience:               "general",
		DefaultTimePerQuestion: 30,
	}
	if req.Description != nil {
		field.Description = *req.Description
	}
	if req.Audience != nil && *req.Audience != "" {
		field.Audience = *req.Audience
	}
	if req.DefaultTimePerQuestion != nil && *req.DefaultTimePerQuestion > 0 {
		field.DefaultTimePerQuestion = *req.DefaultTimePerQuestion
	}

	if err := s.Fields.Create(field); err != nil {
		return nil, err
	}
	return field, nil
}

func (s *FieldService) Update(id string, req FieldReq) (*model.Field, error) {
	field, err := s.Fields.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrFieldNotFound
		}
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		field.Name = *req.Name
	}
	if req.Description != nil {
		field.Description = *req.Description
	}
	if req.Audience != nil && *req.Audience != "" {
		field.Audience = *req.Audience
	}
	if req.DefaultTimePerQuestion != nil && *req.DefaultTimePerQuestion > 0 {
		field.DefaultTimePerQuestion = *req.DefaultTimePerQuestion
	}

	if err := s.Fields.Update(field); err != nil {
		return nil, err
	}
	return field, nil
}

func (s *FieldService) Delete(id string) error {
	if _, err := s.Fields.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrFieldNotFound
		}
		return err
	}
	return s.Fields.Delete(id)
}

func (s *FieldService) List() ([]model.Field, error) {
	return s.Fields.List()
}

func (s *FieldService) Get(id string) (*model.Field, error) {
	field, err := s.Fields.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrFieldNotFound
		}
		return nil, err
	}
	return field, nil
}

// GetWithQuestions is the admin review view: full questions, answers included.
func (s *FieldService) GetWithQuestions(id string) (*model.Field, []model.Question, error) {
	field, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	qs, err := s.Questions.ListByField(id)
	if err != nil {
		return nil, nil, err
	}
	return field, qs, nil
}
