package service

import (
	"encoding/json"
	"errors"
	"strings"

	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/repository"
	"mytestbuddies_backend/internal/util"

	"gorm.io/gorm"
)

type QuestionService struct {
	Fields    *repository.FieldRepository
	Questions *repository.QuestionRepository
}

func NewQuestionService(fields *repository.FieldRepository, questions *repository.QuestionRepository) *QuestionService {
	return &QuestionService{Fields: fields, Questions: questions}
}

type QuestionReq struct {
	FieldID       string         `json:"fieldId" binding:"required"`
	Type          string         `json:"type" binding:"required"`
	Text          string         `json:"text" binding:"required"`
	Options       []model.Option `json:"options"`
	CorrectAnswer string         `json:"correctAnswer"`
	Solution      string         `json:"solution"`
	TimeAllocated int            `json:"timeAllocated"`
}

func (s *QuestionService) Create(req QuestionReq) (*model.Question, error) {
	if _, err := s.Fields.FindByID(req.FieldID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrFieldNotFound
		}
		return nil, err
	}

	qType := model.QuestionType(strings.ToLower(strings.TrimSpace(req.Type)))
	if qType != model.MCQ && qType != model.Descriptive {
		return nil, errors.New("type must be mcq or descriptive")
	}

	question := &model.Question{
		FieldID:       req.FieldID,
		Type:          qType,
		Text:          strings.TrimSpace(req.Text),
		CorrectAnswer: strings.TrimSpace(req.CorrectAnswer),
		Solution:      req.Solution,
		TimeAllocated: req.TimeAllocated,
	}
	if question.Text == "" {
		return nil, errors.New("text is required")
	}

	if qType == model.MCQ {
		if len(req.Options) < 2 {
			return nil, errors.New("mcq questions need at least two options")
		}
		if question.CorrectAnswer == "" {
			return nil, errors.New("mcq questions need a correctAnswer")
		}
		for i := range req.Options {
			req.Options[i].Text = strings.TrimSpace(req.Options[i].Text)
			if req.Options[i].Text == "" {
				return nil, errors.New("options must not be empty")
			}
		}
		raw, err := json.Marshal(req.Options)
		if err != nil {
			return nil, err
		}
		question.Options = raw
	}

	if err := s.Questions.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) Update(id string, req QuestionReq) (*model.Question, error) {
	question, err := s.Questions.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	if req.Text != "" {
		question.Text = strings.TrimSpace(req.Text)
	}
	if req.CorrectAnswer != "" {
		question.CorrectAnswer = strings.TrimSpace(req.CorrectAnswer)
	}
	if req.Solution != "" {
		question.Solution = req.Solution
	}
	if req.TimeAllocated > 0 {
		question.TimeAllocated = req.TimeAllocated
	}
	if len(req.Options) > 0 {
		raw, err := json.Marshal(req.Options)
		if err != nil {
			return nil, err
		}
		question.Options = raw
	}

	if err := s.Questions.Update(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) Delete(id string) error {
	if _, err := s.Questions.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}
	return s.Questions.Delete(id)
}
