package controller

import (
	"errors"

	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/internal/service"
	"mytestbuddies_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService     *service.QuizService
	QuestionService *service.QuestionService
	PaymentService  *service.PaymentService
	AuthService     *service.AuthService
}

func NewQuizController(quizService *service.QuizService, questionService *service.QuestionService, paymentService *service.PaymentService, authService *service.AuthService) *QuizController {
	return &QuizController{
		QuizService:     quizService,
		QuestionService: questionService,
		PaymentService:  paymentService,
		AuthService:     authService,
	}
}

// Questions godoc
// @Summary Questions for a field, answers stripped
// @Tags quiz
// @Produce  json
// @Param   fieldId path string true "field id"
// @Success 200 {object} object "{questions: [...]}"
// @Router /api/admin/questions/fields/que/{fieldId} [get]
func (c *QuizController) Questions(ctx *gin.Context) {
	questions, err := c.QuizService.LoadQuestions(ctx.Param("fieldId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"questions": questions})
}

type fieldQuestionReq struct {
	Type          string         `json:"type" binding:"required"`
	Text          string         `json:"text" binding:"required"`
	Options       []model.Option `json:"options"`
	CorrectAnswer string         `json:"correctAnswer"`
	Solution      string         `json:"solution"`
	TimeAllocated int            `json:"timeAllocated"`
}

// CreateInField accepts the field id from the path rather than the body.
func (c *QuizController) CreateInField(ctx *gin.Context) {
	var body fieldQuestionReq
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	req := service.QuestionReq{
		FieldID:       ctx.Param("fieldId"),
		Type:          body.Type,
		Text:          body.Text,
		Options:       body.Options,
		CorrectAnswer: body.CorrectAnswer,
		Solution:      body.Solution,
		TimeAllocated: body.TimeAllocated,
	}

	question, err := c.QuestionService.Create(req)
	if err != nil {
		if errors.Is(err, util.ErrFieldNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, question)
}

type StartRequest struct {
	UserName string `json:"userName"`
}

// Start godoc
// @Summary Open a timed attempt on a field
// @Description Resumes an in-progress attempt if one is still alive
// @Tags quiz
// @Accept  json
// @Produce  json
// @Param   fieldId path string true "field id"
// @Success 200 {object} service.AttemptState
// @Failure 402 {object} object "payment required"
// @Failure 409 {object} object "field has no questions"
// @Router /api/quiz/fields/{fieldId}/start [post]
func (c *QuizController) Start(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	ok, err := c.PaymentService.HasAccess(user)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if !ok {
		util.Error(ctx, 402, "complete the quiz payment first")
		return
	}

	var req StartRequest
	_ = ctx.ShouldBindJSON(&req)
	if req.UserName == "" {
		req.UserName = user.Name
	}

	state, err := c.QuizService.StartAttempt(ctx.Request.Context(), user.ID, req.UserName, ctx.Param("fieldId"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFieldNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNoQuestions):
			util.Conflict(ctx, "field has no questions yet")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

type SaveAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

// SaveAnswer godoc
// @Summary Stash a draft answer on the server
// @Tags quiz
// @Accept  json
// @Produce  json
// @Param   id path string true "attempt id"
// @Param   body body SaveAnswerRequest true "draft"
// @Success 200 {object} object "{success: true}"
// @Failure 410 {object} object "attempt closed or expired"
// @Router /api/quiz/attempts/{id}/answers [put]
func (c *QuizController) SaveAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.QuizService.SaveAnswer(ctx.Request.Context(), user.UserID, ctx.Param("id"), req.QuestionID, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrAttemptSubmitted), errors.Is(err, util.ErrAttemptExpired):
			util.Error(ctx, 410, "attempt is no longer open")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"success": true})
}

type SubmitRequest struct {
	FieldID  string               `json:"fieldId"`
	UserName string               `json:"userName"`
	Answers  []service.AnswerPair `json:"answers"`
}

// Submit godoc
// @Summary Grade and close the current attempt
// @Description Merges the payload over the buffered draft answers and grades once
// @Tags quiz
// @Accept  json
// @Produce  json
// @Param   fieldId path string true "field id"
// @Param   body body SubmitRequest true "final answers"
// @Success 200 {object} object "{success: true}"
// @Failure 400 {object} object "nothing answered"
// @Failure 409 {object} object "already submitted"
// @Router /api/admin/questions/fields/submit-answer/{fieldId} [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.UserName == "" {
		req.UserName = user.Name
	}

	err := c.QuizService.Submit(ctx.Request.Context(), user.ID, ctx.Param("fieldId"), req.UserName, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNothingAnswered):
			util.BadRequest(ctx, "answer at least one question before submitting")
		case errors.Is(err, util.ErrAttemptSubmitted):
			util.Conflict(ctx, "attempt already submitted")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"success": true})
}

// Progress godoc
// @Summary Scored report for the latest completed attempt
// @Tags quiz
// @Produce  json
// @Param   fieldId path string true "field id"
// @Success 200 {object} object "{progress: {...}}"
// @Failure 404 {object} object "no completed attempt"
// @Router /api/admin/questions/fields/progress/{fieldId} [get]
func (c *QuizController) Progress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	report, err := c.QuizService.Progress(user.UserID, ctx.Param("fieldId"))
	if err != nil {
		if errors.Is(err, util.ErrNoReport) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"progress": report})
}
