package controller

import (
	"mytestbuddies_backend/internal/service"
	"mytestbuddies_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
	AuthService      *service.AuthService
}

func NewDashboardController(dashboardService *service.DashboardService, authService *service.AuthService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService, AuthService: authService}
}

// Overview godoc
// @Summary Quizzes and the caller's attempt history
// @Tags dashboard
// @Produce  json
// @Success 200 {object} service.DashboardReport
// @Router /api/quizzes [get]
func (c *DashboardController) Overview(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	report, err := c.DashboardService.Overview(user)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
