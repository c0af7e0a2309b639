package controller

import (
	"errors"

	"mytestbuddies_backend/internal/service"
	"mytestbuddies_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FieldController struct {
	FieldService *service.FieldService
}

func NewFieldController(fieldService *service.FieldService) *FieldController {
	return &FieldController{FieldService: fieldService}
}

// List godoc
// @Summary List quiz fields
// @Tags fields
// @Produce  json
// @Success 200 {array} model.Field
// @Router /api/fields [get]
func (c *FieldController) List(ctx *gin.Context) {
	fields, err := c.FieldService.List()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, fields)
}

// Create godoc
// @Summary Create a quiz field
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   body body service.FieldReq true "field"
// @Success 201 {object} model.Field
// @Router /api/admin/fields [post]
func (c *FieldController) Create(ctx *gin.Context) {
	var req service.FieldReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	field, err := c.FieldService.Create(req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, field)
}

// Update godoc
// @Summary Update a quiz field
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   id path string true "field id"
// @Param   body body service.FieldReq true "changes"
// @Success 200 {object} model.Field
// @Router /api/admin/fields/{id} [put]
func (c *FieldController) Update(ctx *gin.Context) {
	var req service.FieldReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	field, err := c.FieldService.Update(ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, util.ErrFieldNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, field)
}

// Delete godoc
// @Summary Delete a quiz field and everything under it
// @Tags admin
// @Produce  json
// @Param   id path string true "field id"
// @Success 200 {object} object "deleted"
// @Router /api/admin/fields/{id} [delete]
func (c *FieldController) Delete(ctx *gin.Context) {
	if err := c.FieldService.Delete(ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrFieldNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"success": true})
}

// Review godoc
// @Summary Field with its full question list, answers included
// @Tags admin
// @Produce  json
// @Param   id path string true "field id"
// @Success 200 {object} object
// @Router /api/admin/fields/{id}/questions [get]
func (c *FieldController) Review(ctx *gin.Context) {
	field, questions, err := c.FieldService.GetWithQuestions(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrFieldNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"field": field, "questions": questions})
}
