package controller

import (
	"medtrain_backend/internal/model"
	"medtrain_backend/internal/service"
	"medtrain_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ModeController struct {
	ModeService *service.ModeService
}

func NewModeController(modeService *service.ModeService) *ModeController {
	return &ModeController{ModeService: modeService}
}

// @Summary 获取会话参数模式
// @Description 每个字段的 Definer：USER / ASSISTANT / ORIGINAL
// @Tags 训练设置
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.Mode}
// @Router /api/mode [get]
func (c *ModeController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	mode, err := c.ModeService.Get(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, mode)
}

// @Summary 更新会话参数模式
// @Tags 训练设置
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param mode body model.Mode true "Definer 设置"
// @Success 200 {object} util.Response{data=model.Mode}
// @Failure 400 {object} util.Response
// @Router /api/mode [put]
func (c *ModeController) Update(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var mode model.Mode
	if err := ctx.ShouldBindJSON(&mode); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	saved, err := c.ModeService.Update(ctx.Request.Context(), user.UserID, &mode)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, saved)
}
