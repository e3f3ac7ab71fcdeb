package controller

import (
	"net/http"

	"medtrain_backend/internal/service"
	"medtrain_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TrainingSessionController struct {
	SessionService *service.TrainingSessionService
}

func NewTrainingSessionController(sessionService *service.TrainingSessionService) *TrainingSessionController {
	return &TrainingSessionController{SessionService: sessionService}
}

func sessionID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid session id")
		return 0, false
	}
	return id, true
}

// @Summary 创建训练会话
// @Description 未填写的参数按用户 Mode 由平台默认值或自适应模型决定；status=SCHEDULED 时 scheduled_at 必须晚于当前时间
// @Tags 训练会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body service.CreateSessionRequest true "会话参数"
// @Success 201 {object} util.Response{data=model.TrainingSession}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/training-sessions [post]
func (c *TrainingSessionController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.SessionService.Create(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	util.Created(ctx, session)
}

// @Summary 获取训练会话
// @Description 首次访问待开始或已排期的会话会将其置为进行中
// @Tags 训练会话
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.TrainingSession}
// @Failure 404 {object} util.Response
// @Router /api/training-sessions/{id} [get]
func (c *TrainingSessionController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	session, err := c.SessionService.Get(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// @Summary 获取下一道题
// @Description 返回 {data, is_final, assistant_next}；没有可用题目时只返回空的 data
// @Tags 训练会话
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} service.Selection
// @Failure 404 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/training-sessions/{id}/questions [get]
func (c *TrainingSessionController) NextQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	sel, err := c.SessionService.NextQuestions(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	if sel.Starved() {
		ctx.JSON(http.StatusOK, gin.H{"data": []service.QuestionView{}})
		return
	}
	ctx.JSON(http.StatusOK, sel)
}

// @Summary 提交作答
// @Tags 训练会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Param attempt body service.AttemptInput true "作答内容"
// @Success 201 {object} util.Response{data=model.Progress}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/training-sessions/{id}/attempts [post]
func (c *TrainingSessionController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	var in service.AttemptInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.SessionService.SubmitAttempt(ctx.Request.Context(), user.UserID, id, in)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, progress)
}

// @Summary 完成训练会话
// @Description 计算并保存统计结果；已完成的会话会按当前作答重新计算
// @Tags 训练会话
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response{data=service.Metrics}
// @Failure 409 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/training-sessions/{id}/complete [post]
func (c *TrainingSessionController) Complete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	metrics, err := c.SessionService.Complete(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, metrics)
}

// @Summary 删除训练会话
// @Description 同时删除全部作答记录
// @Tags 训练会话
// @Produce json
// @Security BearerAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/training-sessions/{id} [delete]
func (c *TrainingSessionController) Delete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := sessionID(ctx)
	if !ok {
		return
	}

	if err := c.SessionService.Delete(ctx.Request.Context(), user.UserID, id); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
