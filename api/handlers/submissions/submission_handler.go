package submissions

import (
	"errors"
	"net/http"

	response "backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/submission"

	"github.com/gin-gonic/gin"
)

// SubmissionHandler 提交单处理器
type SubmissionHandler struct {
	service *submission.Service
}

// NewSubmissionHandler 创建提交单处理器
func NewSubmissionHandler(service *submission.Service) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Create 创建草稿提交单
// @Summary 创建提交单
// @Tags Submissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateSubmissionRequest true "提交单内容"
// @Success 201 {object} SubmissionView
// @Failure 422 {object} response.ErrorResponse
// @Router /api/submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	sub, err := h.service.Create(c.Request.Context(), caller, &submission.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Department:  req.Department,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toView(sub))
}

// Submit 将草稿送审
// @Summary 提交单送审
// @Tags Submissions
// @Security BearerAuth
// @Produce json
// @Param id path string true "提交单 ID"
// @Success 200 {object} SubmissionView
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/submissions/{id}/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	sub, err := h.service.SubmitForApproval(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toView(sub))
}

// Approve 批准当前角色的待审步骤
// @Summary 批准审批步骤
// @Tags Submissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "提交单 ID"
// @Param request body DecisionRequest false "批准备注"
// @Success 200 {object} SubmissionView
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/submissions/{id}/approve [post]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	var req DecisionRequest
	_ = c.ShouldBindJSON(&req) // 批准时请求体可为空

	sub, err := h.service.Approve(c.Request.Context(), c.Param("id"), caller, req.Note)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toView(sub))
}

// Reject 拒绝当前角色的待审步骤，整单立即终态。
// @Summary 拒绝审批步骤
// @Tags Submissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "提交单 ID"
// @Param request body DecisionRequest true "拒绝原因"
// @Success 200 {object} SubmissionView
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/submissions/{id}/reject [post]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	var req DecisionRequest
	_ = c.ShouldBindJSON(&req)

	sub, err := h.service.Reject(c.Request.Context(), c.Param("id"), caller, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toView(sub))
}

// GetDetails 读取提交单完整聚合
// @Summary 提交单详情
// @Tags Submissions
// @Security BearerAuth
// @Produce json
// @Param id path string true "提交单 ID"
// @Success 200 {object} SubmissionView
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/submissions/{id} [get]
func (h *SubmissionHandler) GetDetails(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	sub, err := h.service.GetDetails(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toView(sub))
}

// List 列出调用方发起的提交单
// @Summary 我发起的提交单
// @Tags Submissions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	subs, err := h.service.ListForRequester(c.Request.Context(), caller)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: toViews(subs)})
}

// ListPending 列出等待调用方角色审批的提交单
// @Summary 我的待审列表
// @Tags Submissions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/submissions/pending [get]
func (h *SubmissionHandler) ListPending(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	subs, err := h.service.ListPendingForRole(c.Request.Context(), caller)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: toViews(subs)})
}

// callerFrom 从认证上下文构造调用身份，缺失时直接 401。
func callerFrom(c *gin.Context) (submission.Caller, bool) {
	uc, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "unauthorized"})
		return submission.Caller{}, false
	}
	return submission.Caller{ID: uc.UserID, Name: uc.Name, Role: uc.Role}, true
}

// writeServiceError 把工作流错误映射为 HTTP 状态码。
//
// 持久化错误的根因只在服务端日志可见，对外统一 500。
func writeServiceError(c *gin.Context, err error) {
	var verr *submission.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, response.ErrorResponse{Success: false, Code: verr.Field, Message: verr.Message})
	case errors.Is(err, submission.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, submission.ErrUnauthorized):
		c.JSON(http.StatusForbidden, response.ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, submission.ErrNoPendingStep):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, submission.ErrConflict):
		c.JSON(http.StatusConflict, response.ErrorResponse{Success: false, Message: "submission was modified concurrently, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "internal server error"})
	}
}
