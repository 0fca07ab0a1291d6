package audit

import (
	"net/http"

	response "backend/api/handlers/common"
	auditpkg "backend/internal/audit"
	"backend/internal/approval"
	"backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuditHandler 活动日志处理器
type AuditHandler struct {
	auditService *auditpkg.Service
}

// NewAuditHandler 创建活动日志处理器
func NewAuditHandler(auditService *auditpkg.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// QueryLogsRequest 查询活动日志请求
type QueryLogsRequest struct {
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id"`
	Action       string `json:"action"`
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
}

// QueryLogs 查询活动日志
// @Summary 查询活动日志
// @Tags Audit
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body QueryLogsRequest true "查询条件"
// @Success 200 {object} response.ListResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/audit/logs/query [post]
func (h *AuditHandler) QueryLogs(c *gin.Context) {
	var req QueryLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "unauthorized"})
		return
	}

	query := &auditpkg.Query{
		SubmissionID: req.SubmissionID,
		Action:       req.Action,
		Page:         req.Page,
		PageSize:     req.PageSize,
	}

	// 非管理员只能查看自己产生的日志
	if !approval.IsAdmin(userCtx.Role) {
		query.UserID = userCtx.UserID
	} else {
		query.UserID = req.UserID
	}

	logs, total, err := h.auditService.QueryLogs(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "查询失败"})
		return
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	totalPage := int((total + int64(pageSize) - 1) / int64(pageSize))

	c.JSON(http.StatusOK, response.ListResponse{
		Items: logs,
		Pagination: response.PaginationMeta{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: totalPage,
		},
	})
}
