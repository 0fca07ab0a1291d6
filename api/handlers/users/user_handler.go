package users

import (
	"net/http"

	response "backend/api/handlers/common"
	"backend/internal/approval"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理处理器（仅管理员）
type UserHandler struct {
	userService *user.Service
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(userService *user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserView 用户视图
type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	RoleLabel string `json:"role_label"`
}

// List 列出全部用户
// @Summary 用户列表
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /api/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "查询用户失败"})
		return
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role,
			RoleLabel: approval.RoleLabel(u.Role),
		})
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: views})
}
