package api

import (
	"backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	// 认证 API（公开，不需要 JWT）
	registerAuthRoutes(router, container, handlers)

	// 主 API 组
	api := router.Group("/api")
	api.Use(container.RateLimiter.Middleware(), auth.AuthMiddleware(container.JWTService))
	registerAPIRoutes(api, handlers)

	// 版本化 API 组
	apiV1 := router.Group("/api/v1")
	apiV1.Use(container.RateLimiter.Middleware(), auth.AuthMiddleware(container.JWTService))
	registerAPIRoutes(apiV1, handlers)
}

// registerAuthRoutes 注册认证相关路由（公开）
func registerAuthRoutes(router *gin.Engine, c *AppContainer, h *Handlers) {
	authGroup := router.Group("/api/auth")
	authGroup.Use(c.RateLimiter.Middleware())
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", auth.AuthMiddleware(c.JWTService), h.Auth.Me)
	}
}

// registerAPIRoutes 注册需要认证的 API 路由
func registerAPIRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	// WebSocket 实时通知
	apiGroup.GET("/ws/notifications", h.Notification.Connect)

	// 提交单工作流
	submissions := apiGroup.Group("/submissions")
	{
		submissions.POST("", h.Submission.Create)
		submissions.GET("", h.Submission.List)
		submissions.GET("/pending", h.Submission.ListPending)
		submissions.GET("/:id", h.Submission.GetDetails)
		submissions.POST("/:id/submit", h.Submission.Submit)
		submissions.POST("/:id/approve", h.Submission.Approve)
		submissions.POST("/:id/reject", h.Submission.Reject)
	}

	// 活动日志
	audit := apiGroup.Group("/audit")
	{
		audit.POST("/logs/query", h.Audit.QueryLogs)
	}

	// 用户管理（仅管理员）
	users := apiGroup.Group("/users", auth.RequireAdmin())
	{
		users.GET("", h.User.List)
	}
}
