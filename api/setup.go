package api

import (
	"os"
	"strings"

	auditHandlers "backend/api/handlers/audit"
	authHandlers "backend/api/handlers/auth"
	notificationHandlers "backend/api/handlers/notifications"
	submissionHandlers "backend/api/handlers/submissions"
	userHandlers "backend/api/handlers/users"
	auditpkg "backend/internal/audit"
	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	middlewarepkg "backend/internal/middleware"
	"backend/internal/notification"
	"backend/internal/submission"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppContainer 运行期依赖容器，进程启动时装配一次。
type AppContainer struct {
	DB                *gorm.DB
	JWTService        *auth.JWTService
	UserService       *user.Service
	SubmissionService *submission.Service
	AuditService      *auditpkg.Service
	Registry          *approval.Registry
	Hub               *notification.WebSocketHub
	RateLimiter       *middlewarepkg.RateLimiter
}

// Handlers 全部 HTTP 处理器
type Handlers struct {
	Auth         *authHandlers.AuthHandler
	Submission   *submissionHandlers.SubmissionHandler
	Audit        *auditHandlers.AuditHandler
	User         *userHandlers.UserHandler
	Notification *notificationHandlers.WebSocketHandler
}

// SetupRouter 装配依赖并返回 Gin 路由
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewarepkg.RequestIDMiddleware())
	router.Use(RequestLogger())
	router.Use(MetricsMiddleware())
	router.Use(CORS())

	// Redis 仅用于令牌黑名单，不可用时按配置降级
	redisClient, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis 不可用，令牌黑名单降级为关闭", zap.Error(err))
		redisClient = nil
	}

	// JWT 密钥：生产模式必须显式配置，防止使用弱默认值
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		jwtSecret = strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	}
	if jwtSecret == "" {
		if strings.EqualFold(cfg.Server.Mode, "release") {
			logger.Fatal("JWT 密钥未配置，生产环境禁止使用默认密钥")
		}
		jwtSecret = "default_jwt_secret_key_change_in_production"
		logger.Warn("JWT 密钥未配置，已回退为开发默认值，请在生产环境设置强随机密钥")
	}
	issuer := cfg.JWT.Issuer
	if issuer == "" {
		issuer = "DocFlow"
	}
	jwtService := auth.NewJWTService(jwtSecret, issuer, redisClient)

	// 审批链注册表：配置缺失时使用内置默认链
	registry, err := approval.NewRegistryFromConfig(&cfg.Approval)
	if err != nil {
		return nil, err
	}

	// 通知通道：webhook（可选）+ WebSocket 实时推送
	hub := notification.NewWebSocketHub(notification.WithHubLogger(logger.Get()))
	webhook := notification.NewWebhookNotifier(&notification.WebhookConfig{
		URL:            cfg.Notify.WebhookURL,
		TimeoutSeconds: cfg.Notify.TimeoutSeconds,
	})
	notifier := notification.NewMultiNotifier(webhook, notification.NewWebSocketNotifier(hub))

	userService := user.NewService(db)
	submissionService := submission.NewServiceWithDB(db, registry,
		submission.WithNotifier(notifier),
		submission.WithServiceLogger(logger.Get()),
	)
	auditService := auditpkg.NewService(db)

	container := &AppContainer{
		DB:                db,
		JWTService:        jwtService,
		UserService:       userService,
		SubmissionService: submissionService,
		AuditService:      auditService,
		Registry:          registry,
		Hub:               hub,
		RateLimiter:       middlewarepkg.NewRateLimiter(nil),
	}

	handlers := &Handlers{
		Auth:         authHandlers.NewAuthHandler(jwtService, userService),
		Submission:   submissionHandlers.NewSubmissionHandler(submissionService),
		Audit:        auditHandlers.NewAuditHandler(auditService),
		User:         userHandlers.NewUserHandler(userService),
		Notification: notificationHandlers.NewWebSocketHandler(hub),
	}

	// 系统端点
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router, container, handlers)

	return router, nil
}
