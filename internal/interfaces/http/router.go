package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/authcore/internal/application/bus"
	app "github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/interfaces/http/handlers"
	"github.com/turtacn/authcore/internal/interfaces/http/middleware"
	"github.com/turtacn/authcore/pkg/logger"
)

// PermissionAdminManage guards the operator routes.
const PermissionAdminManage = "ADMIN_MANAGE"

// RouterDeps 路由器依赖
type RouterDeps struct {
	Config   config.ServerConfig
	Logger   logger.Logger
	Tracer   trace.Tracer
	Metrics  middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
	Commands *bus.CommandBus
	Queries  *bus.QueryBus
	Tokens   middleware.AccessTokenValidator
	Checkers map[string]handlers.Checker
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	config config.ServerConfig
	logger logger.Logger
	server *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(deps RouterDeps) *Router {
	engine := gin.New()
	r := &Router{
		engine: engine,
		config: deps.Config,
		logger: deps.Logger.WithComponent("http"),
	}
	r.setupRoutes(deps)
	r.server = &http.Server{
		Addr:           deps.Config.Addr(),
		Handler:        engine,
		ReadTimeout:    deps.Config.ReadTimeout,
		WriteTimeout:   deps.Config.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes(deps RouterDeps) {
	// 全局中间件
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Observability(deps.Tracer, deps.Metrics))
	r.engine.Use(middleware.AccessLog(r.logger))

	// CORS 配置；未配置来源时不启用
	if len(r.config.AllowedOrigins) > 0 {
		r.engine.Use(cors.New(cors.Config{
			AllowOrigins:     r.config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Remaining", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	healthHandler := handlers.NewHealthHandler(deps.Checkers, r.logger)
	authHandler := handlers.NewAuthHandler(deps.Commands, r.logger)
	authzHandler := handlers.NewAuthzHandler(deps.Queries, r.logger)
	adminHandler := handlers.NewAdminHandler(deps.Commands, r.logger)
	bearer := middleware.BearerAuth(deps.Tokens, r.logger)

	// 健康检查与指标（不需要认证）
	r.engine.GET("/healthz", healthHandler.HealthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	if r.config.EnablePprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/v1")
	{
		// 认证相关路由；登录的限流在命令处理器内按 IP 与用户两个维度进行
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", middleware.RateLimitByIP(deps.Queries, app.EndpointRefresh, r.logger), authHandler.Refresh)
		}

		// 授权查询路由（需要认证）
		authz := v1.Group("/authz")
		authz.Use(bearer)
		{
			authz.GET("/check", authzHandler.Check)
			authz.GET("/permissions", authzHandler.Permissions)
		}

		// 管理路由（需要 ADMIN_MANAGE 权限）
		admin := v1.Group("/admin")
		admin.Use(bearer, middleware.RequirePermission(deps.Queries, PermissionAdminManage, r.logger))
		{
			admin.DELETE("/users/:id/cache", adminHandler.InvalidateUserCache)
			admin.POST("/blocks", adminHandler.Block)
			admin.DELETE("/blocks", adminHandler.Unblock)
			admin.POST("/usernames", adminHandler.GenerateUsername)
		}
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Handler 返回路由处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Start 启动 HTTP 服务器，阻塞直到服务器关闭
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", r.config.Addr()))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (r *Router) Shutdown(ctx context.Context) error {
	r.logger.Info(ctx, "Shutting down HTTP server")
	return r.server.Shutdown(ctx)
}

//Personal.AI order the ending
