package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shiftcare/backend/config"
	"shiftcare/backend/internal/api/handler"
	"shiftcare/backend/internal/api/middleware"
	"shiftcare/backend/pkg/jwt"
	"shiftcare/backend/pkg/metrics"
	"shiftcare/backend/pkg/redis"
)

// loginRateLimit 登录接口每 IP 每分钟的尝试次数
const loginRateLimit = 10

// Pinger 健康检查依赖（数据库 / Redis）
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps 路由需要的基础设施；Redis 与 Gatherer 可为 nil
type Deps struct {
	JWT      *jwt.Manager
	Redis    *redis.Client
	DB       Pinger
	Recorder metrics.Recorder
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// *redis.Client 为 nil 时不能直接装进接口
	var (
		blacklist middleware.BlacklistChecker
		limiter   middleware.RateLimiter
	)
	if deps.Redis != nil {
		blacklist = deps.Redis
		limiter = deps.Redis
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger, deps.Recorder))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Server.MaxBodyBytes > 0 {
		r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	}

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthHandler(deps))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit, time.Minute))
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(limiter, loginRateLimit, time.Minute), h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, blacklist, deps.Logger))
		admin := middleware.AdminOnly()
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 班次类型 / 人数下限
			authorized.GET("/shift-types", h.Shift.ListShiftTypes)
			authorized.GET("/coverage-rules", h.Coverage.ListRules)
			authorized.PUT("/coverage-rules/:code", admin, h.Coverage.UpdateRule)

			// 职员名单（写操作仅管理员）
			staff := authorized.Group("/staff")
			{
				staff.GET("", h.Staff.ListStaff)
				staff.GET("/:id", h.Staff.GetStaff)
				staff.POST("", admin, h.Staff.CreateStaff)
				staff.POST("/import", admin, h.Staff.ImportStaff)
				staff.PUT("/:id", admin, h.Staff.UpdateStaff)
				staff.DELETE("/:id", admin, h.Staff.DeleteStaff)
			}

			// 排班希望（本人或管理员，Service 层鉴权）
			authorized.GET("/requests", h.Request.ListRequests)
			authorized.PUT("/requests", h.Request.SaveRequests)

			// 设施行事
			events := authorized.Group("/events")
			{
				events.GET("", h.Event.ListEvents)
				events.POST("", admin, h.Event.CreateEvent)
				events.POST("/import", admin, h.Event.ImportEvents)
				events.PUT("/:id", admin, h.Event.UpdateEvent)
				events.DELETE("/:id", admin, h.Event.DeleteEvent)
			}

			// 排班表
			shifts := authorized.Group("/shifts")
			{
				shifts.GET("/grid", h.Shift.GetGrid)
				shifts.GET("/assignment", h.Shift.GetAssignment)
				shifts.GET("/coverage", h.Shift.GetCoverage)

				shifts.POST("/generate", admin, h.Shift.Generate)
				shifts.POST("/jobs", admin, h.Shift.StartJob)
				shifts.GET("/jobs/:id", admin, h.Shift.GetJob)
				shifts.DELETE("/jobs/:id", admin, h.Shift.CancelJob)
				shifts.PUT("/assignment", admin, h.Shift.SetAssignment)
				shifts.POST("/publish", admin, h.Shift.Publish)
			}
		}
	}

	return r
}

// healthHandler 数据库不可用时返回 503；Redis 仅报告状态
func healthHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "db": "ok"}
		code := http.StatusOK
		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				deps.Logger.Warn("健康检查: 数据库不可用", zap.Error(err))
				status["status"], status["db"] = "degraded", "down"
				code = http.StatusServiceUnavailable
			}
		}
		switch {
		case deps.Redis == nil:
			status["redis"] = "disabled"
		case deps.Redis.Ping(ctx) != nil:
			status["redis"] = "down"
		default:
			status["redis"] = "ok"
		}
		c.JSON(code, status)
	}
}
