package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/handler"
	"github.com/iliyamo/farmhub/internal/metrics"
	"github.com/iliyamo/farmhub/internal/middleware"
)

// Handlers groups the module handlers the router mounts.
type Handlers struct {
	Auth          *handler.AuthHandler
	Farming       *handler.FarmingHandler
	Supply        *handler.SupplyHandler
	Market        *handler.MarketHandler
	Notifications *handler.NotificationHandler
	Labor         *handler.LaborHandler
}

// Options carries what the shared middleware needs.  Redis may be nil;
// the limiter then runs in memory and the response cache is skipped.
type Options struct {
	JWTSecret string
	DB        *sql.DB
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *zap.Logger
}

// New builds the Echo instance with global middleware and every route.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(o.Log))
	e.Use(metrics.Middleware())
	e.Use(middleware.NewTokenBucket(o.RateLimit, o.Redis, o.Log))

	RegisterPlatform(e, o.DB)
	RegisterAuth(e, h.Auth, o.JWTSecret)
	RegisterFarming(e, h.Farming, o.JWTSecret)
	RegisterTrade(e, h.Supply, h.Market, o)
	RegisterNotifications(e, h.Notifications, o.JWTSecret)
	RegisterLabor(e, h.Labor, o.JWTSecret)
	return e
}

// RegisterPlatform exposes the health check and Prometheus metrics.
func RegisterPlatform(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers /users.  Register, login and refresh need no
// session; logout accepts either a refresh token or a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/users")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	auth := middleware.JWTAuth(jwtSecret)
	g.GET("/me", a.Me, auth)
	g.PATCH("/me", a.UpdateMe, auth)
}

// RegisterNotifications registers the caller's inbox.  Any role may read
// its own notifications.
func RegisterNotifications(e *echo.Echo, n *handler.NotificationHandler, jwtSecret string) {
	g := e.Group("/notifications/notifications", middleware.JWTAuth(jwtSecret))
	g.GET("", n.List)
	g.GET("/unread_count", n.UnreadCount)
	g.PATCH("/read_all", n.MarkAllRead)
	g.PATCH("/:id/read", n.MarkRead)
	g.DELETE("/:id", n.Delete)
}
