package transport

import (
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/time/rate"

	"github.com/getHush/hushhub.go/controllers"
	"github.com/getHush/hushhub.go/lib/responses"
	"github.com/getHush/hushhub.go/lib/service"
)

// InitEcho sets up the local, read-only status API. It exposes pipeline
// diagnostics, never the message payloads themselves.
func InitEcho(c *service.Config, logger *lecho.Logger) (e *echo.Echo) {
	e = echo.New()
	e.HideBanner = true

	e.HTTPErrorHandler = responses.HTTPErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("250K"))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(c.DefaultRateLimit))))

	e.Logger = logger
	e.Use(middleware.RequestID())

	if c.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{}))
	}
	return e
}

func CreateLoggingMiddleware(logger *lecho.Logger) echo.MiddlewareFunc {
	return lecho.Middleware(lecho.Config{
		Logger: logger,
		Enricher: func(c echo.Context, logger zerolog.Context) zerolog.Context {
			return logger.Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
		},
	})
}

// RegisterEndpoints wires the status controllers into the echo app.
func RegisterEndpoints(svc *service.HushhubService, e *echo.Echo, logMw echo.MiddlewareFunc) {
	statusCtrl := controllers.NewStatusController(svc)
	accountCtrl := controllers.NewAccountController(svc)

	g := e.Group("", logMw)
	g.GET("/status", statusCtrl.Status)
	g.GET("/accounts", accountCtrl.ListAccounts)
	g.GET("/accounts/:pubkey/freshness", accountCtrl.Freshness)
	g.GET("/accounts/:pubkey/notifications", accountCtrl.Notifications)
}
