package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	echoapi "go.pilab.hu/flow/api/echo"
	"go.pilab.hu/flow/config"
	"go.pilab.hu/flow/mongodb"
)

// NewHTTPServer creates and configures the Echo HTTP server hosting the flow
// session API.
func NewHTTPServer(cfg *config.ServerConfig, flowAPI *echoapi.FlowAPI) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.OtelServiceName))
	e.Use(requestLogger())

	flowAPI.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		if cfg.StateStore == config.StateStoreMongo {
			if err := mongodb.Ping(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// requestLogger logs each request with zerolog structured fields.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Attach the logger so downstream log.Ctx(ctx) calls resolve to it.
			ctx := log.Logger.WithContext(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			evt := log.Info()
			if err != nil {
				evt = log.Error().Err(err)
			}
			evt.
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}
