// Package api implements the dashboard HTTP API on top of Echo.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/victorakor/mall-surveillance-system/internal/camera"
	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
	"github.com/victorakor/mall-surveillance-system/internal/observability"
	"github.com/victorakor/mall-surveillance-system/internal/processor"
	"github.com/victorakor/mall-surveillance-system/internal/security"
)

// Server encapsulates the Echo server and its dependencies.
type Server struct {
	Echo     *echo.Echo
	DS       datastore.Interface
	Settings *conf.Settings
	Cameras  *camera.Manager
	Proc     *processor.Processor
	Security *security.Manager
	Metrics  *observability.Metrics
	SSE      *SSEHandler

	statusCache *statusCache

	// placeholder frame for the video feed, lazily built per server so a
	// configured placeholder never leaks between instances
	placeholderOnce sync.Once
	placeholderData []byte

	webLogger      *slog.Logger
	webLoggerClose func() error
}

// New initializes the HTTP server with the given dependencies and registers
// all routes.
func New(settings *conf.Settings, ds datastore.Interface, cameras *camera.Manager, proc *processor.Processor, sec *security.Manager, metrics *observability.Metrics, sse *SSEHandler) *Server {
	s := &Server{
		Echo:        echo.New(),
		DS:          ds,
		Settings:    settings,
		Cameras:     cameras,
		Proc:        proc,
		Security:    sec,
		Metrics:     metrics,
		SSE:         sse,
		statusCache: newStatusCache(),
	}

	s.Echo.HideBanner = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.initLogger()
	s.initMiddleware()
	s.initRoutes()

	return s
}

// initLogger sets up the web request log file when enabled.
func (s *Server) initLogger() {
	s.webLogger = logging.ForService("web")

	if !s.Settings.WebServer.Log.Enabled {
		return
	}

	fileLogger, closeFunc, err := logging.NewFileLogger(s.Settings.WebServer.Log.Path, "web", slog.LevelInfo)
	if err != nil {
		logging.Error("Failed to initialize web log file, logging to default output", "error", err)
		return
	}
	s.webLogger = fileLogger
	s.webLoggerClose = closeFunc
}

// initMiddleware attaches recovery, body limit, CORS and request logging.
func (s *Server) initMiddleware() {
	s.Echo.Use(middleware.Recover())

	// frame uploads are the largest accepted payload
	s.Echo.Use(middleware.BodyLimit("8M"))

	origins := s.Settings.WebServer.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	s.Echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if s.webLogger != nil {
				s.webLogger.Info("Request",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"remote_ip", c.RealIP(),
				)
			}
			return nil
		},
	}))
}

// Start begins listening for HTTP requests. It returns once the listener is
// running, server errors are logged asynchronously.
func (s *Server) Start() {
	go func() {
		err := s.Echo.Start(":" + s.Settings.WebServer.Port)
		if err != nil && err != http.ErrServerClosed {
			logging.Fatal("HTTP server failed", "error", err)
		}
	}()

	logging.Info("HTTP server started", "port", s.Settings.WebServer.Port)
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.webLoggerClose != nil {
		defer func() {
			if err := s.webLoggerClose(); err != nil {
				logging.Error("Failed to close web log file", "error", err)
			}
		}()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.Echo.Shutdown(shutdownCtx)
}
