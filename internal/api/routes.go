// routes.go: route registration for the dashboard API.
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// initRoutes registers all API routes. Routes fall into three tiers: public,
// authenticated and admin-only.
func (s *Server) initRoutes() {
	e := s.Echo

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	api := e.Group("/api")

	// public, check_stop_cameras is called from navigator.sendBeacon on
	// tab close and carries no token
	api.POST("/auth/login", s.handleLogin)
	api.GET("/health", s.handleHealth)
	api.POST("/check_stop_cameras", s.handleCheckStopCameras)

	// authenticated
	api.POST("/auth/logout", s.handleLogout, s.requireAuth)
	api.GET("/status", s.handleStatus, s.requireAuth)
	api.GET("/stream", s.SSE.ServeSSE, s.requireAuth,
		middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(5)))
	api.GET("/video_feed", s.handleVideoFeed, s.requireAuth)
	api.GET("/cameras", s.handleListCameras, s.requireAuth)
	api.GET("/detections/recent", s.handleRecentDetections, s.requireAuth)
	api.POST("/upload_frame", s.handleUploadFrame, s.requireAuth)
	api.POST("/user_language", s.handleUserLanguage, s.requireAuth)

	// admin only
	api.POST("/start_cameras", s.handleStartCameras, s.requireAdmin)
	api.POST("/stop_cameras", s.handleStopCameras, s.requireAdmin)
	api.POST("/cameras", s.handleAddCamera, s.requireAdmin)
	api.POST("/alerts/resolve", s.handleResolveAlert, s.requireAdmin)
	api.POST("/add_user", s.handleAddUser, s.requireAdmin)
}
