// handlers.go: dashboard API handlers.
package api

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/errors"
)

// maxUploadSize caps a single uploaded frame.
const maxUploadSize = 8 << 20

// feedFrameInterval is how often the MJPEG feed emits the latest frame.
const feedFrameInterval = 100 * time.Millisecond

// statusCache memoizes the dashboard snapshot so a busy dashboard does not
// hammer the database.
type statusCache struct {
	cache *cache.Cache
}

const statusCacheKey = "snapshot"

func newStatusCache() *statusCache {
	return &statusCache{
		cache: cache.New(5*time.Second, time.Minute),
	}
}

func (sc *statusCache) get() (datastore.DashboardSnapshot, bool) {
	value, found := sc.cache.Get(statusCacheKey)
	if !found {
		return datastore.DashboardSnapshot{}, false
	}
	snapshot, ok := value.(datastore.DashboardSnapshot)
	return snapshot, ok
}

func (sc *statusCache) set(snapshot datastore.DashboardSnapshot) {
	sc.cache.Set(statusCacheKey, snapshot, cache.DefaultExpiration)
}

func (sc *statusCache) invalidate() {
	sc.cache.Delete(statusCacheKey)
}

// handleStatus returns the dashboard snapshot: running state, threat level,
// active camera count and the most recent alerts of the day.
// API: GET /api/status
func (s *Server) handleStatus(c echo.Context) error {
	if snapshot, ok := s.statusCache.get(); ok {
		return c.JSON(http.StatusOK, snapshot)
	}

	state, err := s.DS.GetSystemState()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read system state")
	}
	// the processor holds the live threat level, the stored one may lag a tick
	if s.Proc != nil {
		state.ThreatLevel = s.Proc.ThreatLevel()
	}

	count, err := s.DS.ActiveCameraCount()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count cameras")
	}

	limit := s.Settings.Realtime.Alerts.SnapshotLimit
	if limit <= 0 {
		limit = 3
	}
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	alerts, err := s.DS.AlertsSince(midnight, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read alerts")
	}
	if alerts == nil {
		alerts = []datastore.Alert{}
	}

	snapshot := datastore.DashboardSnapshot{
		Status:        state.Running,
		ThreatLevel:   state.ThreatLevel,
		CamerasActive: count,
		AlertsToday:   alerts,
	}
	s.statusCache.set(snapshot)

	return c.JSON(http.StatusOK, snapshot)
}

// handleStartCameras starts the capture pipeline.
// API: POST /api/start_cameras
func (s *Server) handleStartCameras(c echo.Context) error {
	started, err := s.Cameras.StartAll(context.Background())
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	s.Metrics.SetActiveWorkers(s.Cameras.ActiveCount())
	s.statusCache.invalidate()

	return c.JSON(http.StatusOK, map[string]any{
		"status":        "started",
		"camerasActive": started,
	})
}

// handleStopCameras stops the capture pipeline.
// API: POST /api/stop_cameras
func (s *Server) handleStopCameras(c echo.Context) error {
	s.Cameras.StopAll()
	s.Metrics.SetActiveWorkers(0)
	s.statusCache.invalidate()

	return c.JSON(http.StatusOK, map[string]string{"status": "stopped"})
}

// handleCheckStopCameras stops the pipeline when no admin session remains,
// so an abandoned dashboard does not keep cameras running forever.
// API: POST /api/check_stop_cameras
func (s *Server) handleCheckStopCameras(c echo.Context) error {
	activeAdmins := s.Security.ActiveAdmins()
	stopped := false

	if activeAdmins == 0 && s.Cameras.Running() {
		s.Cameras.StopAll()
		s.Metrics.SetActiveWorkers(0)
		s.statusCache.invalidate()
		stopped = true
	}

	return c.JSON(http.StatusOK, map[string]any{
		"stopped":      stopped,
		"activeAdmins": activeAdmins,
	})
}

// handleListCameras returns all registered cameras.
// API: GET /api/cameras
func (s *Server) handleListCameras(c echo.Context) error {
	cameras, err := s.DS.ListCameras()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list cameras")
	}
	if cameras == nil {
		cameras = []datastore.Camera{}
	}
	return c.JSON(http.StatusOK, cameras)
}

type addCameraRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// handleAddCamera registers a new camera. When the pipeline is running a
// worker is started for it immediately.
// API: POST /api/cameras
func (s *Server) handleAddCamera(c echo.Context) error {
	var req addCameraRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Source == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and source are required")
	}

	cam, err := s.DS.AddCamera(req.Name, req.Source)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, "failed to add camera")
	}

	s.Cameras.StartCamera(context.Background(), &cam)
	s.Metrics.SetActiveWorkers(s.Cameras.ActiveCount())
	s.statusCache.invalidate()

	return c.JSON(http.StatusCreated, cam)
}

// handleVideoFeed streams the latest frames of a camera as MJPEG. A
// placeholder image is served while no frame is available.
// API: GET /api/video_feed?camera=<id>
func (s *Server) handleVideoFeed(c echo.Context) error {
	cameraID := c.QueryParam("camera")
	if cameraID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "camera is required")
	}

	c.Response().Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")
	c.Response().WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	ticker := time.NewTicker(feedFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			data := s.feedFrame(cameraID)
			if len(data) == 0 {
				continue
			}
			if _, err := fmt.Fprintf(c.Response(),
				"--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
				return nil
			}
			if _, err := c.Response().Write(data); err != nil {
				return nil
			}
			if _, err := io.WriteString(c.Response(), "\r\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}

// feedFrame returns the latest frame for the camera or the placeholder.
func (s *Server) feedFrame(cameraID string) []byte {
	if frame, ok := s.Cameras.Buffer().Latest(cameraID); ok {
		return frame.Data
	}
	return s.placeholderFrame()
}

// placeholderFrame loads the configured placeholder JPEG, falling back to a
// generated gray frame when none is configured.
func (s *Server) placeholderFrame() []byte {
	s.placeholderOnce.Do(func() {
		if path := s.Settings.Realtime.Cameras.FeedPlacehold; path != "" {
			if data, err := os.ReadFile(path); err == nil {
				s.placeholderData = data
				return
			}
		}

		img := image.NewRGBA(image.Rect(0, 0, 640, 360))
		gray := color.RGBA{R: 40, G: 40, B: 40, A: 255}
		for y := 0; y < 360; y++ {
			for x := 0; x < 640; x++ {
				img.SetRGBA(x, y, gray)
			}
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 60}); err == nil {
			s.placeholderData = buf.Bytes()
		}
	})
	return s.placeholderData
}

// handleUploadFrame accepts a frame pushed by an external camera client and
// runs it through the detection pipeline.
// API: POST /api/upload_frame
func (s *Server) handleUploadFrame(c echo.Context) error {
	cameraID := c.QueryParam("camera_id")
	if cameraID == "" {
		cameraID = c.FormValue("camera_id")
	}
	if cameraID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "camera_id is required")
	}

	frame, err := readUploadedFrame(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing frame data")
	}

	result, err := s.Cameras.Ingest(cameraID, frame)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryImageDecode) {
			return echo.NewHTTPError(http.StatusBadRequest, "frame is not a valid JPEG")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "frame processing failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"cameraId":    cameraID,
		"detections":  result.Results,
		"threatLevel": result.ThreatLevel,
	})
}

// readUploadedFrame reads the frame from a multipart form file or the raw
// request body.
func readUploadedFrame(c echo.Context) ([]byte, error) {
	if fileHeader, err := c.FormFile("frame"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxUploadSize))
	}

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadSize))
	if err != nil || len(data) == 0 {
		return nil, fmt.Errorf("empty frame upload")
	}
	return data, nil
}

// handleRecentDetections returns the most recent detections.
// API: GET /api/detections/recent?limit=<n>
func (s *Server) handleRecentDetections(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	detections, err := s.DS.GetRecentDetections(limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read detections")
	}
	if detections == nil {
		detections = []datastore.Detection{}
	}
	return c.JSON(http.StatusOK, detections)
}

type resolveAlertRequest struct {
	DetectionID uint   `json:"detectionId"`
	Action      string `json:"action"`
}

// handleResolveAlert marks a detection verified or dismissed.
// API: POST /api/alerts/resolve
func (s *Server) handleResolveAlert(c echo.Context) error {
	var req resolveAlertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var status string
	switch req.Action {
	case "verify":
		status = datastore.StatusVerified
	case "dismiss":
		status = datastore.StatusDismissed
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "action must be verify or dismiss")
	}

	if err := s.DS.UpdateDetectionStatus(req.DetectionID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "detection not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update detection")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"detectionId": req.DetectionID,
		"status":      status,
	})
}

type userLanguageRequest struct {
	Language string `json:"language"`
}

// handleUserLanguage stores the language preference of the current user.
// API: POST /api/user_language
func (s *Server) handleUserLanguage(c echo.Context) error {
	var req userLanguageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Language == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "language is required")
	}

	session := currentSession(c)
	if err := s.DS.SetUserLanguage(session.UID, req.Language); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update language")
	}

	return c.JSON(http.StatusOK, map[string]string{"language": req.Language})
}

type addUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Language string `json:"language"`
}

// handleAddUser registers a new dashboard user.
// API: POST /api/add_user
func (s *Server) handleAddUser(c echo.Context) error {
	var req addUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	role := req.Role
	if role == "" {
		role = datastore.RolePersonnel
	}
	if role != datastore.RoleAdmin && role != datastore.RolePersonnel {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be admin or personnel")
	}

	hash, err := s.Security.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to hash password")
	}

	user := datastore.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.DS.CreateUser(&user); err != nil {
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	}

	return c.JSON(http.StatusCreated, userResponse{
		UID:      user.UID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		Language: user.Language,
	})
}

// handleHealth reports liveness and build information.
// API: GET /api/health
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   s.Settings.Version,
		"buildDate": s.Settings.BuildDate,
	})
}
