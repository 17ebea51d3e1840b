package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/detection"
	"github.com/victorakor/mall-surveillance-system/internal/errors"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
)

// SourceFactory builds a frame source for a camera source URL. Tests swap
// this out to avoid network access.
type SourceFactory func(url string) Source

// Manager owns the set of capture workers, one per active camera. StartAll
// and StopAll are idempotent so repeated dashboard requests cannot double
// start the pipeline.
type Manager struct {
	settings  *conf.Settings
	store     datastore.Interface
	detector  FrameDetector
	consumer  Consumer
	buffer    *FrameBuffer
	newSource SourceFactory
	logger    *slog.Logger

	mu      sync.Mutex
	workers map[string]*Worker
	running bool
}

// NewManager creates a manager with no running workers.
func NewManager(settings *conf.Settings, store datastore.Interface, detector FrameDetector, consumer Consumer) *Manager {
	return &Manager{
		settings:  settings,
		store:     store,
		detector:  detector,
		consumer:  consumer,
		buffer:    NewFrameBuffer(),
		newSource: NewHTTPSource,
		workers:   make(map[string]*Worker),
		logger:    logging.ForService("camera"),
	}
}

// SetSourceFactory overrides how frame sources are built.
func (m *Manager) SetSourceFactory(factory SourceFactory) {
	m.newSource = factory
}

// Buffer returns the shared latest-frame buffer.
func (m *Manager) Buffer() *FrameBuffer {
	return m.buffer
}

// StartAll starts a worker for every active camera. When the store holds no
// cameras the configured default sources are registered first. Calling
// StartAll while running is a no-op.
func (m *Manager) StartAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return len(m.workers), nil
	}

	cameras, err := m.store.ListCameras()
	if err != nil {
		return 0, err
	}

	if len(cameras) == 0 {
		cameras, err = m.seedDefaultCameras()
		if err != nil {
			return 0, err
		}
	}

	started := 0
	for i := range cameras {
		cam := cameras[i]
		if !cam.Active {
			continue
		}
		worker := NewWorker(cam.CameraID, cam.Name, m.newSource(cam.Source), m.detector, m.consumer, m.buffer, m.settings, m.logger)
		worker.Start(ctx)
		m.workers[cam.CameraID] = worker
		started++
	}

	if started == 0 {
		return 0, errors.Newf("no active cameras to start").
			Component("camera").
			Category(errors.CategoryState).
			Build()
	}

	m.running = true
	if err := m.store.SetSystemRunning(true); err != nil && m.logger != nil {
		m.logger.Error("Failed to persist running state", "error", err)
	}
	if m.logger != nil {
		m.logger.Info("Surveillance started", "cameras", started)
	}
	return started, nil
}

// seedDefaultCameras registers the configured default sources.
func (m *Manager) seedDefaultCameras() ([]datastore.Camera, error) {
	sources := m.settings.Realtime.Cameras.Sources
	if len(sources) == 0 {
		return nil, errors.Newf("no cameras registered and no default sources configured").
			Component("camera").
			Category(errors.CategoryConfiguration).
			Build()
	}

	cameras := make([]datastore.Camera, 0, len(sources))
	for i, source := range sources {
		cam, err := m.store.AddCamera(fmt.Sprintf("Camera %d", i+1), source)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, cam)
	}
	if m.logger != nil {
		m.logger.Info("Registered default cameras", "count", len(cameras))
	}
	return cameras, nil
}

// StopAll stops every worker and waits for their loops to exit. Calling
// StopAll while stopped is a no-op.
func (m *Manager) StopAll() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	workers := make([]*Worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.workers = make(map[string]*Worker)
	m.running = false
	m.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}

	if err := m.store.SetSystemRunning(false); err != nil && m.logger != nil {
		m.logger.Error("Failed to persist stopped state", "error", err)
	}
	if m.logger != nil {
		m.logger.Info("Surveillance stopped", "cameras", len(workers))
	}
}

// StartCamera starts a worker for a newly registered camera when the
// pipeline is already running.
func (m *Manager) StartCamera(ctx context.Context, cam *datastore.Camera) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if _, exists := m.workers[cam.CameraID]; exists {
		return
	}
	worker := NewWorker(cam.CameraID, cam.Name, m.newSource(cam.Source), m.detector, m.consumer, m.buffer, m.settings, m.logger)
	worker.Start(ctx)
	m.workers[cam.CameraID] = worker
}

// Running reports whether the pipeline is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ActiveCount returns the number of running workers.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// Ingest processes a frame pushed by an external client, for cameras that
// upload frames instead of being pulled. The frame passes through the same
// detection and consumer path as pulled frames.
func (m *Manager) Ingest(cameraID string, frame []byte) (*detection.FrameResult, error) {
	result, err := m.detector.DetectFrame(frame)
	if err != nil {
		return nil, err
	}

	if len(result.Annotated) > 0 {
		m.buffer.Update(cameraID, result.Annotated, true)
	} else {
		m.buffer.Update(cameraID, frame, false)
	}

	if m.consumer != nil && len(result.Results) > 0 {
		m.consumer.ProcessFrame(cameraID, result)
	}
	return result, nil
}
