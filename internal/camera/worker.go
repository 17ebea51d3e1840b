package camera

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/detection"
)

// FrameDetector runs object detection on a single JPEG frame.
type FrameDetector interface {
	DetectFrame(frame []byte) (*detection.FrameResult, error)
}

// Consumer receives the results of every processed frame. The realtime
// processor implements this.
type Consumer interface {
	ProcessFrame(cameraID string, result *detection.FrameResult)
}

// Worker pulls frames from a single camera source, runs detection on them and
// forwards the results downstream.
type Worker struct {
	CameraID string
	Name     string

	source   Source
	detector FrameDetector
	consumer Consumer
	buffer   *FrameBuffer
	settings *conf.Settings
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewWorker creates a stopped worker for the camera.
func NewWorker(cameraID, name string, source Source, detector FrameDetector, consumer Consumer, buffer *FrameBuffer, settings *conf.Settings, logger *slog.Logger) *Worker {
	return &Worker{
		CameraID: cameraID,
		Name:     name,
		source:   source,
		detector: detector,
		consumer: consumer,
		buffer:   buffer,
		settings: settings,
		logger:   logger,
	}
}

// Start launches the capture loop. Starting a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(ctx)
}

// Stop cancels the capture loop and waits for it to exit. Stopping a stopped
// worker is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the capture loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.source.Close()
	defer w.buffer.Drop(w.CameraID)

	interval := time.Duration(w.settings.Realtime.Cameras.FrameInterval) * time.Millisecond
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	backoff := time.Duration(w.settings.Realtime.Cameras.ReadBackoff) * time.Millisecond
	if backoff <= 0 {
		backoff = time.Second
	}

	if w.logger != nil {
		w.logger.Info("Camera worker started", "camera_id", w.CameraID, "name", w.Name)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if w.logger != nil {
				w.logger.Info("Camera worker stopped", "camera_id", w.CameraID)
			}
			return
		case <-ticker.C:
			if !w.processOnce(ctx) {
				// failed read, back off before the next attempt
				select {
				case <-ctx.Done():
				case <-time.After(backoff):
				}
			}
		}
	}
}

// processOnce pulls and processes a single frame. It returns false when the
// source read failed.
func (w *Worker) processOnce(ctx context.Context) bool {
	frame, err := w.source.NextFrame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if w.logger != nil {
			w.logger.Warn("Frame read failed", "camera_id", w.CameraID, "error", err)
		}
		return false
	}

	result, err := w.detector.DetectFrame(frame)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("Frame detection failed", "camera_id", w.CameraID, "error", err)
		}
		return true
	}

	if len(result.Annotated) > 0 {
		w.buffer.Update(w.CameraID, result.Annotated, true)
	} else {
		w.buffer.Update(w.CameraID, frame, false)
	}

	if w.consumer != nil && len(result.Results) > 0 {
		w.consumer.ProcessFrame(w.CameraID, result)
	}
	return true
}
