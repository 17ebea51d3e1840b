// Package processor turns raw frame detections into persisted detections,
// dashboard alerts and the system threat level.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/detection"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
	"github.com/victorakor/mall-surveillance-system/internal/observability"
)

// Event names pushed to connected stream clients.
const (
	EventPendingDetection = "pending_detection"
	EventHighThreat       = "high_threat"
	EventThreatLevel      = "threat_level"
)

// Broadcaster pushes named events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// AlertPublisher publishes alerts to an external broker.
type AlertPublisher interface {
	Publish(ctx context.Context, topic, payload string) error
	IsConnected() bool
}

// PendingDetection represents a single detection held in memory, including a
// deadline for flushing it to the worker queue. Holding detections briefly
// lets a later, higher-confidence sighting of the same label replace an
// earlier one before anything is persisted.
type PendingDetection struct {
	CameraID      string
	Result        detection.Result
	Confidence    float64
	FirstDetected time.Time // time the detection was first seen
	LastUpdated   time.Time // last time this detection was updated
	FlushDeadline time.Time // deadline by which the detection must be processed
}

// Processor consumes frame results from the camera workers.
type Processor struct {
	Settings     *conf.Settings
	Ds           datastore.Interface
	EventTracker *EventTracker
	Broadcaster  Broadcaster
	Publisher    AlertPublisher
	Metrics      *observability.Metrics

	logger            *slog.Logger
	detectionLog      *slog.Logger
	detectionLogClose func() error

	// pendingDetections is keyed by camera/label pair
	mu                sync.Mutex
	pendingDetections map[string]PendingDetection
	threatLevel       string
	lastHighThreat    time.Time

	workerQueue chan Task
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New creates a processor and starts its worker pool and flusher.
func New(settings *conf.Settings, ds datastore.Interface, broadcaster Broadcaster, publisher AlertPublisher, metrics *observability.Metrics) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	dedupInterval := time.Duration(settings.Realtime.Alerts.DedupInterval) * time.Second
	if dedupInterval <= 0 {
		dedupInterval = 30 * time.Second
	}

	p := &Processor{
		Settings:          settings,
		Ds:                ds,
		EventTracker:      NewEventTracker(dedupInterval),
		Broadcaster:       broadcaster,
		Publisher:         publisher,
		Metrics:           metrics,
		logger:            logging.ForService("processor"),
		detectionLog:      logging.ForService("detections"),
		pendingDetections: make(map[string]PendingDetection),
		threatLevel:       datastore.ThreatLow,
		workerQueue:       make(chan Task, 100),
		ctx:               ctx,
		cancel:            cancel,
	}

	if settings.Realtime.Log.Enabled && settings.Realtime.Log.Path != "" {
		fileLogger, closeFunc, err := logging.NewFileLogger(settings.Realtime.Log.Path, "detections", slog.LevelInfo)
		if err == nil {
			p.detectionLog = fileLogger
			p.detectionLogClose = closeFunc
		} else if p.logger != nil {
			p.logger.Error("Failed to open detection log file", "path", settings.Realtime.Log.Path, "error", err)
		}
	}

	p.startWorkerPool(4)
	p.startPendingFlusher()

	return p
}

// Shutdown stops the flusher and worker pool and waits for them to exit.
func (p *Processor) Shutdown() {
	p.cancel()
	p.wg.Wait()
	if p.detectionLogClose != nil {
		if err := p.detectionLogClose(); err != nil && p.logger != nil {
			p.logger.Error("Failed to close detection log file", "error", err)
		}
	}
}

// pendingKey builds the map key for a camera/label pair.
func pendingKey(cameraID, label string) string {
	return cameraID + "/" + label
}

// ProcessFrame examines the detections of a single frame, updating held
// detections with new or higher-confidence instances and raising the system
// threat level when the frame contains a high-threat label.
func (p *Processor) ProcessFrame(cameraID string, frame *detection.FrameResult) {
	p.Metrics.RecordFrame(cameraID)

	flushDelay := time.Duration(p.Settings.Realtime.Alerts.FlushDelay) * time.Second
	if flushDelay <= 0 {
		flushDelay = 12 * time.Second
	}
	now := time.Now()

	p.mu.Lock()
	for i := range frame.Results {
		result := frame.Results[i]
		key := pendingKey(cameraID, result.Label)

		pending, exists := p.pendingDetections[key]
		if exists && result.Confidence <= pending.Confidence {
			continue
		}

		firstDetected := now
		flushDeadline := firstDetected.Add(flushDelay)
		if exists {
			// keep the original first-seen time and deadline, an update
			// never extends the flush window
			firstDetected = pending.FirstDetected
			flushDeadline = pending.FlushDeadline
		} else if p.logger != nil {
			p.logger.Info("New detection",
				"camera_id", cameraID,
				"label", result.Label,
				"confidence", result.Confidence,
			)
		}

		p.pendingDetections[key] = PendingDetection{
			CameraID:      cameraID,
			Result:        result,
			Confidence:    result.Confidence,
			FirstDetected: firstDetected,
			LastUpdated:   now,
			FlushDeadline: flushDeadline,
		}
	}
	p.mu.Unlock()

	if frame.ThreatLevel == detection.ThreatHigh {
		p.raiseThreat(cameraID, frame)
	}
}

// ThreatLevel returns the current arbitrated system threat level.
func (p *Processor) ThreatLevel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threatLevel
}

// raiseThreat marks the system threat level high and notifies clients on the
// low to high transition.
func (p *Processor) raiseThreat(cameraID string, frame *detection.FrameResult) {
	p.mu.Lock()
	p.lastHighThreat = time.Now()
	changed := p.threatLevel != datastore.ThreatHigh
	p.threatLevel = datastore.ThreatHigh
	p.mu.Unlock()

	if !changed {
		return
	}

	if err := p.Ds.SetThreatLevel(datastore.ThreatHigh); err != nil && p.logger != nil {
		p.logger.Error("Failed to persist threat level", "error", err)
	}

	labels := make([]string, 0, len(frame.Results))
	for i := range frame.Results {
		if frame.Results[i].ThreatLevel == detection.ThreatHigh {
			labels = append(labels, frame.Results[i].Label)
		}
	}

	if p.logger != nil {
		p.logger.Warn("Threat level raised to high", "camera_id", cameraID, "labels", labels)
	}
	if p.Broadcaster != nil {
		p.Broadcaster.Broadcast(EventHighThreat, map[string]any{
			"cameraId":    cameraID,
			"threatLevel": datastore.ThreatHigh,
			"labels":      labels,
		})
	}
}

// startPendingFlusher runs a goroutine that periodically flushes held
// detections whose deadline has passed and decays the threat level once no
// high-threat detection has been seen for the configured hold.
func (p *Processor) startPendingFlusher() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				p.flushDue(now)
				p.decayThreat(now)
			}
		}
	}()
}

// flushDue moves every pending detection past its deadline onto the worker
// queue.
func (p *Processor) flushDue(now time.Time) {
	var due []PendingDetection

	p.mu.Lock()
	for key, item := range p.pendingDetections {
		if now.After(item.FlushDeadline) {
			due = append(due, item)
			delete(p.pendingDetections, key)
		}
	}
	p.mu.Unlock()

	for i := range due {
		item := due[i]
		for _, action := range p.getActionsForItem(&item) {
			select {
			case p.workerQueue <- Task{Type: TaskTypeAction, Item: item, Action: action}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// decayThreat drops the system threat level back to low after the hold
// window has elapsed without a high-threat detection.
func (p *Processor) decayThreat(now time.Time) {
	hold := time.Duration(p.Settings.Realtime.Alerts.ThreatHold) * time.Second
	if hold <= 0 {
		hold = 60 * time.Second
	}

	p.mu.Lock()
	expired := p.threatLevel == datastore.ThreatHigh && now.Sub(p.lastHighThreat) > hold
	if expired {
		p.threatLevel = datastore.ThreatLow
	}
	p.mu.Unlock()

	if !expired {
		return
	}

	if err := p.Ds.SetThreatLevel(datastore.ThreatLow); err != nil && p.logger != nil {
		p.logger.Error("Failed to persist threat level", "error", err)
	}
	if p.logger != nil {
		p.logger.Info("Threat level returned to low")
	}
	if p.Broadcaster != nil {
		p.Broadcaster.Broadcast(EventThreatLevel, map[string]any{
			"threatLevel": datastore.ThreatLow,
		})
	}
}

// getActionsForItem assembles the actions to execute for a flushed
// detection.
func (p *Processor) getActionsForItem(item *PendingDetection) []Action {
	actions := []Action{
		&LogAction{
			Logger:       p.detectionLog,
			Item:         *item,
			EventTracker: p.EventTracker,
			Description:  fmt.Sprintf("Log detection of %s", item.Result.Label),
		},
		&DatabaseAction{
			Ds:           p.Ds,
			Metrics:      p.Metrics,
			Item:         *item,
			EventTracker: p.EventTracker,
			Description:  fmt.Sprintf("Save detection of %s to database", item.Result.Label),
		},
		&AlertAction{
			Ds:           p.Ds,
			Broadcaster:  p.Broadcaster,
			Metrics:      p.Metrics,
			Item:         *item,
			EventTracker: p.EventTracker,
			Description:  fmt.Sprintf("Publish alert for %s", item.Result.Label),
		},
	}

	if p.Settings.Realtime.MQTT.Enabled && p.Publisher != nil {
		actions = append(actions, &MQTTAction{
			Settings:     p.Settings,
			Publisher:    p.Publisher,
			Item:         *item,
			EventTracker: p.EventTracker,
			Description:  fmt.Sprintf("Publish %s alert to MQTT", item.Result.Label),
		})
	}

	return actions
}
