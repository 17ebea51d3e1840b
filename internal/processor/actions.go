// processor/actions.go
package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/detection"
	"github.com/victorakor/mall-surveillance-system/internal/errors"
	"github.com/victorakor/mall-surveillance-system/internal/observability"
)

// MQTTPublishTimeout is the timeout for MQTT publish operations.
const MQTTPublishTimeout = 10 * time.Second

// Action is the base interface for all actions executed for a flushed
// detection.
type Action interface {
	Execute(item *PendingDetection) error
	GetDescription() string
}

// LogAction writes the detection to the detection log.
type LogAction struct {
	Logger       *slog.Logger
	Item         PendingDetection
	EventTracker *EventTracker
	Description  string
}

func (a *LogAction) Execute(item *PendingDetection) error {
	key := pendingKey(a.Item.CameraID, a.Item.Result.Label)
	if !a.EventTracker.TrackEvent(key, LogToFile) {
		return nil
	}

	if a.Logger != nil {
		a.Logger.Info("Detection",
			"camera_id", a.Item.CameraID,
			"label", a.Item.Result.Label,
			"confidence", a.Item.Confidence,
			"threat_level", a.Item.Result.ThreatLevel,
			"first_detected", a.Item.FirstDetected.Format(time.RFC3339),
		)
	}
	return nil
}

func (a *LogAction) GetDescription() string { return a.Description }

// DatabaseAction saves the detection to the datastore.
type DatabaseAction struct {
	Ds           datastore.Interface
	Metrics      *observability.Metrics
	Item         PendingDetection
	EventTracker *EventTracker
	Description  string
}

func (a *DatabaseAction) Execute(item *PendingDetection) error {
	key := pendingKey(a.Item.CameraID, a.Item.Result.Label)
	if !a.EventTracker.TrackEvent(key, DatabaseSave) {
		return nil
	}

	det := datastore.Detection{
		CameraID:    a.Item.CameraID,
		Label:       a.Item.Result.Label,
		Confidence:  a.Item.Confidence,
		ThreatLevel: a.Item.Result.ThreatLevel,
		X1:          a.Item.Result.Box.X1,
		Y1:          a.Item.Result.Box.Y1,
		X2:          a.Item.Result.Box.X2,
		Y2:          a.Item.Result.Box.Y2,
		DetectedAt:  a.Item.FirstDetected,
	}

	if err := a.Ds.SaveDetection(&det); err != nil {
		return errors.New(err).
			Component("processor").
			Category(errors.CategoryDatabase).
			Context("camera_id", a.Item.CameraID).
			Context("label", a.Item.Result.Label).
			Build()
	}

	a.Metrics.RecordDetection(a.Item.Result.Label, a.Item.Result.ThreatLevel)
	return nil
}

func (a *DatabaseAction) GetDescription() string { return a.Description }

// AlertAction saves an alert feed entry and broadcasts it to stream clients.
type AlertAction struct {
	Ds           datastore.Interface
	Broadcaster  Broadcaster
	Metrics      *observability.Metrics
	Item         PendingDetection
	EventTracker *EventTracker
	Description  string
}

func (a *AlertAction) Execute(item *PendingDetection) error {
	key := pendingKey(a.Item.CameraID, a.Item.Result.Label)
	if !a.EventTracker.TrackEvent(key, AlertPublish) {
		return nil
	}

	alert := datastore.Alert{
		Label:       a.Item.Result.Label,
		CameraID:    a.Item.CameraID,
		Confidence:  a.Item.Confidence,
		ThreatLevel: a.Item.Result.ThreatLevel,
		CreatedAt:   time.Now(),
	}

	if err := a.Ds.SaveAlert(&alert); err != nil {
		return errors.New(err).
			Component("processor").
			Category(errors.CategoryDatabase).
			Context("camera_id", a.Item.CameraID).
			Context("label", a.Item.Result.Label).
			Build()
	}

	if a.Broadcaster != nil {
		a.Broadcaster.Broadcast(EventPendingDetection, map[string]any{
			"cameraId":    alert.CameraID,
			"label":       alert.Label,
			"confidence":  alert.Confidence,
			"threatLevel": alert.ThreatLevel,
			"createdAt":   alert.CreatedAt.Format(time.RFC3339),
		})

		// high-class labels additionally raise the dashboard siren, one
		// event per flushed camera/label within the dedup interval
		if a.Item.Result.ThreatLevel == detection.ThreatHigh {
			a.Broadcaster.Broadcast(EventHighThreat, map[string]any{
				"cameraId":    alert.CameraID,
				"label":       alert.Label,
				"confidence":  alert.Confidence,
				"threatLevel": alert.ThreatLevel,
			})
		}
	}

	a.Metrics.RecordAlert()
	return nil
}

func (a *AlertAction) GetDescription() string { return a.Description }

// MQTTAction publishes the alert as JSON to the configured MQTT topic.
type MQTTAction struct {
	Settings     *conf.Settings
	Publisher    AlertPublisher
	Item         PendingDetection
	EventTracker *EventTracker
	Description  string
}

func (a *MQTTAction) Execute(item *PendingDetection) error {
	key := pendingKey(a.Item.CameraID, a.Item.Result.Label)
	if !a.EventTracker.TrackEvent(key, MQTTPublish) {
		return nil
	}

	if !a.Publisher.IsConnected() {
		return errors.Newf("mqtt client not connected").
			Component("processor").
			Category(errors.CategoryMQTTPublish).
			Context("camera_id", a.Item.CameraID).
			Build()
	}

	payload, err := json.Marshal(map[string]any{
		"cameraId":    a.Item.CameraID,
		"label":       a.Item.Result.Label,
		"confidence":  a.Item.Confidence,
		"threatLevel": a.Item.Result.ThreatLevel,
		"detectedAt":  a.Item.FirstDetected.Format(time.RFC3339),
	})
	if err != nil {
		return errors.New(err).
			Component("processor").
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	ctx, cancel := context.WithTimeout(context.Background(), MQTTPublishTimeout)
	defer cancel()

	if err := a.Publisher.Publish(ctx, a.Settings.Realtime.MQTT.Topic, string(payload)); err != nil {
		return errors.New(err).
			Component("processor").
			Category(errors.CategoryMQTTPublish).
			Context("topic", a.Settings.Realtime.MQTT.Topic).
			Build()
	}
	return nil
}

func (a *MQTTAction) GetDescription() string { return a.Description }
