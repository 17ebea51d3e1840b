// processor_test.go: tests for pending detection handling, deduplication and
// threat level arbitration.
package processor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/detection"
)

// recordingStore is an in-memory datastore that records writes.
type recordingStore struct {
	datastore.DataStore

	mu          sync.Mutex
	detections  []datastore.Detection
	alerts      []datastore.Alert
	threatLevel string
}

func (s *recordingStore) Open() error  { return nil }
func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) SaveDetection(d *datastore.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections = append(s.detections, *d)
	return nil
}

func (s *recordingStore) SaveAlert(a *datastore.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, *a)
	return nil
}

func (s *recordingStore) SetThreatLevel(level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threatLevel = level
	return nil
}

func (s *recordingStore) detectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.detections)
}

func (s *recordingStore) alertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// recordingBroadcaster collects broadcast events by name.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) Broadcast(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == event {
			n++
		}
	}
	return n
}

func processorSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Realtime.Alerts.FlushDelay = 1
	settings.Realtime.Alerts.DedupInterval = 30
	settings.Realtime.Alerts.ThreatHold = 60
	return settings
}

func highFrame(label string) *detection.FrameResult {
	return &detection.FrameResult{
		Results: []detection.Result{
			{Label: label, Confidence: 0.8, ThreatLevel: detection.ThreatHigh},
		},
		ThreatLevel: detection.ThreatHigh,
	}
}

func TestEventTrackerBlocksWithinInterval(t *testing.T) {
	tracker := NewEventTracker(50 * time.Millisecond)

	assert.True(t, tracker.TrackEvent("cam1/weapons", DatabaseSave))
	assert.False(t, tracker.TrackEvent("cam1/weapons", DatabaseSave))

	// other keys and event types are tracked independently
	assert.True(t, tracker.TrackEvent("cam2/weapons", DatabaseSave))
	assert.True(t, tracker.TrackEvent("cam1/weapons", AlertPublish))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, tracker.TrackEvent("cam1/weapons", DatabaseSave))
}

func TestEventTrackerReset(t *testing.T) {
	tracker := NewEventTracker(time.Hour)

	assert.True(t, tracker.TrackEvent("cam1/noMask", AlertPublish))
	assert.False(t, tracker.TrackEvent("cam1/noMask", AlertPublish))

	tracker.ResetEvent("cam1/noMask", AlertPublish)
	assert.True(t, tracker.TrackEvent("cam1/noMask", AlertPublish))
}

func TestProcessFrameKeepsHigherConfidence(t *testing.T) {
	store := &recordingStore{}
	p := New(processorSettings(), store, nil, nil, nil)
	defer p.Shutdown()

	p.ProcessFrame("cam1", &detection.FrameResult{
		Results: []detection.Result{
			{Label: detection.LabelNoMask, Confidence: 0.6, ThreatLevel: detection.ThreatLow},
		},
		ThreatLevel: detection.ThreatLow,
	})

	p.mu.Lock()
	first := p.pendingDetections["cam1/noMask"]
	p.mu.Unlock()
	require.InDelta(t, 0.6, first.Confidence, 0.001)

	// lower confidence does not replace the held detection
	p.ProcessFrame("cam1", &detection.FrameResult{
		Results: []detection.Result{
			{Label: detection.LabelNoMask, Confidence: 0.4, ThreatLevel: detection.ThreatLow},
		},
		ThreatLevel: detection.ThreatLow,
	})

	p.mu.Lock()
	held := p.pendingDetections["cam1/noMask"]
	p.mu.Unlock()
	assert.InDelta(t, 0.6, held.Confidence, 0.001)

	// higher confidence replaces it but keeps the first-seen time
	p.ProcessFrame("cam1", &detection.FrameResult{
		Results: []detection.Result{
			{Label: detection.LabelNoMask, Confidence: 0.9, ThreatLevel: detection.ThreatLow},
		},
		ThreatLevel: detection.ThreatLow,
	})

	p.mu.Lock()
	replaced := p.pendingDetections["cam1/noMask"]
	p.mu.Unlock()
	assert.InDelta(t, 0.9, replaced.Confidence, 0.001)
	assert.Equal(t, first.FirstDetected, replaced.FirstDetected)
}

func TestFlushPersistsDetectionAndAlert(t *testing.T) {
	store := &recordingStore{}
	broadcaster := &recordingBroadcaster{}
	p := New(processorSettings(), store, broadcaster, nil, nil)
	defer p.Shutdown()

	p.ProcessFrame("cam1", highFrame(detection.LabelWeapons))

	// force the flush deadline to pass
	p.flushDue(time.Now().Add(time.Minute))

	assert.Eventually(t, func() bool {
		return store.detectionCount() == 1 && store.alertCount() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return broadcaster.count(EventPendingDetection) == 1
	}, time.Second, 5*time.Millisecond)

	p.mu.Lock()
	remaining := len(p.pendingDetections)
	p.mu.Unlock()
	assert.Equal(t, 0, remaining)
}

func TestDedupSuppressesRepeatedFlushes(t *testing.T) {
	store := &recordingStore{}
	p := New(processorSettings(), store, nil, nil, nil)
	defer p.Shutdown()

	p.ProcessFrame("cam1", highFrame(detection.LabelWeapons))
	p.flushDue(time.Now().Add(time.Minute))

	assert.Eventually(t, func() bool {
		return store.detectionCount() == 1
	}, time.Second, 5*time.Millisecond)

	// same camera and label again within the dedup interval
	p.ProcessFrame("cam1", highFrame(detection.LabelWeapons))
	p.flushDue(time.Now().Add(time.Minute))

	// give the workers a moment, the count must not grow
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.detectionCount())
	assert.Equal(t, 1, store.alertCount())
}

func TestHighThreatBroadcasts(t *testing.T) {
	store := &recordingStore{}
	broadcaster := &recordingBroadcaster{}
	p := New(processorSettings(), store, broadcaster, nil, nil)
	defer p.Shutdown()

	assert.Equal(t, datastore.ThreatLow, p.ThreatLevel())

	p.ProcessFrame("cam1", highFrame(detection.LabelWeapons))
	assert.Equal(t, datastore.ThreatHigh, p.ThreatLevel())
	assert.Equal(t, 1, broadcaster.count(EventHighThreat))

	// a second high frame keeps the level high, the level transition is
	// only announced once
	p.ProcessFrame("cam2", highFrame(detection.LabelOtherCoverings))
	assert.Equal(t, datastore.ThreatHigh, p.ThreatLevel())
	assert.Equal(t, 1, broadcaster.count(EventHighThreat))

	store.mu.Lock()
	level := store.threatLevel
	store.mu.Unlock()
	assert.Equal(t, datastore.ThreatHigh, level)

	// flushing emits high_threat per high-class camera/label, so the second
	// sighting inside the hold window still reaches the dashboard
	p.flushDue(time.Now().Add(time.Minute))
	assert.Eventually(t, func() bool {
		return broadcaster.count(EventHighThreat) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestFlushDeadlineFixedAtFirstDetection(t *testing.T) {
	store := &recordingStore{}
	p := New(processorSettings(), store, nil, nil, nil)
	defer p.Shutdown()

	p.ProcessFrame("cam1", &detection.FrameResult{
		Results: []detection.Result{
			{Label: detection.LabelNoMask, Confidence: 0.6, ThreatLevel: detection.ThreatLow},
		},
		ThreatLevel: detection.ThreatLow,
	})

	p.mu.Lock()
	first := p.pendingDetections["cam1/noMask"]
	p.mu.Unlock()

	// an update within the window keeps the deadline
	p.ProcessFrame("cam1", &detection.FrameResult{
		Results: []detection.Result{
			{Label: detection.LabelNoMask, Confidence: 0.9, ThreatLevel: detection.ThreatLow},
		},
		ThreatLevel: detection.ThreatLow,
	})

	p.mu.Lock()
	held := p.pendingDetections["cam1/noMask"]
	p.mu.Unlock()
	assert.Equal(t, first.FlushDeadline, held.FlushDeadline)

	// an update arriving after the deadline lapsed but before the flusher
	// ran must not push the flush out either
	lapsed := held
	lapsed.FlushDeadline = time.Now().Add(-10 * time.Millisecond)
	p.mu.Lock()
	p.pendingDetections["cam1/noMask"] = lapsed
	p.mu.Unlock()

	p.ProcessFrame("cam1", &detection.FrameResult{
		Results: []detection.Result{
			{Label: detection.LabelNoMask, Confidence: 0.95, ThreatLevel: detection.ThreatLow},
		},
		ThreatLevel: detection.ThreatLow,
	})

	p.mu.Lock()
	final := p.pendingDetections["cam1/noMask"]
	p.mu.Unlock()
	assert.Equal(t, lapsed.FlushDeadline, final.FlushDeadline)
}

func TestThreatDecayAfterHold(t *testing.T) {
	store := &recordingStore{}
	broadcaster := &recordingBroadcaster{}
	p := New(processorSettings(), store, broadcaster, nil, nil)
	defer p.Shutdown()

	p.ProcessFrame("cam1", highFrame(detection.LabelWeapons))
	require.Equal(t, datastore.ThreatHigh, p.ThreatLevel())

	// inside the hold window nothing changes
	p.decayThreat(time.Now())
	assert.Equal(t, datastore.ThreatHigh, p.ThreatLevel())

	// past the hold window the level returns to low
	p.decayThreat(time.Now().Add(2 * time.Minute))
	assert.Equal(t, datastore.ThreatLow, p.ThreatLevel())
	assert.Equal(t, 1, broadcaster.count(EventThreatLevel))

	store.mu.Lock()
	level := store.threatLevel
	store.mu.Unlock()
	assert.Equal(t, datastore.ThreatLow, level)
}
