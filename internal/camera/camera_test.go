// camera_test.go: tests for the frame buffer, worker lifecycle and manager.
package camera

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/detection"
)

// stubSource yields the same frame forever.
type stubSource struct {
	frame []byte
}

func (s *stubSource) NextFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.frame, nil
}

func (s *stubSource) Close() error { return nil }

// stubDetector returns a fixed result without touching a model.
type stubDetector struct {
	result *detection.FrameResult
}

func (d *stubDetector) DetectFrame(frame []byte) (*detection.FrameResult, error) {
	return d.result, nil
}

// countingConsumer records how many frame results it received.
type countingConsumer struct {
	mu    sync.Mutex
	count int
}

func (c *countingConsumer) ProcessFrame(cameraID string, result *detection.FrameResult) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func (c *countingConsumer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// memStore is a minimal in-memory datastore for manager tests.
type memStore struct {
	datastore.DataStore // panics if an unimplemented method is hit

	mu      sync.Mutex
	cameras []datastore.Camera
	running bool
}

func (s *memStore) Open() error  { return nil }
func (s *memStore) Close() error { return nil }

func (s *memStore) ListCameras() ([]datastore.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datastore.Camera, len(s.cameras))
	copy(out, s.cameras)
	return out, nil
}

func (s *memStore) AddCamera(name, source string) (datastore.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cam := datastore.Camera{
		ID:       uint(len(s.cameras) + 1),
		CameraID: name,
		Name:     name,
		Source:   source,
		Active:   true,
	}
	s.cameras = append(s.cameras, cam)
	return cam, nil
}

func (s *memStore) SetSystemRunning(running bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
	return nil
}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Realtime.Cameras.FrameInterval = 5
	settings.Realtime.Cameras.ReadBackoff = 5
	return settings
}

func TestFrameBufferLatestReturnsCopy(t *testing.T) {
	fb := NewFrameBuffer()
	fb.Update("cam1", []byte{1, 2, 3}, false)

	frame, ok := fb.Latest("cam1")
	require.True(t, ok)
	frame.Data[0] = 99

	again, ok := fb.Latest("cam1")
	require.True(t, ok)
	assert.Equal(t, byte(1), again.Data[0])
}

func TestFrameBufferMissAndDrop(t *testing.T) {
	fb := NewFrameBuffer()
	_, ok := fb.Latest("unknown")
	assert.False(t, ok)

	fb.Update("cam1", []byte{1}, false)
	fb.Drop("cam1")
	_, ok = fb.Latest("cam1")
	assert.False(t, ok)
}

func TestWorkerStartStopIdempotent(t *testing.T) {
	consumer := &countingConsumer{}
	worker := NewWorker("cam1", "Camera 1", &stubSource{frame: []byte{0xff}},
		&stubDetector{result: &detection.FrameResult{
			Results:     []detection.Result{{Label: detection.LabelNoMask, Confidence: 0.9}},
			ThreatLevel: detection.ThreatLow,
		}},
		consumer, NewFrameBuffer(), testSettings(), nil)

	ctx := context.Background()
	worker.Start(ctx)
	worker.Start(ctx) // second start is a no-op
	assert.True(t, worker.Running())

	assert.Eventually(t, func() bool {
		return consumer.Count() > 0
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
	worker.Stop() // second stop is a no-op
	assert.False(t, worker.Running())
}

func TestWorkerPrefersAnnotatedFrame(t *testing.T) {
	buffer := NewFrameBuffer()
	annotated := []byte{0xaa, 0xbb}
	worker := NewWorker("cam1", "Camera 1", &stubSource{frame: []byte{0xff}},
		&stubDetector{result: &detection.FrameResult{
			Results:     []detection.Result{{Label: detection.LabelWeapons, Confidence: 0.8}},
			ThreatLevel: detection.ThreatHigh,
			Annotated:   annotated,
		}},
		nil, buffer, testSettings(), nil)

	worker.Start(context.Background())
	assert.Eventually(t, func() bool {
		frame, ok := buffer.Latest("cam1")
		return ok && frame.Annotated
	}, time.Second, 5*time.Millisecond)
	worker.Stop()
}

func TestManagerSeedsDefaultCameras(t *testing.T) {
	store := &memStore{}
	settings := testSettings()
	settings.Realtime.Cameras.Sources = []string{"http://cam-a/feed", "http://cam-b/feed"}

	m := NewManager(settings, store, &stubDetector{result: &detection.FrameResult{}}, nil)
	m.SetSourceFactory(func(url string) Source {
		return &stubSource{frame: []byte{0xff}}
	})

	started, err := m.StartAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, started)
	assert.True(t, m.Running())
	assert.Equal(t, 2, m.ActiveCount())
	assert.True(t, store.running)

	// second start is a no-op and reports the same worker count
	startedAgain, err := m.StartAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, startedAgain)

	m.StopAll()
	m.StopAll()
	assert.False(t, m.Running())
	assert.Equal(t, 0, m.ActiveCount())
	assert.False(t, store.running)
}

func TestManagerStartWithoutCamerasFails(t *testing.T) {
	store := &memStore{}
	m := NewManager(testSettings(), store, &stubDetector{result: &detection.FrameResult{}}, nil)

	_, err := m.StartAll(context.Background())
	assert.Error(t, err)
	assert.False(t, m.Running())
}

func TestManagerIngestForwardsToConsumer(t *testing.T) {
	store := &memStore{}
	consumer := &countingConsumer{}
	m := NewManager(testSettings(), store,
		&stubDetector{result: &detection.FrameResult{
			Results:     []detection.Result{{Label: detection.LabelWeapons, Confidence: 0.8}},
			ThreatLevel: detection.ThreatHigh,
		}},
		consumer)

	result, err := m.Ingest("gate-cam", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Equal(t, detection.ThreatHigh, result.ThreatLevel)
	assert.Equal(t, 1, consumer.Count())

	_, ok := m.Buffer().Latest("gate-cam")
	assert.True(t, ok)
}
