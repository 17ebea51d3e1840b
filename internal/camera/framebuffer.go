// Package camera manages per-camera capture workers and the latest-frame
// buffers behind the live video feed endpoint.
package camera

import (
	"sync"
	"time"
)

// Frame holds the most recent JPEG captured from a camera. Annotated is set
// when the detector drew bounding boxes on the frame.
type Frame struct {
	Data      []byte
	Annotated bool
	UpdatedAt time.Time
}

// FrameBuffer keeps the latest frame per camera ID. Readers get a copy of the
// stored bytes so a concurrent writer cannot mutate a frame mid-response.
type FrameBuffer struct {
	mu     sync.RWMutex
	frames map[string]Frame
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		frames: make(map[string]Frame),
	}
}

// Update stores a new frame for the camera.
func (fb *FrameBuffer) Update(cameraID string, data []byte, annotated bool) {
	if len(data) == 0 {
		return
	}
	stored := make([]byte, len(data))
	copy(stored, data)

	fb.mu.Lock()
	fb.frames[cameraID] = Frame{
		Data:      stored,
		Annotated: annotated,
		UpdatedAt: time.Now(),
	}
	fb.mu.Unlock()
}

// Latest returns a copy of the most recent frame for the camera.
func (fb *FrameBuffer) Latest(cameraID string) (Frame, bool) {
	fb.mu.RLock()
	frame, ok := fb.frames[cameraID]
	fb.mu.RUnlock()
	if !ok {
		return Frame{}, false
	}

	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)
	frame.Data = data
	return frame, true
}

// Drop removes the stored frame for a camera, typically on worker shutdown.
func (fb *FrameBuffer) Drop(cameraID string) {
	fb.mu.Lock()
	delete(fb.frames, cameraID)
	fb.mu.Unlock()
}
