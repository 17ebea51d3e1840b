// preprocess_test.go: unit tests for letterbox coordinate mapping.
package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterboxWideImage(t *testing.T) {
	lb := NewLetterbox(1280, 720, 640)

	assert.InDelta(t, 0.5, lb.Scale, 0.001)
	assert.Equal(t, 0, lb.PadX)
	// scaled height 360, so 280 pixels of padding split top and bottom
	assert.Equal(t, 140, lb.PadY)
}

func TestLetterboxSquareImage(t *testing.T) {
	lb := NewLetterbox(640, 640, 640)
	assert.InDelta(t, 1.0, lb.Scale, 0.001)
	assert.Equal(t, 0, lb.PadX)
	assert.Equal(t, 0, lb.PadY)
}

func TestLetterboxRoundTrip(t *testing.T) {
	lb := NewLetterbox(1280, 720, 640)

	// a point in the middle of the source should survive the round trip
	srcX, srcY := 600, 400
	modelX := float64(srcX)*lb.Scale + float64(lb.PadX)
	modelY := float64(srcY)*lb.Scale + float64(lb.PadY)

	gotX, gotY := lb.ToSource(modelX, modelY)
	assert.InDelta(t, srcX, gotX, 1)
	assert.InDelta(t, srcY, gotY, 1)
}

func TestLetterboxToSourceClamps(t *testing.T) {
	lb := NewLetterbox(1280, 720, 640)

	x, y := lb.ToSource(-50, -50)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)

	x, y = lb.ToSource(10000, 10000)
	assert.Equal(t, 1280, x)
	assert.Equal(t, 720, y)
}
