package detection

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/victorakor/mall-surveillance-system/internal/errors"
)

const annotateQuality = 80

var (
	colorLow  = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	colorHigh = color.RGBA{R: 220, G: 0, B: 0, A: 255}
)

// Annotate draws bounding boxes onto a copy of the frame, green for low
// threat and red for high, and returns it re-encoded as JPEG.
func Annotate(img image.Image, results []Result) ([]byte, error) {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for i := range results {
		c := colorLow
		if IsHighThreat(results[i].Label) {
			c = colorHigh
		}
		drawRect(canvas, results[i].Box, c, 2)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: annotateQuality}); err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryImageDecode).
			Context("operation", "annotate-encode").
			Build()
	}
	return buf.Bytes(), nil
}

// drawRect draws the outline of a box with the given stroke thickness.
func drawRect(canvas *image.RGBA, b Box, c color.RGBA, thickness int) {
	bounds := canvas.Bounds()
	for t := 0; t < thickness; t++ {
		for x := b.X1 - t; x <= b.X2+t; x++ {
			setPixel(canvas, bounds, x, b.Y1-t, c)
			setPixel(canvas, bounds, x, b.Y2+t, c)
		}
		for y := b.Y1 - t; y <= b.Y2+t; y++ {
			setPixel(canvas, bounds, b.X1-t, y, c)
			setPixel(canvas, bounds, b.X2+t, y, c)
		}
	}
}

func setPixel(canvas *image.RGBA, bounds image.Rectangle, x, y int, c color.RGBA) {
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		canvas.SetRGBA(x, y, c)
	}
}
