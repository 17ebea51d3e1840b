package detection

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/victorakor/mall-surveillance-system/internal/errors"
)

// Letterbox describes how a source image was scaled and padded to fit the
// square model input. It is kept so output boxes can be mapped back to source
// coordinates.
type Letterbox struct {
	Scale      float64 // uniform scale factor applied to the source
	PadX, PadY int     // padding added on the left and top of the scaled image
	SrcW, SrcH int     // source image dimensions
	Size       int     // model input width/height
}

// NewLetterbox computes the scale and padding used to fit a srcW x srcH image
// into a size x size model input while preserving aspect ratio.
func NewLetterbox(srcW, srcH, size int) Letterbox {
	scale := float64(size) / float64(srcW)
	if s := float64(size) / float64(srcH); s < scale {
		scale = s
	}
	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	return Letterbox{
		Scale: scale,
		PadX:  (size - scaledW) / 2,
		PadY:  (size - scaledH) / 2,
		SrcW:  srcW,
		SrcH:  srcH,
		Size:  size,
	}
}

// ToSource maps a coordinate from model input space back to source pixels,
// clamped to the source bounds.
func (lb Letterbox) ToSource(x, y float64) (int, int) {
	sx := (x - float64(lb.PadX)) / lb.Scale
	sy := (y - float64(lb.PadY)) / lb.Scale
	return clamp(int(sx+0.5), 0, lb.SrcW), clamp(int(sy+0.5), 0, lb.SrcH)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// decodeJPEG decodes a JPEG frame into an image.
func decodeJPEG(frame []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryImageDecode).
			Context("frame_bytes", len(frame)).
			Build()
	}
	return img, nil
}

// prepareInput letterboxes the image into the model input tensor layout:
// NHWC float32, RGB, normalized to [0,1]. Padding pixels stay zero.
func prepareInput(img image.Image, size int) ([]float32, Letterbox) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	lb := NewLetterbox(srcW, srcH, size)

	input := make([]float32, size*size*3)

	scaledW := int(float64(srcW) * lb.Scale)
	scaledH := int(float64(srcH) * lb.Scale)

	for y := 0; y < scaledH; y++ {
		// nearest neighbor sampling is sufficient for detection inputs
		srcY := bounds.Min.Y + int(float64(y)/lb.Scale)
		if srcY >= bounds.Max.Y {
			srcY = bounds.Max.Y - 1
		}
		for x := 0; x < scaledW; x++ {
			srcX := bounds.Min.X + int(float64(x)/lb.Scale)
			if srcX >= bounds.Max.X {
				srcX = bounds.Max.X - 1
			}
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			idx := ((y+lb.PadY)*size + (x + lb.PadX)) * 3
			input[idx] = float32(r>>8) / 255.0
			input[idx+1] = float32(g>>8) / 255.0
			input[idx+2] = float32(b>>8) / 255.0
		}
	}

	return input, lb
}
