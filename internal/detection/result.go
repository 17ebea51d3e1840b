package detection

// Box is an axis-aligned bounding box in source image pixel coordinates.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the box width in pixels.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns the box area in pixels. Degenerate boxes have zero area.
func (b Box) Area() int {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Result is a single detected object.
type Result struct {
	Label       string  `json:"label"`
	Confidence  float64 `json:"conf"`
	Box         Box     `json:"bbox"`
	ThreatLevel string  `json:"threatLevel"`
}

// FrameResult is the outcome of running the detector on one frame.
type FrameResult struct {
	Results     []Result // detected objects, highest confidence first
	ThreatLevel string   // arbitrated threat level for the whole frame
	Annotated   []byte   // JPEG of the frame with boxes drawn, nil when no detections
}
