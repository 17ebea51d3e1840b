package detection

import "sort"

// candidate is a decoded output row before NMS, in model input coordinates.
type candidate struct {
	cx, cy, w, h float64
	classIndex   int
	confidence   float64
}

// decodeOutput parses the raw YOLO output tensor. The exported model emits a
// [4+numClasses][numBoxes] tensor: four box rows (center x, center y, width,
// height in input pixels) followed by one confidence row per class. Rows below
// the confidence threshold are dropped.
func decodeOutput(output []float32, numClasses, numBoxes int, threshold float64) []candidate {
	if len(output) < (4+numClasses)*numBoxes {
		return nil
	}

	var candidates []candidate
	for i := 0; i < numBoxes; i++ {
		bestClass := -1
		bestScore := 0.0
		for c := 0; c < numClasses; c++ {
			score := float64(output[(4+c)*numBoxes+i])
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestClass < 0 || bestScore < threshold {
			continue
		}
		candidates = append(candidates, candidate{
			cx:         float64(output[0*numBoxes+i]),
			cy:         float64(output[1*numBoxes+i]),
			w:          float64(output[2*numBoxes+i]),
			h:          float64(output[3*numBoxes+i]),
			classIndex: bestClass,
			confidence: bestScore,
		})
	}
	return candidates
}

// IoU computes intersection over union of two boxes. Boxes without overlap or
// with zero area yield 0.
func IoU(a, b Box) float64 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := float64(iw * ih)
	union := float64(a.Area()+b.Area()) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// nonMaxSuppression drops boxes of the same class that overlap a
// higher-confidence box by more than the IoU threshold. Input order does not
// matter, output is sorted by confidence descending.
func nonMaxSuppression(results []Result, iouThreshold float64) []Result {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Result, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].Label != sorted[i].Label {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
