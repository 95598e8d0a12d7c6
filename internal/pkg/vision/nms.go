package vision

import "sort"

// nms performs non-maximum suppression on detected faces. The survivors come
// back sorted by descending score, which is also the order the service
// exposes to callers.
func nms(faces []scrfdFace, iouThreshold float32) []scrfdFace {
	if len(faces) == 0 {
		return faces
	}

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].score > faces[j].score
	})

	keep := make([]bool, len(faces))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(faces); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(faces); j++ {
			if !keep[j] {
				continue
			}
			if iou(faces[i], faces[j]) > iouThreshold {
				keep[j] = false
			}
		}
	}

	result := make([]scrfdFace, 0, len(faces))
	for i, face := range faces {
		if keep[i] {
			result = append(result, face)
		}
	}

	return result
}

// iou calculates intersection over union of two detections.
func iou(a, b scrfdFace) float32 {
	x1 := max32(a.x1, b.x1)
	y1 := max32(a.y1, b.y1)
	x2 := min32(a.x2, b.x2)
	y2 := min32(a.y2, b.y2)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.area() + b.area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
