package vision

import (
	"math"

	"face-swap/internal/pkg/model/face_model"
)

// estimatePose derives approximate head orientation from the five-point
// landmarks. SCRFD has no pose head, so yaw is read off the horizontal
// nose offset from the eye midpoint (normalized by eye distance), roll off
// the eye line slope and pitch off the nose position between the eye and
// mouth lines. Returns nil when the landmark geometry is degenerate.
func estimatePose(lm face_model.Landmarks) *face_model.Pose {
	eyeDX := float64(lm.RightEye.X - lm.LeftEye.X)
	eyeDY := float64(lm.RightEye.Y - lm.LeftEye.Y)
	eyeDist := math.Hypot(eyeDX, eyeDY)
	if eyeDist < 1 {
		return nil
	}

	eyeMidX := float64(lm.LeftEye.X+lm.RightEye.X) / 2
	eyeMidY := float64(lm.LeftEye.Y+lm.RightEye.Y) / 2
	mouthMidY := float64(lm.LeftMouth.Y+lm.RightMouth.Y) / 2

	noseOffset := (float64(lm.Nose.X) - eyeMidX) / eyeDist
	yaw := math.Asin(clampF(2*noseOffset, -1, 1)) * 180 / math.Pi

	roll := math.Atan2(eyeDY, eyeDX) * 180 / math.Pi

	var pitch float64
	faceHeight := mouthMidY - eyeMidY
	if faceHeight > 1 {
		// 0.6 is the neutral nose position between the eye and mouth lines.
		noseRatio := (float64(lm.Nose.Y) - eyeMidY) / faceHeight
		pitch = (0.6 - noseRatio) * 90
	}

	return &face_model.Pose{Yaw: yaw, Pitch: pitch, Roll: roll}
}

func clampF(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
