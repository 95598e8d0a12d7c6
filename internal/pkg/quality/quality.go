// Package quality implements the photo suitability heuristic used to rank
// candidate images for face swapping. The score is a fixed weighted sum of
// six capped contributions over the detector output and basic image
// statistics; weights and band boundaries are hand-tuned constants.
package quality

import (
	"fmt"
	"math"

	"face-swap/internal/pkg/imaging"
	"face-swap/internal/pkg/model/face_model"
	"face-swap/internal/pkg/model/swap_model"
)

const (
	// sharpnessNorm is the Laplacian variance treated as perfectly sharp.
	sharpnessNorm = 500.0

	// frontFacingYaw is the yaw angle below which a face counts as frontal.
	frontFacingYaw = 15.0
)

// Score rates an image for face-swap suitability given the faces detected in
// it. A report with Score 0 and FaceDetected false is returned when the
// detector found nothing; diagnostics are filled in otherwise. The first
// detected face is the one scored.
func Score(img *imaging.ImageBuffer, faces []face_model.DetectedFace) (report swap_model.QualityReport) {
	defer func() {
		if r := recover(); r != nil {
			report = swap_model.QualityReport{
				Score:        0,
				FaceDetected: false,
				Error:        fmt.Sprintf("%v", r),
			}
		}
	}()

	if len(faces) == 0 {
		return swap_model.QualityReport{
			Score:        0,
			FaceDetected: false,
			Error:        "No face detected",
		}
	}

	face := faces[0]
	score := 0.0

	// 1. Detection confidence, 0-30 points.
	confidence := face.Confidence
	score += confidence * 30

	// 2. Head pose, prefer front-facing, 5-25 points.
	yaw := face.Yaw()
	switch {
	case yaw < frontFacingYaw:
		score += 25
	case yaw < 30:
		score += 15
	default:
		score += 5
	}

	// 3. Image resolution, 3-10 points.
	resolution := img.Width
	if img.Height < resolution {
		resolution = img.Height
	}
	switch {
	case resolution >= 1024:
		score += 10
	case resolution >= 800:
		score += 7
	default:
		score += 3
	}

	// 4. Face size relative to the image, 2-10 points.
	faceArea := face.Box.Dx() * face.Box.Dy()
	imageArea := img.Width * img.Height
	faceRatio := float64(faceArea) / float64(imageArea)
	switch {
	case faceRatio > 0.15:
		score += 10
	case faceRatio > 0.08:
		score += 6
	default:
		score += 2
	}

	// 5. Sharpness via Laplacian variance, 0-15 points.
	gray := img.Grayscale()
	lapVar := imaging.LaplacianVariance(gray, img.Width, img.Height)
	sharpness := math.Min(lapVar/sharpnessNorm, 1.0)
	score += sharpness * 15

	// 6. Lighting, 2-10 points.
	brightness := imaging.MeanBrightness(gray)
	switch {
	case brightness > 80 && brightness < 180:
		score += 10
	case brightness > 60 && brightness < 200:
		score += 6
	default:
		score += 2
	}

	return swap_model.QualityReport{
		Score:         round(score, 1),
		FaceDetected:  true,
		Confidence:    round(confidence, 3),
		YawAngle:      round(yaw, 1),
		FrontFacing:   yaw < frontFacingYaw,
		Resolution:    fmt.Sprintf("%dx%d", img.Width, img.Height),
		FaceSizeRatio: round(faceRatio, 3),
		Sharpness:     round(sharpness, 3),
		Brightness:    round(brightness, 1),
		NumFaces:      len(faces),
	}
}

func round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
