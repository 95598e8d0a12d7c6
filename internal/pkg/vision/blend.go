package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"face-swap/internal/pkg/model/face_model"
)

// blender pastes a swapped face crop back into the full target frame.
type blender struct {
	blurSize int
}

func newBlender(blurSize int) *blender {
	if blurSize%2 == 0 {
		blurSize++
	}
	return &blender{blurSize: blurSize}
}

// blendFace inverse-warps the 128x128 swapped face into frame coordinates
// and alpha-blends it under a soft elliptical mask derived from the original
// landmarks. The frame is modified in place.
func (b *blender) blendFace(swappedFace gocv.Mat, frame *gocv.Mat, transform gocv.Mat, landmarks face_model.Landmarks) {
	invTransform := gocv.NewMat()
	gocv.InvertAffineTransform(transform, &invTransform)
	defer invTransform.Close()

	frameSize := image.Pt(frame.Cols(), frame.Rows())

	warpedFace := gocv.NewMat()
	gocv.WarpAffine(swappedFace, &warpedFace, invTransform, frameSize)
	defer warpedFace.Close()

	mask := gocv.NewMatWithSize(frame.Rows(), frame.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()

	centerX := (landmarks.LeftEye.X + landmarks.RightEye.X + landmarks.Nose.X +
		landmarks.LeftMouth.X + landmarks.RightMouth.X) / 5
	centerY := (landmarks.LeftEye.Y + landmarks.RightEye.Y + landmarks.Nose.Y +
		landmarks.LeftMouth.Y + landmarks.RightMouth.Y) / 5

	// Face extent approximated from the eye distance.
	eyeDist := landmarks.RightEye.X - landmarks.LeftEye.X
	faceWidth := eyeDist * 2.5
	faceHeight := eyeDist * 3.0

	gocv.Ellipse(&mask,
		image.Pt(int(centerX), int(centerY)),
		image.Pt(int(faceWidth/2), int(faceHeight/2)),
		0, 0, 360,
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
		-1,
	)

	blurredMask := gocv.NewMat()
	gocv.GaussianBlur(mask, &blurredMask, image.Pt(b.blurSize, b.blurSize), 0, 0, gocv.BorderDefault)
	defer blurredMask.Close()

	warpedFace.CopyToWithMask(frame, blurredMask)
}
