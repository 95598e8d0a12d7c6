// Package vision wraps the pretrained ONNX models the service delegates to:
// an SCRFD face detector, an ArcFace embedding encoder and the inswapper
// face generator. Everything heavier than orchestration happens inside the
// models themselves.
package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"face-swap/internal/pkg/imaging"
	"face-swap/internal/pkg/model/face_model"
)

// FaceAnalyzer detects faces, with confidence, landmarks and head pose.
type FaceAnalyzer interface {
	DetectFaces(img *imaging.ImageBuffer) ([]face_model.DetectedFace, error)
	Close() error
}

// FaceSwapper composites the identity of a source face onto a target face,
// pasting the result back into the full target frame.
type FaceSwapper interface {
	SwapFace(target *imaging.ImageBuffer, targetFace face_model.DetectedFace,
		source *imaging.ImageBuffer, sourceFace face_model.DetectedFace) (*imaging.ImageBuffer, error)
	Close() error
}

// NoFaceError reports that detection found zero faces in the named image.
// It is recoverable at the request level.
type NoFaceError struct {
	Image string
}

func (e *NoFaceError) Error() string {
	return fmt.Sprintf("no face detected in %s image", e.Image)
}

// SwapError reports a failure inside the swap model invocation.
type SwapError struct {
	Err error
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("face swap failed: %v", e.Err)
}

func (e *SwapError) Unwrap() error {
	return e.Err
}

// matFromBuffer creates a Mat sharing the buffer's BGR bytes.
func matFromBuffer(img *imaging.ImageBuffer) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
}

// bufferFromMat copies a BGR Mat into a new ImageBuffer.
func bufferFromMat(m gocv.Mat) (*imaging.ImageBuffer, error) {
	data, err := m.DataPtrUint8()
	if err != nil {
		return nil, err
	}
	pix := make([]uint8, len(data))
	copy(pix, data)
	return imaging.FromBGR(m.Cols(), m.Rows(), pix)
}
