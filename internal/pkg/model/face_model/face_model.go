// Package face_model provides models describing the output of the face
// analysis pipeline.
package face_model

import "image"

// Point represents a 2D pixel coordinate.
type Point struct {
	X float32
	Y float32
}

// Landmarks represents the five facial landmark points produced by the detector.
type Landmarks struct {
	LeftEye    Point
	RightEye   Point
	Nose       Point
	LeftMouth  Point
	RightMouth Point
}

// AsSlice returns landmarks as a flat slice [x0,y0,x1,y1,...].
func (l Landmarks) AsSlice() []float32 {
	return []float32{
		l.LeftEye.X, l.LeftEye.Y,
		l.RightEye.X, l.RightEye.Y,
		l.Nose.X, l.Nose.Y,
		l.LeftMouth.X, l.LeftMouth.Y,
		l.RightMouth.X, l.RightMouth.Y,
	}
}

// Pose holds head orientation angles in degrees. Yaw measures left-right turn.
type Pose struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// DetectedFace describes one face found in an image.
type DetectedFace struct {
	// Box is the bounding box in integer pixel coordinates of the source image.
	Box image.Rectangle

	// Confidence is the detection score in [0, 1].
	Confidence float64

	// Landmarks are the five-point landmarks in source image coordinates.
	Landmarks Landmarks

	// Pose is nil when the analyzer could not estimate head orientation.
	Pose *Pose
}

// Yaw returns the absolute yaw angle, or 0 when pose is unavailable.
func (f *DetectedFace) Yaw() float64 {
	if f.Pose == nil {
		return 0
	}
	if f.Pose.Yaw < 0 {
		return -f.Pose.Yaw
	}
	return f.Pose.Yaw
}
