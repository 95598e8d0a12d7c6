package vision

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"face-swap/internal/pkg/model/face_model"
)

// arcfaceDst is the ArcFace reference landmark template for a 112x112
// aligned face.
var arcfaceDst = []face_model.Point{
	{X: 38.2946, Y: 51.6963}, // left eye
	{X: 73.5318, Y: 51.5014}, // right eye
	{X: 56.0252, Y: 71.7366}, // nose
	{X: 41.5493, Y: 92.3655}, // left mouth
	{X: 70.7299, Y: 92.2041}, // right mouth
}

// faceAligner warps faces into the canonical crops the models expect.
type faceAligner struct {
	arcfaceSize     int
	inswapperSize   int
	arcfaceDstMat   gocv.Mat
	inswapperDstMat gocv.Mat
}

func newFaceAligner() *faceAligner {
	arcfaceDstMat := gocv.NewMatWithSize(5, 2, gocv.MatTypeCV32F)
	for i, pt := range arcfaceDst {
		arcfaceDstMat.SetFloatAt(i, 0, pt.X)
		arcfaceDstMat.SetFloatAt(i, 1, pt.Y)
	}

	// Inswapper wants the same template scaled from 112 to 128.
	scale := float32(128) / float32(112)
	inswapperDstMat := gocv.NewMatWithSize(5, 2, gocv.MatTypeCV32F)
	for i, pt := range arcfaceDst {
		inswapperDstMat.SetFloatAt(i, 0, pt.X*scale)
		inswapperDstMat.SetFloatAt(i, 1, pt.Y*scale)
	}

	return &faceAligner{
		arcfaceSize:     112,
		inswapperSize:   128,
		arcfaceDstMat:   arcfaceDstMat,
		inswapperDstMat: inswapperDstMat,
	}
}

// alignResult holds an aligned crop plus the transform that produced it.
type alignResult struct {
	alignedFace gocv.Mat
	transform   gocv.Mat
}

func (r *alignResult) close() {
	r.alignedFace.Close()
	r.transform.Close()
}

// alignForArcFace aligns a face to 112x112 for embedding extraction.
func (a *faceAligner) alignForArcFace(img gocv.Mat, landmarks face_model.Landmarks) *alignResult {
	return a.alignFace(img, landmarks, a.arcfaceDstMat, a.arcfaceSize)
}

// alignForInswapper aligns a face to 128x128 for the swap generator.
func (a *faceAligner) alignForInswapper(img gocv.Mat, landmarks face_model.Landmarks) *alignResult {
	return a.alignFace(img, landmarks, a.inswapperDstMat, a.inswapperSize)
}

func (a *faceAligner) alignFace(img gocv.Mat, landmarks face_model.Landmarks, dstPts gocv.Mat, size int) *alignResult {
	srcPts := gocv.NewMatWithSize(5, 2, gocv.MatTypeCV32F)
	defer srcPts.Close()

	pts := landmarks.AsSlice()
	for i := 0; i < 5; i++ {
		srcPts.SetFloatAt(i, 0, pts[i*2])
		srcPts.SetFloatAt(i, 1, pts[i*2+1])
	}

	transform := estimateSimilarityTransform(srcPts, dstPts)

	aligned := gocv.NewMat()
	gocv.WarpAffine(img, &aligned, transform, image.Pt(size, size))

	return &alignResult{
		alignedFace: aligned,
		transform:   transform,
	}
}

func (a *faceAligner) close() {
	a.arcfaceDstMat.Close()
	a.inswapperDstMat.Close()
}

// estimateSimilarityTransform computes the 2x3 similarity transform
// (rotation, uniform scale, translation) mapping src points onto dst points
// by least squares.
func estimateSimilarityTransform(src, dst gocv.Mat) gocv.Mat {
	n := src.Rows()

	var srcCx, srcCy, dstCx, dstCy float32
	for i := 0; i < n; i++ {
		srcCx += src.GetFloatAt(i, 0)
		srcCy += src.GetFloatAt(i, 1)
		dstCx += dst.GetFloatAt(i, 0)
		dstCy += dst.GetFloatAt(i, 1)
	}
	srcCx /= float32(n)
	srcCy /= float32(n)
	dstCx /= float32(n)
	dstCy /= float32(n)

	var srcNorm, dstNorm float64
	srcCentered := make([]float32, n*2)
	dstCentered := make([]float32, n*2)

	for i := 0; i < n; i++ {
		srcCentered[i*2] = src.GetFloatAt(i, 0) - srcCx
		srcCentered[i*2+1] = src.GetFloatAt(i, 1) - srcCy
		dstCentered[i*2] = dst.GetFloatAt(i, 0) - dstCx
		dstCentered[i*2+1] = dst.GetFloatAt(i, 1) - dstCy

		srcNorm += float64(srcCentered[i*2]*srcCentered[i*2] + srcCentered[i*2+1]*srcCentered[i*2+1])
		dstNorm += float64(dstCentered[i*2]*dstCentered[i*2] + dstCentered[i*2+1]*dstCentered[i*2+1])
	}

	srcNorm = math.Sqrt(srcNorm)
	dstNorm = math.Sqrt(dstNorm)

	var a11, a12, a21, a22 float64
	for i := 0; i < n; i++ {
		sx := float64(srcCentered[i*2])
		sy := float64(srcCentered[i*2+1])
		dx := float64(dstCentered[i*2])
		dy := float64(dstCentered[i*2+1])

		a11 += sx * dx
		a12 += sx * dy
		a21 += sy * dx
		a22 += sy * dy
	}

	// cos ∝ a11 + a22, sin ∝ a21 - a12
	norm := math.Sqrt((a11+a22)*(a11+a22) + (a21-a12)*(a21-a12))
	if norm < 1e-10 {
		norm = 1
	}

	cosTheta := (a11 + a22) / norm
	sinTheta := (a21 - a12) / norm
	scale := dstNorm / srcNorm

	transform := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	transform.SetDoubleAt(0, 0, scale*cosTheta)
	transform.SetDoubleAt(0, 1, -scale*sinTheta)
	transform.SetDoubleAt(1, 0, scale*sinTheta)
	transform.SetDoubleAt(1, 1, scale*cosTheta)

	tx := float64(dstCx) - scale*(cosTheta*float64(srcCx)-sinTheta*float64(srcCy))
	ty := float64(dstCy) - scale*(sinTheta*float64(srcCx)+cosTheta*float64(srcCy))
	transform.SetDoubleAt(0, 2, tx)
	transform.SetDoubleAt(1, 2, ty)

	return transform
}
