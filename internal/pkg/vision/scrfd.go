package vision

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"face-swap/internal/pkg/imaging"
	"face-swap/internal/pkg/model/face_model"
)

// scrfdFace is an internal detection before conversion to the API model.
type scrfdFace struct {
	x1, y1, x2, y2 float32
	score          float32
	landmarks      face_model.Landmarks
}

func (f scrfdFace) area() float32 {
	return (f.x2 - f.x1) * (f.y2 - f.y1)
}

// SCRFD runs the SCRFD face detection model and estimates head pose from
// its five-point landmarks. It implements FaceAnalyzer.
type SCRFD struct {
	session        *session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a detector from an SCRFD ONNX model.
func NewSCRFD(modelPath string, inputSize int, confThreshold, nmsThreshold float32) (*SCRFD, error) {
	// SCRFD has 1 input and 9 outputs (3 levels x 3 outputs each: score, bbox, kps).
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	sess, err := newSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        sess,
		inputSize:      inputSize,
		confThreshold:  confThreshold,
		nmsThreshold:   nmsThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2,
	}, nil
}

// DetectFaces finds faces in an image, ordered by descending detection score.
func (s *SCRFD) DetectFaces(img *imaging.ImageBuffer) ([]face_model.DetectedFace, error) {
	mat, err := matFromBuffer(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	raw, err := s.detect(mat)
	if err != nil {
		return nil, err
	}

	faces := make([]face_model.DetectedFace, 0, len(raw))
	for _, f := range raw {
		faces = append(faces, face_model.DetectedFace{
			Box: image.Rect(
				int(f.x1), int(f.y1),
				int(f.x2), int(f.y2),
			),
			Confidence: float64(f.score),
			Landmarks:  f.landmarks,
			Pose:       estimatePose(f.landmarks),
		})
	}

	return faces, nil
}

func (s *SCRFD) detect(img gocv.Mat) ([]scrfdFace, error) {
	origHeight := img.Rows()
	origWidth := img.Cols()

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	floatData := bytesToFloat32(inputBlob.ToBytes())

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(s.inputSize), int64(s.inputSize)),
		floatData,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 9)

	for i := 0; i < 3; i++ {
		fm := s.inputSize / s.featureStrides[i]
		numAnchors := fm * fm * s.numAnchors

		scoreTensor, _ := newEmptyTensor([]int64{int64(numAnchors), 1})
		outputs[i] = scoreTensor
		outputTensors[i] = scoreTensor

		bboxTensor, _ := newEmptyTensor([]int64{int64(numAnchors), 4})
		outputs[i+3] = bboxTensor
		outputTensors[i+3] = bboxTensor

		kpsTensor, _ := newEmptyTensor([]int64{int64(numAnchors), 10})
		outputs[i+6] = kpsTensor
		outputTensors[i+6] = kpsTensor
	}
	defer func() {
		for _, t := range outputTensors {
			t.Destroy()
		}
	}()

	if err := s.session.run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	faces := s.postprocess(outputTensors, scale, origWidth, origHeight)

	return nms(faces, s.nmsThreshold), nil
}

// preprocess letterboxes the image to the square model input and normalizes
// it the way SCRFD expects: RGB, (x - 127.5) / 128.
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	height := img.Rows()
	width := img.Cols()

	longest := width
	if height > longest {
		longest = height
	}
	scale := float32(s.inputSize) / float32(longest)

	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))

	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(padded, &rgb, gocv.ColorBGRToRGB)
	padded.Close()

	blob := gocv.NewMat()
	rgb.ConvertTo(&blob, gocv.MatTypeCV32FC3)
	rgb.Close()

	gocv.AddWeighted(blob, 1.0/128.0, blob, 0, -127.5/128.0, &blob)

	blobNCHW := gocv.BlobFromImage(blob, 1.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	blob.Close()

	return blobNCHW, scale
}

// postprocess decodes the anchor grid outputs into faces in original image
// coordinates.
func (s *SCRFD) postprocess(outputs []*ort.Tensor[float32], scale float32, origWidth, origHeight int) []scrfdFace {
	var faces []scrfdFace

	for level := 0; level < 3; level++ {
		stride := s.featureStrides[level]
		fmHeight := s.inputSize / stride
		fmWidth := s.inputSize / stride

		scoreData := outputs[level].GetData()
		bboxData := outputs[level+3].GetData()
		kpsData := outputs[level+6].GetData()

		anchorIdx := 0
		for y := 0; y < fmHeight; y++ {
			for x := 0; x < fmWidth; x++ {
				for a := 0; a < s.numAnchors; a++ {
					score := sigmoid(scoreData[anchorIdx])

					if score > s.confThreshold {
						cx := (float32(x) + 0.5) * float32(stride)
						cy := (float32(y) + 0.5) * float32(stride)

						// bbox outputs are distances to the box edges
						bboxIdx := anchorIdx * 4
						x1 := (cx - bboxData[bboxIdx]*float32(stride)) / scale
						y1 := (cy - bboxData[bboxIdx+1]*float32(stride)) / scale
						x2 := (cx + bboxData[bboxIdx+2]*float32(stride)) / scale
						y2 := (cy + bboxData[bboxIdx+3]*float32(stride)) / scale

						x1 = clamp(x1, 0, float32(origWidth))
						y1 = clamp(y1, 0, float32(origHeight))
						x2 = clamp(x2, 0, float32(origWidth))
						y2 = clamp(y2, 0, float32(origHeight))

						kpsIdx := anchorIdx * 10
						landmarks := face_model.Landmarks{
							LeftEye:    face_model.Point{X: (cx + kpsData[kpsIdx]*float32(stride)) / scale, Y: (cy + kpsData[kpsIdx+1]*float32(stride)) / scale},
							RightEye:   face_model.Point{X: (cx + kpsData[kpsIdx+2]*float32(stride)) / scale, Y: (cy + kpsData[kpsIdx+3]*float32(stride)) / scale},
							Nose:       face_model.Point{X: (cx + kpsData[kpsIdx+4]*float32(stride)) / scale, Y: (cy + kpsData[kpsIdx+5]*float32(stride)) / scale},
							LeftMouth:  face_model.Point{X: (cx + kpsData[kpsIdx+6]*float32(stride)) / scale, Y: (cy + kpsData[kpsIdx+7]*float32(stride)) / scale},
							RightMouth: face_model.Point{X: (cx + kpsData[kpsIdx+8]*float32(stride)) / scale, Y: (cy + kpsData[kpsIdx+9]*float32(stride)) / scale},
						}

						faces = append(faces, scrfdFace{
							x1: x1, y1: y1, x2: x2, y2: y2,
							score:     score,
							landmarks: landmarks,
						})
					}
					anchorIdx++
				}
			}
		}
	}

	return faces
}

// Close releases detector resources.
func (s *SCRFD) Close() error {
	return s.session.destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
