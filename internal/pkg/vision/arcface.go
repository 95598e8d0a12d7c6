package vision

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// embedding is a 512-dimensional face identity embedding.
type embedding [512]float32

// arcFaceEncoder extracts identity embeddings from aligned 112x112 faces.
type arcFaceEncoder struct {
	session *session
}

func newArcFaceEncoder(modelPath string) (*arcFaceEncoder, error) {
	inputNames := []string{"input.1"}
	outputNames := []string{"683"}

	sess, err := newSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create ArcFace session: %w", err)
	}

	return &arcFaceEncoder{session: sess}, nil
}

// extract computes the L2-normalized embedding of an aligned face.
func (e *arcFaceEncoder) extract(alignedFace gocv.Mat) (*embedding, error) {
	if alignedFace.Rows() != 112 || alignedFace.Cols() != 112 {
		return nil, fmt.Errorf("expected 112x112 input, got %dx%d", alignedFace.Cols(), alignedFace.Rows())
	}

	inputData := e.preprocess(alignedFace)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, 112, 112), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := newEmptyTensor([]int64{1, 512})
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := e.session.run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return normalizeEmbedding(outputTensor.GetData()), nil
}

func (e *arcFaceEncoder) preprocess(img gocv.Mat) []float32 {
	rgb := gocv.NewMat()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	floatImg := gocv.NewMat()
	rgb.ConvertTo(&floatImg, gocv.MatTypeCV32FC3)
	defer floatImg.Close()

	blob := gocv.BlobFromImage(floatImg, 1.0/255.0, image.Pt(112, 112),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	return bytesToFloat32(blob.ToBytes())
}

func (e *arcFaceEncoder) close() error {
	return e.session.destroy()
}

// normalizeEmbedding L2-normalizes a raw model output.
func normalizeEmbedding(data []float32) *embedding {
	var emb embedding

	var norm float64
	for _, v := range data[:512] {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)

	if norm < 1e-10 {
		norm = 1
	}

	for i := 0; i < 512; i++ {
		emb[i] = data[i] / float32(norm)
	}

	return &emb
}
