package vision

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// emap is the 512x512 latent transformation matrix that maps an ArcFace
// embedding into the identity space the inswapper generator expects.
type emap [512][512]float32

// loadEmap reads the emap matrix from a little-endian float32 binary file.
func loadEmap(path string) (*emap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read emap file: %w", err)
	}

	expectedSize := 512 * 512 * 4
	if len(data) != expectedSize {
		return nil, fmt.Errorf("emap file size mismatch: expected %d, got %d", expectedSize, len(data))
	}

	var m emap
	for i := 0; i < 512; i++ {
		for j := 0; j < 512; j++ {
			offset := (i*512 + j) * 4
			m[i][j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
		}
	}

	return &m, nil
}

// transform projects an embedding through the emap and L2-normalizes the
// resulting latent.
func (m *emap) transform(emb *embedding) *embedding {
	var latent embedding

	for j := 0; j < 512; j++ {
		var sum float32
		for i := 0; i < 512; i++ {
			sum += emb[i] * m[i][j]
		}
		latent[j] = sum
	}

	var norm float64
	for _, v := range latent {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm < 1e-10 {
		norm = 1
	}

	for i := range latent {
		latent[i] = latent[i] / float32(norm)
	}

	return &latent
}

// inswapper generates a swapped 128x128 face from an aligned target face and
// a source identity latent.
type inswapper struct {
	session *session
	emap    *emap
}

func newInswapper(modelPath, emapPath string) (*inswapper, error) {
	inputNames := []string{"target", "source"}
	outputNames := []string{"output"}

	sess, err := newSession(modelPath, inputNames, outputNames)
	if err != nil {
		return nil, fmt.Errorf("failed to create inswapper session: %w", err)
	}

	m, err := loadEmap(emapPath)
	if err != nil {
		sess.destroy()
		return nil, err
	}

	return &inswapper{session: sess, emap: m}, nil
}

// generate runs the swap network. targetFace must be an aligned 128x128 BGR
// crop; the returned Mat is the swapped 128x128 BGR face.
func (s *inswapper) generate(targetFace gocv.Mat, sourceEmbedding *embedding) (gocv.Mat, error) {
	if targetFace.Rows() != 128 || targetFace.Cols() != 128 {
		return gocv.NewMat(), fmt.Errorf("expected 128x128 target, got %dx%d", targetFace.Cols(), targetFace.Rows())
	}

	latent := s.emap.transform(sourceEmbedding)

	targetTensor, err := ort.NewTensor(ort.NewShape(1, 3, 128, 128), s.preprocessTarget(targetFace))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create target tensor: %w", err)
	}
	defer targetTensor.Destroy()

	sourceTensor, err := ort.NewTensor(ort.NewShape(1, 512), latent[:])
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create source tensor: %w", err)
	}
	defer sourceTensor.Destroy()

	outputTensor, err := newEmptyTensor([]int64{1, 3, 128, 128})
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	err = s.session.run(
		[]ort.Value{targetTensor, sourceTensor},
		[]ort.Value{outputTensor},
	)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("inference failed: %w", err)
	}

	return s.postprocess(outputTensor.GetData()), nil
}

// preprocessTarget matches the insightface preprocessing:
// blobFromImage(aimg, 1/255, (128,128), (0,0,0), swapRB=true).
func (s *inswapper) preprocessTarget(img gocv.Mat) []float32 {
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(128, 128),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	return bytesToFloat32(blob.ToBytes())
}

// postprocess converts the NCHW RGB [0,1] output back to an 8-bit BGR Mat.
func (s *inswapper) postprocess(data []float32) gocv.Mat {
	result := gocv.NewMatWithSize(128, 128, gocv.MatTypeCV8UC3)

	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			rIdx := 0*128*128 + y*128 + x
			gIdx := 1*128*128 + y*128 + x
			bIdx := 2*128*128 + y*128 + x

			result.SetUCharAt(y, x*3, clampByte(data[bIdx]*255.0))
			result.SetUCharAt(y, x*3+1, clampByte(data[gIdx]*255.0))
			result.SetUCharAt(y, x*3+2, clampByte(data[rIdx]*255.0))
		}
	}

	return result
}

func (s *inswapper) close() error {
	return s.session.destroy()
}

func clampByte(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
