package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"face-swap/internal/pkg/imaging"
)

func solidImage(t *testing.T, w, h int, v uint8) *imaging.ImageBuffer {
	t.Helper()

	pix := make([]uint8, w*h*3)
	for i := range pix {
		pix[i] = v
	}

	img, err := imaging.FromBGR(w, h, pix)
	if err != nil {
		t.Fatalf("failed to build image: %v", err)
	}
	return img
}

func Test_Decode_JPEG(t *testing.T) {

	src := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 30, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	got, err := imaging.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got.Width != 64 || got.Height != 48 {
		t.Errorf("Decode() dimensions = %dx%d, want 64x48", got.Width, got.Height)
	}
	if len(got.Pix) != 64*48*3 {
		t.Errorf("Decode() pixel data length = %d, want %d", len(got.Pix), 64*48*3)
	}
}

func Test_Decode_InvalidData(t *testing.T) {

	_, err := imaging.Decode(bytes.NewReader([]byte("definitely not an image")))
	if err == nil {
		t.Errorf("Decode() error = nil, want decode failure")
	}
}

func Test_EncodeJPEG_RoundTripKeepsDimensions(t *testing.T) {

	img := solidImage(t, 320, 200, 90)

	data, err := img.EncodeJPEG()
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-decode error = %v", err)
	}

	if decoded.Width != img.Width || decoded.Height != img.Height {
		t.Errorf("round trip dimensions = %dx%d, want %dx%d",
			decoded.Width, decoded.Height, img.Width, img.Height)
	}
}

func Test_FromBGR_RejectsBadInput(t *testing.T) {

	tests := []struct {
		name string
		w, h int
		pix  []uint8
	}{
		{name: "zero width", w: 0, h: 10, pix: []uint8{}},
		{name: "negative height", w: 10, h: -1, pix: []uint8{}},
		{name: "length mismatch", w: 10, h: 10, pix: make([]uint8, 17)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := imaging.FromBGR(tt.w, tt.h, tt.pix); err == nil {
				t.Errorf("FromBGR(%d, %d) error = nil, want error", tt.w, tt.h)
			}
		})
	}
}

func Test_Grayscale_UniformImage(t *testing.T) {

	img := solidImage(t, 8, 8, 137)

	gray := img.Grayscale()

	if len(gray) != 64 {
		t.Fatalf("Grayscale() length = %d, want 64", len(gray))
	}
	for i, v := range gray {
		if v != 137 {
			t.Fatalf("Grayscale()[%d] = %d, want 137", i, v)
		}
	}
}

func Test_MeanBrightness(t *testing.T) {

	gray := []uint8{0, 255, 0, 255}

	if got := imaging.MeanBrightness(gray); got != 127.5 {
		t.Errorf("MeanBrightness() = %v, want 127.5", got)
	}

	if got := imaging.MeanBrightness(nil); got != 0 {
		t.Errorf("MeanBrightness(nil) = %v, want 0", got)
	}
}

func Test_LaplacianVariance(t *testing.T) {

	flat := solidImage(t, 16, 16, 100)
	if got := imaging.LaplacianVariance(flat.Grayscale(), 16, 16); got != 0 {
		t.Errorf("LaplacianVariance(flat) = %v, want 0", got)
	}

	// A checkerboard has maximal second-derivative response.
	pix := make([]uint8, 16*16*3)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			var v uint8
			if (x+y)%2 == 0 {
				v = 255
			}
			i := (y*16 + x) * 3
			pix[i], pix[i+1], pix[i+2] = v, v, v
		}
	}
	checker, err := imaging.FromBGR(16, 16, pix)
	if err != nil {
		t.Fatalf("failed to build image: %v", err)
	}

	got := imaging.LaplacianVariance(checker.Grayscale(), 16, 16)
	want := 1020.0 * 1020.0
	if got != want {
		t.Errorf("LaplacianVariance(checker) = %v, want %v", got, want)
	}

	if got := imaging.LaplacianVariance([]uint8{1, 2, 3, 4}, 2, 2); got != 0 {
		t.Errorf("LaplacianVariance(2x2) = %v, want 0", got)
	}
}
