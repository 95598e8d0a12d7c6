// Package imaging provides the in-memory image representation used across
// the service, plus the grayscale statistics the quality scorer is built on.
package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	_ "image/gif"
	_ "image/png"
)

// JpegQuality is the encode quality of every JPEG the service produces.
const JpegQuality = 95

// ErrEmptyImage is returned when an image decodes to zero pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// ImageBuffer is a decoded raster image: 3-channel BGR, row-major.
// Buffers are treated as immutable once created.
type ImageBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// Decode reads and decodes a JPEG, PNG or GIF image into an ImageBuffer.
func Decode(r io.Reader) (*ImageBuffer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// FromImage converts a stdlib image into an ImageBuffer.
func FromImage(img image.Image) (*ImageBuffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, ErrEmptyImage
	}

	buf := &ImageBuffer{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*3),
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			buf.Pix[i] = uint8(b >> 8)
			buf.Pix[i+1] = uint8(g >> 8)
			buf.Pix[i+2] = uint8(r >> 8)
			i += 3
		}
	}

	return buf, nil
}

// FromBGR wraps raw BGR bytes in an ImageBuffer. The data is not copied.
func FromBGR(width, height int, pix []uint8) (*ImageBuffer, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height*3 {
		return nil, ErrEmptyImage
	}
	return &ImageBuffer{Width: width, Height: height, Pix: pix}, nil
}

// ToImage converts the buffer back into a stdlib image.
func (b *ImageBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	i := 0
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: b.Pix[i+2],
				G: b.Pix[i+1],
				B: b.Pix[i],
				A: 255,
			})
			i += 3
		}
	}
	return img
}

// EncodeJPEG encodes the buffer as a JPEG at the service quality setting.
func (b *ImageBuffer) EncodeJPEG() ([]byte, error) {
	var out bytes.Buffer
	if err := jpeg.Encode(&out, b.ToImage(), &jpeg.Options{Quality: JpegQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Grayscale returns the luma plane of the image, one byte per pixel.
func (b *ImageBuffer) Grayscale() []uint8 {
	gray := make([]uint8, b.Width*b.Height)
	for p := 0; p < len(gray); p++ {
		i := p * 3
		// Same weights OpenCV uses for BGR to gray conversion.
		v := 0.114*float64(b.Pix[i]) + 0.587*float64(b.Pix[i+1]) + 0.299*float64(b.Pix[i+2]) + 0.5
		if v > 255 {
			v = 255
		}
		gray[p] = uint8(v)
	}
	return gray
}

// MeanBrightness returns the mean grayscale intensity of the image.
func MeanBrightness(gray []uint8) float64 {
	if len(gray) == 0 {
		return 0
	}
	var sum float64
	for _, v := range gray {
		sum += float64(v)
	}
	return sum / float64(len(gray))
}

// LaplacianVariance computes the variance of the 3x3 Laplacian response of a
// grayscale plane. Higher values indicate a sharper image.
func LaplacianVariance(gray []uint8, width, height int) float64 {
	if width < 3 || height < 3 {
		return 0
	}

	n := (width - 2) * (height - 2)
	responses := make([]float64, 0, n)

	var sum float64
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			lap := float64(gray[i-width]) + float64(gray[i-1]) +
				float64(gray[i+1]) + float64(gray[i+width]) -
				4*float64(gray[i])
			responses = append(responses, lap)
			sum += lap
		}
	}

	mean := sum / float64(n)
	var variance float64
	for _, v := range responses {
		d := v - mean
		variance += d * d
	}

	return variance / float64(n)
}
