package vision

import (
	"fmt"

	"face-swap/internal/pkg/imaging"
	"face-swap/internal/pkg/model/face_model"
)

const blendBlurSize = 21

// Swapper composites a source identity onto a target face. It implements
// FaceSwapper on top of the ArcFace encoder and the inswapper generator.
type Swapper struct {
	encoder   *arcFaceEncoder
	generator *inswapper
	aligner   *faceAligner
	blender   *blender
}

// NewSwapper loads the encoder and generator models.
func NewSwapper(arcfacePath, inswapperPath, emapPath string) (*Swapper, error) {
	enc, err := newArcFaceEncoder(arcfacePath)
	if err != nil {
		return nil, err
	}

	gen, err := newInswapper(inswapperPath, emapPath)
	if err != nil {
		enc.close()
		return nil, err
	}

	return &Swapper{
		encoder:   enc,
		generator: gen,
		aligner:   newFaceAligner(),
		blender:   newBlender(blendBlurSize),
	}, nil
}

// SwapFace puts the source face's identity onto the target face and returns
// the full target frame with the result composited in. The inputs are not
// modified.
func (s *Swapper) SwapFace(target *imaging.ImageBuffer, targetFace face_model.DetectedFace,
	source *imaging.ImageBuffer, sourceFace face_model.DetectedFace) (*imaging.ImageBuffer, error) {

	srcMat, err := matFromBuffer(source)
	if err != nil {
		return nil, &SwapError{Err: err}
	}
	defer srcMat.Close()

	srcAligned := s.aligner.alignForArcFace(srcMat, sourceFace.Landmarks)
	defer srcAligned.close()

	sourceEmbedding, err := s.encoder.extract(srcAligned.alignedFace)
	if err != nil {
		return nil, &SwapError{Err: fmt.Errorf("embedding extraction failed: %w", err)}
	}

	tgtMat, err := matFromBuffer(target)
	if err != nil {
		return nil, &SwapError{Err: err}
	}
	defer tgtMat.Close()

	// The blender writes into the frame, so work on a copy to keep the
	// caller's buffer immutable.
	frame := tgtMat.Clone()
	defer frame.Close()

	tgtAligned := s.aligner.alignForInswapper(frame, targetFace.Landmarks)
	defer tgtAligned.close()

	swappedFace, err := s.generator.generate(tgtAligned.alignedFace, sourceEmbedding)
	if err != nil {
		return nil, &SwapError{Err: err}
	}
	defer swappedFace.Close()

	s.blender.blendFace(swappedFace, &frame, tgtAligned.transform, targetFace.Landmarks)

	result, err := bufferFromMat(frame)
	if err != nil {
		return nil, &SwapError{Err: err}
	}

	return result, nil
}

// Close releases the underlying model sessions.
func (s *Swapper) Close() error {
	s.aligner.close()

	encErr := s.encoder.close()
	genErr := s.generator.close()

	if encErr != nil {
		return encErr
	}
	return genErr
}
