// Package swap_service orchestrates the face swap workflows: analyzing a
// photo's suitability, swapping a face between two images and selecting the
// best of several candidate photos.
package swap_service

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"face-swap/internal/pkg/imaging"
	"face-swap/internal/pkg/model/swap_model"
	"face-swap/internal/pkg/quality"
	"face-swap/internal/pkg/repo"
	"face-swap/internal/pkg/vision"
)

const (
	serviceName = "face-swap-service"

	// selectFanout bounds concurrent fetch+score work in SelectBestPhoto.
	selectFanout = 10

	maxFallbacks = 2
)

var (
	// ErrInvalidInput reports a structurally invalid request, caught before
	// any network work happens.
	ErrInvalidInput = errors.New("image_urls must be a non-empty array")

	// ErrNoValidImages reports that every candidate URL failed to fetch.
	ErrNoValidImages = errors.New("no valid images found")

	// ErrModelsNotLoaded reports that model bootstrap failed at startup and
	// the endpoint cannot serve.
	ErrModelsNotLoaded = errors.New("models are not loaded")
)

// Fetcher downloads and decodes a remote image.
type Fetcher interface {
	Fetch(url string) (*imaging.ImageBuffer, error)
}

// SwapService implements the face swap operations on top of the image
// fetcher, the vision models and the optional history store.
type SwapService struct {
	repo     *repo.Repo
	fetcher  Fetcher
	analyzer vision.FaceAnalyzer
	swapper  vision.FaceSwapper
}

// New creates a SwapService. analyzer and swapper may be nil when model
// bootstrap failed; the service then reports itself unhealthy and rejects
// model-backed requests instead of crashing.
func New(repo *repo.Repo, fetcher Fetcher, analyzer vision.FaceAnalyzer, swapper vision.FaceSwapper) *SwapService {
	return &SwapService{
		repo:     repo,
		fetcher:  fetcher,
		analyzer: analyzer,
		swapper:  swapper,
	}
}

// ModelsLoaded reports whether both model handles are available.
func (s *SwapService) ModelsLoaded() bool {
	return s.analyzer != nil && s.swapper != nil
}

// Health describes the service state. It never fails: a service without
// models is up but reports models_loaded false.
func (s *SwapService) Health() *swap_model.HealthStatus {
	return &swap_model.HealthStatus{
		Status:       "healthy",
		Service:      serviceName,
		ModelsLoaded: s.ModelsLoaded(),
	}
}

// AnalyzePhoto downloads one image and scores its face swap suitability.
// A photo without a detectable face yields a zero-score report, not an error.
func (s *SwapService) AnalyzePhoto(imageURL string) (*swap_model.QualityReport, error) {
	if !s.ModelsLoaded() {
		return nil, ErrModelsNotLoaded
	}

	img, err := s.fetcher.Fetch(imageURL)
	if err != nil {
		return nil, err
	}

	report := s.analyzeImage(img)
	s.recordAnalysis(imageURL, report)

	return &report, nil
}

// analyzeImage runs detection and scoring. Detection failures are folded
// into the report the same way a missing face is.
func (s *SwapService) analyzeImage(img *imaging.ImageBuffer) swap_model.QualityReport {
	faces, err := s.analyzer.DetectFaces(img)
	if err != nil {
		log.Println(err)
		return swap_model.QualityReport{
			Score:        0,
			FaceDetected: false,
			Error:        err.Error(),
		}
	}

	return quality.Score(img, faces)
}

// SwapFace downloads the target and source images, swaps the first source
// face onto the first target face and returns the composited frame as JPEG.
func (s *SwapService) SwapFace(targetURL, sourceURL string) ([]byte, error) {
	if !s.ModelsLoaded() {
		return nil, ErrModelsNotLoaded
	}

	var target, source *imaging.ImageBuffer

	g := new(errgroup.Group)
	g.Go(func() (err error) {
		target, err = s.fetcher.Fetch(targetURL)
		return err
	})
	g.Go(func() (err error) {
		source, err = s.fetcher.Fetch(sourceURL)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	targetFaces, err := s.analyzer.DetectFaces(target)
	if err != nil {
		return nil, &vision.SwapError{Err: err}
	}
	if len(targetFaces) == 0 {
		return nil, &vision.NoFaceError{Image: "target"}
	}

	sourceFaces, err := s.analyzer.DetectFaces(source)
	if err != nil {
		return nil, &vision.SwapError{Err: err}
	}
	if len(sourceFaces) == 0 {
		return nil, &vision.NoFaceError{Image: "source"}
	}

	result, err := s.swapper.SwapFace(target, targetFaces[0], source, sourceFaces[0])
	if err != nil {
		return nil, err
	}

	jpegData, err := result.EncodeJPEG()
	if err != nil {
		return nil, fmt.Errorf("failed to encode result image: %w", err)
	}

	return jpegData, nil
}

// SelectBestPhoto fetches and scores every candidate URL and ranks them.
// URLs that fail to fetch are skipped; photos without faces keep their
// zero-score report and stay in the ranking.
func (s *SwapService) SelectBestPhoto(imageURLs []string) (*swap_model.SelectionResult, error) {
	if len(imageURLs) == 0 {
		return nil, ErrInvalidInput
	}

	if !s.ModelsLoaded() {
		return nil, ErrModelsNotLoaded
	}

	// Indexed result slots keep the input order so the sort below stays
	// deterministic regardless of completion order.
	scored := make([]*swap_model.ScoredPhoto, len(imageURLs))

	g := new(errgroup.Group)
	g.SetLimit(selectFanout)

	for i, url := range imageURLs {
		idx := i
		currURL := url
		g.Go(func() error {
			img, err := s.fetcher.Fetch(currURL)
			if err != nil {
				log.Println(err)
				return nil
			}

			scored[idx] = &swap_model.ScoredPhoto{
				URL:           currURL,
				QualityReport: s.analyzeImage(img),
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]swap_model.ScoredPhoto, 0, len(scored))
	for _, r := range scored {
		if r != nil {
			results = append(results, *r)
		}
	}

	if len(results) == 0 {
		return nil, ErrNoValidImages
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	for _, r := range results {
		s.recordAnalysis(r.URL, r.QualityReport)
	}

	fallbacks := make([]string, 0, maxFallbacks)
	for _, r := range results[1:] {
		if len(fallbacks) == maxFallbacks {
			break
		}
		fallbacks = append(fallbacks, r.URL)
	}

	return &swap_model.SelectionResult{
		Primary:   results[0].URL,
		Fallbacks: fallbacks,
		Scores:    results,
	}, nil
}

// GetHistory returns the newest analysis records.
func (s *SwapService) GetHistory(limit int) ([]*swap_model.AnalysisRecord, error) {
	return s.repo.GetRecentRecords(limit)
}

// recordAnalysis writes one analysis outcome to the history store. Storage
// failures are logged, never surfaced to the request.
func (s *SwapService) recordAnalysis(imageURL string, report swap_model.QualityReport) {
	record := &swap_model.AnalysisRecord{
		ImageURL:     imageURL,
		Score:        report.Score,
		FaceDetected: report.FaceDetected,
	}

	if _, err := s.repo.CreateRecord(record); err != nil {
		log.Println(err)
	}
}
