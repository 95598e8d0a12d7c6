package swap_service_test

import (
	"bytes"
	"errors"
	"image"
	"sync"
	"testing"

	"face-swap/internal/pkg/clients/image_client"
	"face-swap/internal/pkg/imaging"
	"face-swap/internal/pkg/model/face_model"
	"face-swap/internal/pkg/model/swap_model"
	"face-swap/internal/pkg/repo"
	"face-swap/internal/pkg/service/swap_service"
	"face-swap/internal/pkg/vision"
)

type fakeFetcher struct {
	mu     sync.Mutex
	images map[string]*imaging.ImageBuffer
	calls  int
}

func (f *fakeFetcher) Fetch(url string) (*imaging.ImageBuffer, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	img, ok := f.images[url]
	if !ok {
		return nil, &image_client.FetchError{URL: url, Err: errors.New("connection refused")}
	}
	return img, nil
}

type fakeAnalyzer struct {
	faces map[*imaging.ImageBuffer][]face_model.DetectedFace
	err   error
}

func (f *fakeAnalyzer) DetectFaces(img *imaging.ImageBuffer) ([]face_model.DetectedFace, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.faces[img], nil
}

func (f *fakeAnalyzer) Close() error { return nil }

type fakeSwapper struct {
	result *imaging.ImageBuffer
	err    error
}

func (f *fakeSwapper) SwapFace(target *imaging.ImageBuffer, targetFace face_model.DetectedFace,
	source *imaging.ImageBuffer, sourceFace face_model.DetectedFace) (*imaging.ImageBuffer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSwapper) Close() error { return nil }

type fakeHistory struct {
	records []*swap_model.AnalysisRecord
}

func (f *fakeHistory) CreateRecord(record *swap_model.AnalysisRecord) (int, error) {
	f.records = append(f.records, record)
	return len(f.records), nil
}

func (f *fakeHistory) GetRecentRecords(limit int) ([]*swap_model.AnalysisRecord, error) {
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

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

// strongFace scores well above weakFace on the same image.
func strongFace() []face_model.DetectedFace {
	return []face_model.DetectedFace{{
		Box:        image.Rect(0, 0, 50, 50),
		Confidence: 1.0,
		Pose:       &face_model.Pose{Yaw: 0},
	}}
}

func weakFace() []face_model.DetectedFace {
	return []face_model.DetectedFace{{
		Box:        image.Rect(0, 0, 10, 10),
		Confidence: 0.3,
		Pose:       &face_model.Pose{Yaw: 40},
	}}
}

func Test_SwapService_Health(t *testing.T) {

	tests := []struct {
		name     string
		analyzer vision.FaceAnalyzer
		swapper  vision.FaceSwapper
		want     bool
	}{
		{name: "models loaded", analyzer: &fakeAnalyzer{}, swapper: &fakeSwapper{}, want: true},
		{name: "bootstrap failed", analyzer: nil, swapper: nil, want: false},
		{name: "partial load is not loaded", analyzer: &fakeAnalyzer{}, swapper: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := swap_service.New(repo.NewNoopRepo(), &fakeFetcher{}, tt.analyzer, tt.swapper)

			got := s.Health()

			if got.Status != "healthy" {
				t.Errorf("Health().Status = %q, want %q", got.Status, "healthy")
			}
			if got.Service != "face-swap-service" {
				t.Errorf("Health().Service = %q, want %q", got.Service, "face-swap-service")
			}
			if got.ModelsLoaded != tt.want {
				t.Errorf("Health().ModelsLoaded = %v, want %v", got.ModelsLoaded, tt.want)
			}
		})
	}
}

func Test_SwapService_AnalyzePhoto(t *testing.T) {

	img := solidImage(t, 100, 100, 128)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/good.jpg": img,
	}}
	analyzer := &fakeAnalyzer{faces: map[*imaging.ImageBuffer][]face_model.DetectedFace{
		img: strongFace(),
	}}
	history := &fakeHistory{}

	s := swap_service.New(&repo.Repo{History: history}, fetcher, analyzer, &fakeSwapper{})

	report, err := s.AnalyzePhoto("http://img/good.jpg")
	if err != nil {
		t.Fatalf("AnalyzePhoto() error = %v", err)
	}

	if !report.FaceDetected {
		t.Errorf("AnalyzePhoto() face_detected = false, want true")
	}
	if report.Score <= 0 || report.Score > 100 {
		t.Errorf("AnalyzePhoto() score = %v, want in (0, 100]", report.Score)
	}
	if report.NumFaces != 1 {
		t.Errorf("AnalyzePhoto() num_faces = %v, want 1", report.NumFaces)
	}

	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	if history.records[0].ImageURL != "http://img/good.jpg" || history.records[0].Score != report.Score {
		t.Errorf("history record = %+v, does not match report", history.records[0])
	}
}

func Test_SwapService_AnalyzePhoto_FetchFailure(t *testing.T) {

	s := swap_service.New(repo.NewNoopRepo(), &fakeFetcher{}, &fakeAnalyzer{}, &fakeSwapper{})

	_, err := s.AnalyzePhoto("http://img/missing.jpg")

	var fetchErr *image_client.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("AnalyzePhoto() error = %v, want *FetchError", err)
	}
}

func Test_SwapService_AnalyzePhoto_NoFaceIsZeroScoreReport(t *testing.T) {

	img := solidImage(t, 100, 100, 128)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/empty.jpg": img,
	}}
	analyzer := &fakeAnalyzer{faces: map[*imaging.ImageBuffer][]face_model.DetectedFace{}}

	s := swap_service.New(repo.NewNoopRepo(), fetcher, analyzer, &fakeSwapper{})

	report, err := s.AnalyzePhoto("http://img/empty.jpg")
	if err != nil {
		t.Fatalf("AnalyzePhoto() error = %v", err)
	}

	if report.Score != 0 || report.FaceDetected {
		t.Errorf("AnalyzePhoto() = %+v, want zero-score undetected report", report)
	}
	if report.Error != "No face detected" {
		t.Errorf("AnalyzePhoto() error field = %q, want %q", report.Error, "No face detected")
	}
}

func Test_SwapService_ModelsNotLoaded(t *testing.T) {

	s := swap_service.New(repo.NewNoopRepo(), &fakeFetcher{}, nil, nil)

	if _, err := s.AnalyzePhoto("http://img/a.jpg"); !errors.Is(err, swap_service.ErrModelsNotLoaded) {
		t.Errorf("AnalyzePhoto() error = %v, want ErrModelsNotLoaded", err)
	}
	if _, err := s.SwapFace("http://img/a.jpg", "http://img/b.jpg"); !errors.Is(err, swap_service.ErrModelsNotLoaded) {
		t.Errorf("SwapFace() error = %v, want ErrModelsNotLoaded", err)
	}
	if _, err := s.SelectBestPhoto([]string{"http://img/a.jpg"}); !errors.Is(err, swap_service.ErrModelsNotLoaded) {
		t.Errorf("SelectBestPhoto() error = %v, want ErrModelsNotLoaded", err)
	}
}

func Test_SwapService_SwapFace(t *testing.T) {

	target := solidImage(t, 200, 160, 120)
	source := solidImage(t, 100, 100, 110)
	swapped := solidImage(t, 200, 160, 99)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/target.jpg": target,
		"http://img/source.jpg": source,
	}}
	analyzer := &fakeAnalyzer{faces: map[*imaging.ImageBuffer][]face_model.DetectedFace{
		target: strongFace(),
		source: weakFace(),
	}}
	swapper := &fakeSwapper{result: swapped}

	s := swap_service.New(repo.NewNoopRepo(), fetcher, analyzer, swapper)

	jpegData, err := s.SwapFace("http://img/target.jpg", "http://img/source.jpg")
	if err != nil {
		t.Fatalf("SwapFace() error = %v", err)
	}

	decoded, err := imaging.Decode(bytes.NewReader(jpegData))
	if err != nil {
		t.Fatalf("SwapFace() returned undecodable JPEG: %v", err)
	}
	if decoded.Width != swapped.Width || decoded.Height != swapped.Height {
		t.Errorf("SwapFace() result dimensions = %dx%d, want %dx%d",
			decoded.Width, decoded.Height, swapped.Width, swapped.Height)
	}
}

func Test_SwapService_SwapFace_NoFace(t *testing.T) {

	target := solidImage(t, 200, 160, 120)
	source := solidImage(t, 100, 100, 110)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/target.jpg": target,
		"http://img/source.jpg": source,
	}}

	tests := []struct {
		name      string
		faces     map[*imaging.ImageBuffer][]face_model.DetectedFace
		wantImage string
	}{
		{
			name:      "no face in target",
			faces:     map[*imaging.ImageBuffer][]face_model.DetectedFace{source: weakFace()},
			wantImage: "target",
		},
		{
			name:      "no face in source",
			faces:     map[*imaging.ImageBuffer][]face_model.DetectedFace{target: strongFace()},
			wantImage: "source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{faces: tt.faces}
			s := swap_service.New(repo.NewNoopRepo(), fetcher, analyzer, &fakeSwapper{})

			_, err := s.SwapFace("http://img/target.jpg", "http://img/source.jpg")

			var noFace *vision.NoFaceError
			if !errors.As(err, &noFace) {
				t.Fatalf("SwapFace() error = %v, want *NoFaceError", err)
			}
			if noFace.Image != tt.wantImage {
				t.Errorf("NoFaceError.Image = %q, want %q", noFace.Image, tt.wantImage)
			}
		})
	}
}

func Test_SwapService_SwapFace_SwapperFailure(t *testing.T) {

	target := solidImage(t, 200, 160, 120)
	source := solidImage(t, 100, 100, 110)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/target.jpg": target,
		"http://img/source.jpg": source,
	}}
	analyzer := &fakeAnalyzer{faces: map[*imaging.ImageBuffer][]face_model.DetectedFace{
		target: strongFace(),
		source: weakFace(),
	}}
	swapper := &fakeSwapper{err: &vision.SwapError{Err: errors.New("inference failed")}}

	s := swap_service.New(repo.NewNoopRepo(), fetcher, analyzer, swapper)

	_, err := s.SwapFace("http://img/target.jpg", "http://img/source.jpg")

	var swapErr *vision.SwapError
	if !errors.As(err, &swapErr) {
		t.Fatalf("SwapFace() error = %v, want *SwapError", err)
	}
}

func Test_SwapService_SelectBestPhoto(t *testing.T) {

	good := solidImage(t, 1200, 1100, 128)
	poor := solidImage(t, 100, 100, 30)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/good.jpg": good,
		"http://img/poor.jpg": poor,
	}}
	analyzer := &fakeAnalyzer{faces: map[*imaging.ImageBuffer][]face_model.DetectedFace{
		good: {{Box: image.Rect(0, 0, 600, 600), Confidence: 1.0, Pose: &face_model.Pose{Yaw: 0}}},
		poor: weakFace(),
	}}

	s := swap_service.New(repo.NewNoopRepo(), fetcher, analyzer, &fakeSwapper{})

	// One URL fails to fetch and must be silently skipped.
	result, err := s.SelectBestPhoto([]string{
		"http://img/poor.jpg",
		"http://img/broken.jpg",
		"http://img/good.jpg",
	})
	if err != nil {
		t.Fatalf("SelectBestPhoto() error = %v", err)
	}

	if result.Primary != "http://img/good.jpg" {
		t.Errorf("Primary = %q, want the high scorer", result.Primary)
	}
	if len(result.Fallbacks) != 1 || result.Fallbacks[0] != "http://img/poor.jpg" {
		t.Errorf("Fallbacks = %v, want [http://img/poor.jpg]", result.Fallbacks)
	}
	if len(result.Scores) != 2 {
		t.Fatalf("Scores length = %d, want 2", len(result.Scores))
	}
	if result.Scores[0].Score < result.Scores[1].Score {
		t.Errorf("Scores not sorted descending: %v < %v", result.Scores[0].Score, result.Scores[1].Score)
	}
}

func Test_SwapService_SelectBestPhoto_EmptyInput(t *testing.T) {

	fetcher := &fakeFetcher{}
	s := swap_service.New(repo.NewNoopRepo(), fetcher, &fakeAnalyzer{}, &fakeSwapper{})

	_, err := s.SelectBestPhoto(nil)

	if !errors.Is(err, swap_service.ErrInvalidInput) {
		t.Fatalf("SelectBestPhoto(nil) error = %v, want ErrInvalidInput", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher was called %d times, want 0", fetcher.calls)
	}
}

func Test_SwapService_SelectBestPhoto_AllFetchesFail(t *testing.T) {

	s := swap_service.New(repo.NewNoopRepo(), &fakeFetcher{}, &fakeAnalyzer{}, &fakeSwapper{})

	_, err := s.SelectBestPhoto([]string{"http://img/a.jpg", "http://img/b.jpg"})

	if !errors.Is(err, swap_service.ErrNoValidImages) {
		t.Errorf("SelectBestPhoto() error = %v, want ErrNoValidImages", err)
	}
}

func Test_SwapService_SelectBestPhoto_TiesKeepInputOrder(t *testing.T) {

	img := solidImage(t, 100, 100, 128)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/first.jpg":  img,
		"http://img/second.jpg": img,
		"http://img/third.jpg":  img,
	}}
	analyzer := &fakeAnalyzer{faces: map[*imaging.ImageBuffer][]face_model.DetectedFace{
		img: strongFace(),
	}}

	s := swap_service.New(repo.NewNoopRepo(), fetcher, analyzer, &fakeSwapper{})

	result, err := s.SelectBestPhoto([]string{
		"http://img/first.jpg",
		"http://img/second.jpg",
		"http://img/third.jpg",
	})
	if err != nil {
		t.Fatalf("SelectBestPhoto() error = %v", err)
	}

	if result.Primary != "http://img/first.jpg" {
		t.Errorf("Primary = %q, want input order kept on ties", result.Primary)
	}
	wantFallbacks := []string{"http://img/second.jpg", "http://img/third.jpg"}
	if len(result.Fallbacks) != 2 ||
		result.Fallbacks[0] != wantFallbacks[0] ||
		result.Fallbacks[1] != wantFallbacks[1] {
		t.Errorf("Fallbacks = %v, want %v", result.Fallbacks, wantFallbacks)
	}
}

func Test_SwapService_SelectBestPhoto_ZeroScoreStaysRanked(t *testing.T) {

	img := solidImage(t, 100, 100, 128)

	fetcher := &fakeFetcher{images: map[string]*imaging.ImageBuffer{
		"http://img/empty.jpg": img,
	}}
	analyzer := &fakeAnalyzer{faces: map[*imaging.ImageBuffer][]face_model.DetectedFace{}}

	s := swap_service.New(repo.NewNoopRepo(), fetcher, analyzer, &fakeSwapper{})

	result, err := s.SelectBestPhoto([]string{"http://img/empty.jpg"})
	if err != nil {
		t.Fatalf("SelectBestPhoto() error = %v", err)
	}

	// A photo without a face still wins when it is the only candidate.
	if result.Primary != "http://img/empty.jpg" {
		t.Errorf("Primary = %q, want the zero-score candidate", result.Primary)
	}
	if len(result.Scores) != 1 || result.Scores[0].Score != 0 || result.Scores[0].FaceDetected {
		t.Errorf("Scores = %+v, want one zero-score report", result.Scores)
	}
}

func Test_SwapService_GetHistory(t *testing.T) {

	history := &fakeHistory{records: []*swap_model.AnalysisRecord{
		{Id: 1, ImageURL: "http://img/a.jpg", Score: 88.5, FaceDetected: true},
		{Id: 2, ImageURL: "http://img/b.jpg", Score: 0, FaceDetected: false},
	}}

	s := swap_service.New(&repo.Repo{History: history}, &fakeFetcher{}, &fakeAnalyzer{}, &fakeSwapper{})

	records, err := s.GetHistory(1)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(records) != 1 || records[0].ImageURL != "http://img/a.jpg" {
		t.Errorf("GetHistory() = %+v, want first record only", records)
	}
}
