// Package swap_model provides the request and response models of the
// face swap service API.
package swap_model

import "time"

// AnalyzePhotoRequest is the body of POST /analyze-photo.
type AnalyzePhotoRequest struct {
	ImageURL string `json:"image_url"`
}

// SwapFaceRequest is the body of POST /swap-face.
type SwapFaceRequest struct {
	TargetURL string `json:"target_url"`
	SourceURL string `json:"source_url"`
}

// SelectBestRequest is the body of POST /select-best-photo.
type SelectBestRequest struct {
	ImageURLs []string `json:"image_urls"`
}

// QualityReport describes the face-swap suitability of a single photo.
// Score is in [0, 100], rounded to one decimal. When no face was found only
// Score, FaceDetected and Error are populated.
type QualityReport struct {
	Score        float64 `json:"score"`
	FaceDetected bool    `json:"face_detected"`
	Error        string  `json:"error,omitempty"`

	Confidence    float64 `json:"confidence,omitempty"`
	YawAngle      float64 `json:"yaw_angle,omitempty"`
	FrontFacing   bool    `json:"front_facing,omitempty"`
	Resolution    string  `json:"resolution,omitempty"`
	FaceSizeRatio float64 `json:"face_size_ratio,omitempty"`
	Sharpness     float64 `json:"sharpness,omitempty"`
	Brightness    float64 `json:"brightness,omitempty"`
	NumFaces      int     `json:"num_faces,omitempty"`
}

// ScoredPhoto is a QualityReport tagged with the URL it was computed from.
type ScoredPhoto struct {
	URL string `json:"url"`
	QualityReport
}

// SelectionResult ranks candidate photos for face swapping. Primary is the
// URL with the highest score, Fallbacks the next up to two by descending
// score. Scores holds every successfully fetched candidate, best first.
type SelectionResult struct {
	Primary   string        `json:"primary"`
	Fallbacks []string      `json:"fallbacks"`
	Scores    []ScoredPhoto `json:"scores"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	ModelsLoaded bool   `json:"models_loaded"`
}

// AnalysisRecord is one row of the optional analysis history store.
type AnalysisRecord struct {
	Id           int       `db:"id" json:"id"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	Score        float64   `db:"score" json:"score"`
	FaceDetected bool      `db:"face_detected" json:"face_detected"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
