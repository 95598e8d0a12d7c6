// Package service provides the service layer of the face swap system. It
// wires the image fetcher, the vision models and the optional history store
// into one object the handlers talk to.
package service

import (
	"log"
	"os"

	"face-swap/internal/pkg/clients/image_client"
	"face-swap/internal/pkg/database"
	"face-swap/internal/pkg/model/swap_model"
	"face-swap/internal/pkg/repo"
	"face-swap/internal/pkg/service/swap_service"
	"face-swap/internal/pkg/vision"
	"face-swap/tools"
)

const (
	// pgDbEnvName is the env variable key for the PostgreSQL database name.
	// History persistence is enabled only when it is set.
	pgDbEnvName = "FACE_SWAP__PG_NAME"

	// pgDbUserName is the env variable key for the PostgreSQL database username.
	pgDbUserName = "FACE_SWAP__PG_USER"

	// pgPassEnvName is the env variable key for the PostgreSQL database password.
	pgPassEnvName = "FACE_SWAP__PG_PASS"

	// modelDirEnvName is the env variable key for the model asset cache directory.
	modelDirEnvName = "FACE_SWAP__MODEL_DIR"

	defaultModelDir = "./models"
)

// Service is a struct that embeds the FaceSwap interface and provides
// methods to interact with the face swap functionalities.
type Service struct {
	FaceSwap
}

// FaceSwap defines the interface for interacting with face-swap-related
// functionalities.
type FaceSwap interface {
	Health() *swap_model.HealthStatus
	ModelsLoaded() bool
	AnalyzePhoto(imageURL string) (report *swap_model.QualityReport, err error)
	SwapFace(targetURL, sourceURL string) (jpegData []byte, err error)
	SelectBestPhoto(imageURLs []string) (result *swap_model.SelectionResult, err error)
	GetHistory(limit int) (records []*swap_model.AnalysisRecord, err error)
}

// NewService creates a new instance of Service: it bootstraps the vision
// models (staying up in an unhealthy state when that fails) and connects to
// the history database when PostgreSQL credentials are configured.
func NewService() *Service {
	modelDir := tools.EnvOrDefault(modelDirEnvName, defaultModelDir)

	var analyzer vision.FaceAnalyzer
	var swapper vision.FaceSwapper

	models, err := vision.Bootstrap(modelDir)
	if err != nil {
		log.Printf("WARNING: %v; service will report unhealthy", err)
	} else {
		analyzer = models.Analyzer
		swapper = models.Swapper
	}

	return &Service{
		FaceSwap: swap_service.New(newRepo(), image_client.New(), analyzer, swapper),
	}
}

// newRepo connects the history store, or falls back to the no-op repo when
// no database is configured.
func newRepo() *repo.Repo {
	if _, ok := os.LookupEnv(pgDbEnvName); !ok {
		log.Println("no database configured, analysis history disabled")
		return repo.NewNoopRepo()
	}

	tools.CheckEnvs(pgDbEnvName, pgDbUserName, pgPassEnvName)

	db, err := database.GetDatabase(os.Getenv(pgDbEnvName), os.Getenv(pgDbUserName), os.Getenv(pgPassEnvName))
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	return repo.NewRepo(db)
}
