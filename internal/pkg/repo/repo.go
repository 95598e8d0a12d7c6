// Package repo provides access to the analysis history store. The store is
// optional: when no database is configured the service runs with a no-op
// repo and nothing is persisted.
package repo

import (
	"face-swap/internal/pkg/model/swap_model"
	"face-swap/internal/pkg/repo/history_repo"

	"github.com/jmoiron/sqlx"
)

// Repo is a struct that embeds the History interface and allows interaction
// with history-related functions.
type Repo struct {
	History
}

// NewRepo creates a new instance of Repo backed by the database.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{
		History: history_repo.New(db),
	}
}

// NewNoopRepo creates a Repo that discards writes and returns no history.
func NewNoopRepo() *Repo {
	return &Repo{
		History: noopHistory{},
	}
}

// History defines the interface for interacting with the analysis history.
type History interface {
	CreateRecord(record *swap_model.AnalysisRecord) (recordId int, err error)
	GetRecentRecords(limit int) (records []*swap_model.AnalysisRecord, err error)
}

type noopHistory struct{}

func (noopHistory) CreateRecord(*swap_model.AnalysisRecord) (int, error) {
	return 0, nil
}

func (noopHistory) GetRecentRecords(int) ([]*swap_model.AnalysisRecord, error) {
	return nil, nil
}
