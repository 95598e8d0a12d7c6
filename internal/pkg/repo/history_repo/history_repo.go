// Package history_repo stores analysis outcomes in the database so scored
// photos can be audited after the fact.
package history_repo

import (
	"errors"

	"github.com/jmoiron/sqlx"

	"face-swap/internal/pkg/model/swap_model"
)

// HistoryRepo persists analysis records.
type HistoryRepo struct {
	db *sqlx.DB
}

// New creates a new HistoryRepo instance with the provided database connection.
func New(db *sqlx.DB) *HistoryRepo {
	return &HistoryRepo{
		db: db,
	}
}

// CreateRecord inserts one analysis record and returns its ID.
func (r *HistoryRepo) CreateRecord(record *swap_model.AnalysisRecord) (recordId int, err error) {

	query := `INSERT INTO analysis_history
				(
				image_url,
				score,
				face_detected
				)
			VALUES ($1, $2, $3)
			RETURNING id`

	row := r.db.QueryRowx(query, record.ImageURL, record.Score, record.FaceDetected)
	if err = row.Scan(&recordId); err != nil {
		return 0, err
	}

	return recordId, err
}

// GetRecentRecords returns the newest analysis records, newest first.
func (r *HistoryRepo) GetRecentRecords(limit int) (records []*swap_model.AnalysisRecord, err error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	query := `SELECT
				id,
				image_url,
				score,
				face_detected,
				created_at
			FROM analysis_history
			ORDER BY created_at DESC
			LIMIT $1`

	if err = r.db.Select(&records, query, limit); err != nil {
		return nil, err
	}

	return records, err
}
