// Package media keeps the registry of narration audio attached to
// checkpoints. Objects live in external storage; only their metadata is
// recorded here.
package media

import (
	"context"
	"time"

	"github.com/shammasov-max/locus-guide-back/internal/db"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"

	"github.com/google/uuid"
)

const baseURL = "https://media.locusguide.example/"

type Narration struct {
	ID           string    `json:"id"`
	CheckpointID string    `json:"checkpoint_id"`
	Lang         string    `json:"lang"`
	URL          string    `json:"url"`
	DurationSec  int       `json:"duration_sec"`
	UploadedBy   string    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type Service struct {
	db db.Querier
}

func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

func (s *Service) Attach(ctx context.Context, checkpointID, lang, fileName string, durationSec int, uploadedBy string) (Narration, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM checkpoints WHERE id=$1)
	`, checkpointID).Scan(&exists); err != nil {
		return Narration{}, err
	}
	if !exists {
		return Narration{}, apperr.ErrNotFound
	}

	narration := Narration{
		ID:           uuid.NewString(),
		CheckpointID: checkpointID,
		Lang:         lang,
		URL:          baseURL + fileName,
		DurationSec:  durationSec,
		UploadedBy:   uploadedBy,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO narration_media (id, checkpoint_id, lang, url, duration_sec, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, narration.ID, narration.CheckpointID, narration.Lang, narration.URL, narration.DurationSec, narration.UploadedBy)
	if err := row.Scan(&narration.CreatedAt); err != nil {
		return Narration{}, err
	}
	return narration, nil
}

func (s *Service) List(ctx context.Context, checkpointID string) ([]Narration, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, checkpoint_id, lang, url, duration_sec, uploaded_by, created_at
		FROM narration_media WHERE checkpoint_id=$1
		ORDER BY lang
	`, checkpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var narrations []Narration
	for rows.Next() {
		var n Narration
		if err := rows.Scan(&n.ID, &n.CheckpointID, &n.Lang, &n.URL, &n.DurationSec, &n.UploadedBy, &n.CreatedAt); err != nil {
			return nil, err
		}
		narrations = append(narrations, n)
	}
	return narrations, rows.Err()
}
