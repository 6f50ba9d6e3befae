package progress

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shammasov-max/locus-guide-back/internal/db"
	"github.com/shammasov-max/locus-guide-back/internal/notify"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"
	"github.com/shammasov-max/locus-guide-back/internal/shared/geo"

	"github.com/jackc/pgx/v5"
)

// Service records raw progress events and derives aggregate progress.
// Every write re-evaluates automatic completion for the owning tour.
type Service struct {
	db     db.Querier
	events *notify.Hub
}

func NewService(q db.Querier, events *notify.Hub) *Service {
	return &Service{db: q, events: events}
}

// MarkVisited upserts the GPS-arrival flag. visited_at is stamped only
// on the first transition; re-marking always succeeds without moving it.
// When a position is reported it must fall inside the checkpoint's
// trigger radius.
func (s *Service) MarkVisited(ctx context.Context, userID, checkpointID string, pos *geo.Point) (Event, error) {
	tourID, err := s.tourForCheckpoint(ctx, checkpointID)
	if err != nil {
		return Event{}, err
	}

	if pos != nil {
		within, err := s.withinTriggerRadius(ctx, checkpointID, *pos)
		if err != nil {
			return Event{}, err
		}
		if !within {
			return Event{}, fmt.Errorf("%w: position outside checkpoint trigger radius", apperr.ErrInvalid)
		}
	}

	event := Event{UserID: userID, CheckpointID: checkpointID}
	row := s.db.QueryRow(ctx, `
		INSERT INTO checkpoint_progress (user_id, checkpoint_id, visited, visited_at, audio_status)
		VALUES ($1,$2,true,now(),'none')
		ON CONFLICT (user_id, checkpoint_id) DO UPDATE SET
			visited = true,
			visited_at = COALESCE(checkpoint_progress.visited_at, EXCLUDED.visited_at),
			updated_at = now()
		RETURNING visited, visited_at, audio_status, audio_started_at, audio_completed_at, updated_at
	`, userID, checkpointID)
	if err := row.Scan(&event.Visited, &event.VisitedAt, &event.AudioStatus,
		&event.AudioStartedAt, &event.AudioCompletedAt, &event.UpdatedAt); err != nil {
		return Event{}, err
	}

	if err := s.evaluateCompletion(ctx, userID, tourID); err != nil {
		return Event{}, err
	}
	return event, nil
}

// SetAudioStatus upserts playback state. The status column follows the
// client in either direction; started/completed timestamps are set on
// the first transition only and never reset.
func (s *Service) SetAudioStatus(ctx context.Context, userID, checkpointID string, status AudioStatus) (Event, error) {
	if !status.Valid() {
		return Event{}, fmt.Errorf("%w: audio status %q", apperr.ErrInvalid, status)
	}
	tourID, err := s.tourForCheckpoint(ctx, checkpointID)
	if err != nil {
		return Event{}, err
	}

	event := Event{UserID: userID, CheckpointID: checkpointID}
	row := s.db.QueryRow(ctx, `
		INSERT INTO checkpoint_progress (user_id, checkpoint_id, visited, audio_status, audio_started_at, audio_completed_at)
		VALUES ($1,$2,false,$3,
			CASE WHEN $3 = 'started' THEN now() END,
			CASE WHEN $3 = 'completed' THEN now() END)
		ON CONFLICT (user_id, checkpoint_id) DO UPDATE SET
			audio_status = EXCLUDED.audio_status,
			audio_started_at = COALESCE(checkpoint_progress.audio_started_at, EXCLUDED.audio_started_at),
			audio_completed_at = COALESCE(checkpoint_progress.audio_completed_at, EXCLUDED.audio_completed_at),
			updated_at = now()
		RETURNING visited, visited_at, audio_status, audio_started_at, audio_completed_at, updated_at
	`, userID, checkpointID, status)
	if err := row.Scan(&event.Visited, &event.VisitedAt, &event.AudioStatus,
		&event.AudioStartedAt, &event.AudioCompletedAt, &event.UpdatedAt); err != nil {
		return Event{}, err
	}

	if err := s.evaluateCompletion(ctx, userID, tourID); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Summary is computed fresh on every call. No cached counters: the
// join-and-count cost buys crash-safety and freshness.
func (s *Service) Summary(ctx context.Context, userID, versionID string) (Summary, error) {
	var sum Summary
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE c.is_visible),
		       COUNT(*) FILTER (WHERE c.is_visible AND p.visited),
		       COUNT(*) FILTER (WHERE c.is_visible AND p.audio_status = 'completed')
		FROM checkpoints c
		LEFT JOIN checkpoint_progress p ON p.checkpoint_id = c.id AND p.user_id = $1
		WHERE c.version_id = $2
	`, userID, versionID).Scan(&sum.CheckpointsTotal, &sum.CheckpointsVisited, &sum.AudioCompleted)
	if err != nil {
		return Summary{}, err
	}
	if sum.CheckpointsTotal > 0 {
		sum.ProgressPercent = math.Round(float64(sum.AudioCompleted)/float64(sum.CheckpointsTotal)*1000) / 10
	}
	return sum, nil
}

func (s *Service) tourForCheckpoint(ctx context.Context, checkpointID string) (string, error) {
	var tourID string
	err := s.db.QueryRow(ctx, `
		SELECT v.tour_id
		FROM checkpoints c
		JOIN tour_versions v ON v.id = c.version_id
		WHERE c.id = $1
	`, checkpointID).Scan(&tourID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	return tourID, err
}

func (s *Service) withinTriggerRadius(ctx context.Context, checkpointID string, pos geo.Point) (bool, error) {
	var within bool
	err := s.db.QueryRow(ctx, `
		SELECT ST_DWithin(location, ST_SetSRID(ST_MakePoint($2,$3), 4326)::geography, trigger_radius_m)
		FROM checkpoints WHERE id = $1
	`, checkpointID, pos.Lng, pos.Lat).Scan(&within)
	return within, err
}
