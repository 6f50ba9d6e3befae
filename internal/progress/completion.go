package progress

import (
	"context"
	"errors"

	"github.com/shammasov-max/locus-guide-back/internal/notify"

	"github.com/jackc/pgx/v5"
)

// evaluateCompletion runs after every tracked write. A user with no
// active session (a preview visitor) is a no-op. The completion write
// is guarded by completed_at IS NULL, so of two concurrent evaluations
// only one performs the transition; the loser observes zero affected
// rows and does nothing. This is the only writer of cause "automatic".
func (s *Service) evaluateCompletion(ctx context.Context, userID, tourID string) error {
	var sessionID, lockedVersionID string
	err := s.db.QueryRow(ctx, `
		SELECT id, locked_version_id
		FROM tour_sessions
		WHERE user_id=$1 AND tour_id=$2 AND completed_at IS NULL
	`, userID, tourID).Scan(&sessionID, &lockedVersionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	sum, err := s.Summary(ctx, userID, lockedVersionID)
	if err != nil {
		return err
	}
	if sum.CheckpointsTotal == 0 || sum.AudioCompleted < sum.CheckpointsTotal {
		return nil
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE tour_sessions
		SET completed_at=now(), completion_cause='automatic'
		WHERE id=$1 AND completed_at IS NULL
	`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 && s.events != nil {
		s.events.Publish(notify.Event{
			Type:      notify.EventSessionCompleted,
			TourID:    tourID,
			SessionID: sessionID,
			UserID:    userID,
			Cause:     "automatic",
		})
	}
	return nil
}
