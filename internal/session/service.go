package session

import (
	"context"
	"errors"

	"github.com/shammasov-max/locus-guide-back/internal/db"
	"github.com/shammasov-max/locus-guide-back/internal/notify"
	"github.com/shammasov-max/locus-guide-back/internal/progress"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"
	"github.com/shammasov-max/locus-guide-back/internal/tour"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Service starts, observes and finishes tour attempts, guaranteeing
// content stability: a started user keeps seeing the version they
// locked, whatever editors publish afterwards.
type Service struct {
	db       db.Querier
	tours    *tour.Store
	progress *progress.Service
	events   *notify.Hub
}

func NewService(q db.Querier, tours *tour.Store, progressSvc *progress.Service, events *notify.Hub) *Service {
	return &Service{db: q, tours: tours, progress: progressSvc, events: events}
}

const sessionColumns = `id, user_id, tour_id, locked_version_id, started_at, completed_at, completion_cause`

// Start pins a new session to the currently published version. Starting
// an already-started tour returns the existing session unchanged, so
// duplicate client retries are harmless. The insert-on-conflict keeps
// two concurrent starts racing to a single row.
func (s *Service) Start(ctx context.Context, userID, tourID string) (Session, error) {
	t, err := s.tours.GetTour(ctx, tourID)
	if err != nil {
		return Session{}, err
	}
	if t.PublishedVersionID == nil {
		return Session{}, apperr.ErrNotPublished
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO tour_sessions (id, user_id, tour_id, locked_version_id)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, tour_id) DO NOTHING
		RETURNING `+sessionColumns+`
	`, uuid.NewString(), userID, tourID, *t.PublishedVersionID)

	created, err := scanSession(row)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Session{}, err
	}
	// conflict: another (possibly concurrent) start won, return its row
	return s.get(ctx, userID, tourID)
}

// Finish is a terminal write and deliberately not idempotent: finishing
// an already-completed session errors so a manual cause can never
// clobber an automatic one, or vice versa.
func (s *Service) Finish(ctx context.Context, userID, tourID string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE tour_sessions
		SET completed_at=now(), completion_cause='manual'
		WHERE user_id=$1 AND tour_id=$2 AND completed_at IS NULL
		RETURNING `+sessionColumns+`
	`, userID, tourID)

	finished, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.get(ctx, userID, tourID); getErr == nil {
			return Session{}, apperr.ErrAlreadyCompleted
		}
		return Session{}, apperr.ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}

	if s.events != nil {
		s.events.Publish(notify.Event{
			Type:      notify.EventSessionCompleted,
			TourID:    tourID,
			SessionID: finished.ID,
			UserID:    userID,
			Cause:     string(CauseManual),
		})
	}
	return finished, nil
}

// CheckpointsFor returns the locked version's checkpoints while the
// user has an active session, and the live published version's
// otherwise, so a visitor previews current content but a started user
// sees the content they committed to.
func (s *Service) CheckpointsFor(ctx context.Context, userID, tourID, lang string) ([]CheckpointView, error) {
	t, err := s.tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}

	versionID := ""
	if userID != "" {
		var locked string
		err := s.db.QueryRow(ctx, `
			SELECT locked_version_id FROM tour_sessions
			WHERE user_id=$1 AND tour_id=$2 AND completed_at IS NULL
		`, userID, tourID).Scan(&locked)
		switch {
		case err == nil:
			versionID = locked
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, err
		}
	}
	if versionID == "" {
		if t.PublishedVersionID == nil {
			return nil, apperr.ErrNotPublished
		}
		versionID = *t.PublishedVersionID
	}

	if userID == "" {
		checkpoints, err := s.tours.ListCheckpoints(ctx, versionID)
		if err != nil {
			return nil, err
		}
		views := make([]CheckpointView, 0, len(checkpoints))
		for _, cp := range checkpoints {
			views = append(views, CheckpointView{
				ID:             cp.ID,
				SeqNo:          cp.SeqNo,
				DisplayNumber:  cp.DisplayNumber,
				IsVisible:      cp.IsVisible,
				Title:          tour.ResolveI18n(cp.TitleI18n, lang),
				Description:    tour.ResolveI18n(cp.DescriptionI18n, lang),
				Lat:            cp.Lat,
				Lng:            cp.Lng,
				TriggerRadiusM: cp.TriggerRadiusM,
				IsFreePreview:  cp.IsFreePreview,
				AudioStatus:    string(progress.AudioNone),
			})
		}
		return views, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.seq_no, c.display_number, c.is_visible, c.title_i18n, c.description_i18n,
		       ST_Y(c.location::geometry), ST_X(c.location::geometry), c.trigger_radius_m, c.is_free_preview,
		       COALESCE(p.visited,false), p.visited_at, COALESCE(p.audio_status,'none'), p.audio_started_at, p.audio_completed_at
		FROM checkpoints c
		LEFT JOIN checkpoint_progress p ON p.checkpoint_id = c.id AND p.user_id = $2
		WHERE c.version_id = $1
		ORDER BY c.seq_no
	`, versionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []CheckpointView
	for rows.Next() {
		var view CheckpointView
		var title, description map[string]string
		if err := rows.Scan(&view.ID, &view.SeqNo, &view.DisplayNumber, &view.IsVisible, &title, &description,
			&view.Lat, &view.Lng, &view.TriggerRadiusM, &view.IsFreePreview,
			&view.Visited, &view.VisitedAt, &view.AudioStatus, &view.AudioStartedAt, &view.AudioCompletedAt); err != nil {
			return nil, err
		}
		view.Title = tour.ResolveI18n(title, lang)
		view.Description = tour.ResolveI18n(description, lang)
		views = append(views, view)
	}
	return views, rows.Err()
}

// ActiveSessions lists the user's attempts, newest first, with fresh
// progress against each locked version.
func (s *Service) ActiveSessions(ctx context.Context, userID, lang string) ([]Detail, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.id, s.user_id, s.tour_id, s.locked_version_id, s.started_at, s.completed_at, s.completion_cause,
		       v.title_i18n
		FROM tour_sessions s
		JOIN tour_versions v ON v.id = s.locked_version_id
		WHERE s.user_id=$1
		ORDER BY s.started_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []Detail
	for rows.Next() {
		var d Detail
		var title map[string]string
		if err := rows.Scan(&d.ID, &d.UserID, &d.TourID, &d.LockedVersionID, &d.StartedAt,
			&d.CompletedAt, &d.CompletionCause, &title); err != nil {
			return nil, err
		}
		d.Title = tour.ResolveI18n(title, lang)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range details {
		sum, err := s.progress.Summary(ctx, userID, details[i].LockedVersionID)
		if err != nil {
			return nil, err
		}
		details[i].Progress = sum
	}
	return details, nil
}

func (s *Service) get(ctx context.Context, userID, tourID string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM tour_sessions WHERE user_id=$1 AND tour_id=$2
	`, userID, tourID)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.ErrNotFound
	}
	return sess, err
}

func scanSession(row pgx.Row) (Session, error) {
	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.TourID, &sess.LockedVersionID,
		&sess.StartedAt, &sess.CompletedAt, &sess.CompletionCause); err != nil {
		return Session{}, err
	}
	return sess, nil
}
