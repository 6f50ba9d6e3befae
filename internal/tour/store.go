package tour

import (
	"context"
	"errors"
	"time"

	"github.com/shammasov-max/locus-guide-back/internal/db"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

// Store is the persistence layer for tours, versions and checkpoints.
// Reads resolve pgx.ErrNoRows to apperr.ErrNotFound; multi-row writes
// expect the caller to supply the transaction via WithTx.
type Store struct {
	db db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

// WithTx returns a store view running against the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const tourColumns = `id, city_id, slug, status, published_version_id, created_by, created_at, updated_at`

func (s *Store) GetTour(ctx context.Context, id string) (Tour, error) {
	return s.scanTour(s.db.QueryRow(ctx, `
		SELECT `+tourColumns+`
		FROM tours WHERE id=$1
	`, id))
}

// GetTourForUpdate row-locks the tour so concurrent publishes for the
// same tour serialize.
func (s *Store) GetTourForUpdate(ctx context.Context, id string) (Tour, error) {
	return s.scanTour(s.db.QueryRow(ctx, `
		SELECT `+tourColumns+`
		FROM tours WHERE id=$1
		FOR UPDATE
	`, id))
}

func (s *Store) scanTour(row pgx.Row) (Tour, error) {
	var t Tour
	if err := row.Scan(&t.ID, &t.CityID, &t.Slug, &t.Status, &t.PublishedVersionID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Tour{}, notFoundOr(err)
	}
	return t, nil
}

func (s *Store) InsertTour(ctx context.Context, t Tour) (Tour, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO tours (id, city_id, slug, status, created_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, t.ID, t.CityID, t.Slug, t.Status, t.CreatedBy)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return Tour{}, err
	}
	return t, nil
}

const versionColumns = `id, tour_id, version_no, status, title_i18n, summary_i18n, languages,
		       ST_AsText(path), COALESCE(distance_m,0), COALESCE(duration_min,0),
		       free_checkpoint_limit, price_amount, price_currency, published_at, created_by, created_at`

func (s *Store) GetVersion(ctx context.Context, id string) (Version, error) {
	return s.scanVersion(s.db.QueryRow(ctx, `
		SELECT `+versionColumns+`
		FROM tour_versions WHERE id=$1
	`, id))
}

// GetPublishedVersion returns the version the tour's published pointer
// currently references.
func (s *Store) GetPublishedVersion(ctx context.Context, tourID string) (Version, error) {
	return s.scanVersion(s.db.QueryRow(ctx, `
		SELECT `+versionColumns+`
		FROM tour_versions
		WHERE id = (SELECT published_version_id FROM tours WHERE id=$1)
	`, tourID))
}

func (s *Store) ListVersions(ctx context.Context, tourID string) ([]Version, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+versionColumns+`
		FROM tour_versions WHERE tour_id=$1
		ORDER BY version_no DESC
	`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		v, err := s.scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *Store) scanVersion(row pgx.Row) (Version, error) {
	var v Version
	var pathWKT *string
	if err := row.Scan(&v.ID, &v.TourID, &v.VersionNo, &v.Status, &v.TitleI18n, &v.SummaryI18n, &v.Languages,
		&pathWKT, &v.DistanceM, &v.DurationMin, &v.FreeCheckpointLimit,
		&v.PriceAmount, &v.PriceCurrency, &v.PublishedAt, &v.CreatedBy, &v.CreatedAt); err != nil {
		return Version{}, notFoundOr(err)
	}
	if pathWKT != nil {
		v.PathWKT = *pathWKT
	}
	return v, nil
}

// NextVersionNumber computes MAX+1 inside the caller's transaction so
// concurrent creations for the same tour cannot both observe the same
// maximum without one of them failing the unique constraint.
func (s *Store) NextVersionNumber(ctx context.Context, tourID string) (int, error) {
	var next int
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(version_no),0)+1 FROM tour_versions WHERE tour_id=$1
	`, tourID).Scan(&next)
	return next, err
}

func (s *Store) InsertVersion(ctx context.Context, v Version) (Version, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO tour_versions
			(id, tour_id, version_no, status, title_i18n, summary_i18n, languages, path,
			 distance_m, duration_min, free_checkpoint_limit, price_amount, price_currency, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7, ST_GeogFromText($8),
			$9,$10,$11,$12,$13,$14)
		RETURNING created_at
	`, v.ID, v.TourID, v.VersionNo, v.Status, v.TitleI18n, v.SummaryI18n, v.Languages, textPtr(v.PathWKT),
		v.DistanceM, v.DurationMin, v.FreeCheckpointLimit, v.PriceAmount, v.PriceCurrency, v.CreatedBy)
	if err := row.Scan(&v.CreatedAt); err != nil {
		return Version{}, err
	}
	return v, nil
}

// MarkReview moves a draft version into review. The status guard keeps
// the state machine forward-only.
func (s *Store) MarkReview(ctx context.Context, versionID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE tour_versions SET status='review'
		WHERE id=$1 AND status='draft'
	`, versionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkSuperseded(ctx context.Context, versionID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE tour_versions SET status='superseded'
		WHERE id=$1 AND status='published'
	`, versionID)
	return err
}

// MarkPublished stamps published_at only on the first publish of this
// version_no. Re-publishing (rollback) keeps the original timestamp.
func (s *Store) MarkPublished(ctx context.Context, versionID string) (time.Time, error) {
	var publishedAt time.Time
	err := s.db.QueryRow(ctx, `
		UPDATE tour_versions
		SET status='published', published_at=COALESCE(published_at, now())
		WHERE id=$1
		RETURNING published_at
	`, versionID).Scan(&publishedAt)
	return publishedAt, err
}

func (s *Store) SetPublishedVersion(ctx context.Context, tourID, versionID string, status TourStatus) error {
	_, err := s.db.Exec(ctx, `
		UPDATE tours
		SET published_version_id=$2, status=$3, updated_at=now()
		WHERE id=$1
	`, tourID, versionID, status)
	return err
}

const checkpointColumns = `id, version_id, seq_no, display_number, is_visible, title_i18n, description_i18n,
		       ST_Y(location::geometry), ST_X(location::geometry), trigger_radius_m, is_free_preview,
		       source_point_id, created_at`

// ListCheckpoints returns a version's checkpoints in traversal order.
func (s *Store) ListCheckpoints(ctx context.Context, versionID string) ([]Checkpoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+checkpointColumns+`
		FROM checkpoints WHERE version_id=$1
		ORDER BY seq_no
	`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.ID, &cp.VersionID, &cp.SeqNo, &cp.DisplayNumber, &cp.IsVisible,
			&cp.TitleI18n, &cp.DescriptionI18n, &cp.Lat, &cp.Lng, &cp.TriggerRadiusM,
			&cp.IsFreePreview, &cp.SourcePointID, &cp.CreatedAt); err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

func (s *Store) InsertCheckpoint(ctx context.Context, cp Checkpoint) (Checkpoint, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO checkpoints
			(id, version_id, seq_no, display_number, is_visible, title_i18n, description_i18n,
			 location, trigger_radius_m, is_free_preview, source_point_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7, ST_SetSRID(ST_MakePoint($8,$9), 4326)::geography, $10,$11,$12)
		RETURNING created_at
	`, cp.ID, cp.VersionID, cp.SeqNo, cp.DisplayNumber, cp.IsVisible, cp.TitleI18n, cp.DescriptionI18n,
		cp.Lng, cp.Lat, cp.TriggerRadiusM, cp.IsFreePreview, cp.SourcePointID)
	if err := row.Scan(&cp.CreatedAt); err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}

func (s *Store) CountVisibleCheckpoints(ctx context.Context, versionID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM checkpoints WHERE version_id=$1 AND is_visible
	`, versionID).Scan(&count)
	return count, err
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

func textPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
