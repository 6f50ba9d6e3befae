package tour

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shammasov-max/locus-guide-back/internal/db"
	"github.com/shammasov-max/locus-guide-back/internal/notify"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"
	"github.com/shammasov-max/locus-guide-back/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultTriggerRadiusM = 25

// Service owns the version state machine and the tour -> published
// version pointer. Editor authorization happens in the transport layer.
type Service struct {
	db     db.Querier
	store  *Store
	events *notify.Hub
}

func NewService(q db.Querier, store *Store, events *notify.Hub) *Service {
	return &Service{db: q, store: store, events: events}
}

func (s *Service) CreateTour(ctx context.Context, input Tour) (Tour, error) {
	if input.Slug == "" || input.CityID == 0 {
		return Tour{}, fmt.Errorf("%w: slug and city_id required", apperr.ErrInvalid)
	}
	if input.Status == "" {
		input.Status = TourDraft
	}
	if !input.Status.Valid() || input.Status == TourPublished {
		// a tour becomes published only through Publish
		return Tour{}, fmt.Errorf("%w: status %q not allowed on create", apperr.ErrInvalid, input.Status)
	}
	input.ID = uuid.NewString()
	return s.store.InsertTour(ctx, input)
}

func (s *Service) GetTour(ctx context.Context, id string) (Tour, error) {
	return s.store.GetTour(ctx, id)
}

func (s *Service) ListVersions(ctx context.Context, tourID string) ([]Version, error) {
	if _, err := s.store.GetTour(ctx, tourID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, tourID)
}

// CheckpointInput is the authored checkpoint payload for a new version.
// A zero TriggerRadiusM means the default radius.
type CheckpointInput struct {
	SeqNo           int               `json:"seq_no"`
	DisplayNumber   *int              `json:"display_number,omitempty"`
	IsVisible       *bool             `json:"is_visible,omitempty"`
	TitleI18n       map[string]string `json:"title_i18n"`
	DescriptionI18n map[string]string `json:"description_i18n,omitempty"`
	Lat             float64           `json:"lat"`
	Lng             float64           `json:"lng"`
	TriggerRadiusM  int               `json:"trigger_radius_m,omitempty"`
	IsFreePreview   bool              `json:"is_free_preview,omitempty"`
	SourcePointID   *int64            `json:"source_point_id,omitempty"`
}

// VersionContent is everything an editor authors into one snapshot.
type VersionContent struct {
	TitleI18n           map[string]string `json:"title_i18n"`
	SummaryI18n         map[string]string `json:"summary_i18n,omitempty"`
	Languages           []string          `json:"languages"`
	Path                []geo.Point       `json:"path,omitempty"`
	DistanceM           int               `json:"distance_m,omitempty"`
	DurationMin         int               `json:"duration_min,omitempty"`
	FreeCheckpointLimit int               `json:"free_checkpoint_limit,omitempty"`
	PriceAmount         *float64          `json:"price_amount,omitempty"`
	PriceCurrency       *string           `json:"price_currency,omitempty"`
	Checkpoints         []CheckpointInput `json:"checkpoints,omitempty"`
}

func (c VersionContent) validate() error {
	if len(c.TitleI18n) == 0 {
		return fmt.Errorf("%w: title_i18n requires at least one entry", apperr.ErrInvalid)
	}
	if (c.PriceAmount == nil) != (c.PriceCurrency == nil) {
		return fmt.Errorf("%w: price amount and currency go together", apperr.ErrInvalid)
	}
	if c.FreeCheckpointLimit < 0 {
		return fmt.Errorf("%w: free_checkpoint_limit must not be negative", apperr.ErrInvalid)
	}
	seen := make(map[int]bool, len(c.Checkpoints))
	for _, cp := range c.Checkpoints {
		if len(cp.TitleI18n) == 0 {
			return fmt.Errorf("%w: checkpoint %d needs a title", apperr.ErrInvalid, cp.SeqNo)
		}
		if cp.TriggerRadiusM < 0 {
			return fmt.Errorf("%w: checkpoint %d trigger radius must not be negative", apperr.ErrInvalid, cp.SeqNo)
		}
		if seen[cp.SeqNo] {
			return fmt.Errorf("%w: duplicate checkpoint seq_no %d", apperr.ErrInvalid, cp.SeqNo)
		}
		seen[cp.SeqNo] = true
	}
	return nil
}

// CreateVersion assigns the next version_no transactionally. A loser of
// a concurrent creation race hits the (tour_id, version_no) unique
// constraint and retries with a fresh number.
func (s *Service) CreateVersion(ctx context.Context, tourID, authorID string, content VersionContent) (Version, error) {
	if err := content.validate(); err != nil {
		return Version{}, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		v, err := s.createVersionOnce(ctx, tourID, authorID, content)
		if err == nil {
			return v, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return Version{}, err
	}
	return Version{}, apperr.ErrConflict
}

func (s *Service) createVersionOnce(ctx context.Context, tourID, authorID string, content VersionContent) (v Version, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Version{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	st := s.store.WithTx(tx)

	if _, err = st.GetTour(ctx, tourID); err != nil {
		return Version{}, err
	}

	versionNo, err := st.NextVersionNumber(ctx, tourID)
	if err != nil {
		return Version{}, err
	}

	distanceM := content.DistanceM
	if distanceM == 0 && len(content.Path) > 1 {
		distanceM = int(math.Round(geo.PathDistanceM(content.Path)))
	}

	v = Version{
		ID:                  uuid.NewString(),
		TourID:              tourID,
		VersionNo:           versionNo,
		Status:              VersionDraft,
		TitleI18n:           content.TitleI18n,
		SummaryI18n:         content.SummaryI18n,
		Languages:           content.Languages,
		PathWKT:             lineStringWKT(content.Path),
		DistanceM:           distanceM,
		DurationMin:         content.DurationMin,
		FreeCheckpointLimit: content.FreeCheckpointLimit,
		PriceAmount:         content.PriceAmount,
		PriceCurrency:       content.PriceCurrency,
		CreatedBy:           authorID,
	}
	if v, err = st.InsertVersion(ctx, v); err != nil {
		return Version{}, err
	}

	for _, in := range content.Checkpoints {
		cp := Checkpoint{
			ID:              uuid.NewString(),
			VersionID:       v.ID,
			SeqNo:           in.SeqNo,
			DisplayNumber:   in.DisplayNumber,
			IsVisible:       in.IsVisible == nil || *in.IsVisible,
			TitleI18n:       in.TitleI18n,
			DescriptionI18n: in.DescriptionI18n,
			Lat:             in.Lat,
			Lng:             in.Lng,
			TriggerRadiusM:  in.TriggerRadiusM,
			IsFreePreview:   in.IsFreePreview,
			SourcePointID:   in.SourcePointID,
		}
		if cp.TriggerRadiusM == 0 {
			cp.TriggerRadiusM = defaultTriggerRadiusM
		}
		if _, err = st.InsertCheckpoint(ctx, cp); err != nil {
			return Version{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return Version{}, err
	}
	return v, nil
}

// SubmitForReview moves a draft version into review. The review step is
// optional: Publish accepts draft versions directly.
func (s *Service) SubmitForReview(ctx context.Context, tourID, versionID string) (Version, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return Version{}, err
	}
	if v.TourID != tourID {
		return Version{}, apperr.ErrNotFound
	}
	ok, err := s.store.MarkReview(ctx, versionID)
	if err != nil {
		return Version{}, err
	}
	if !ok {
		return Version{}, fmt.Errorf("%w: version is not a draft", apperr.ErrConflict)
	}
	v.Status = VersionReview
	return v, nil
}

// Publish makes versionID the tour's published content. The old
// published version is superseded in the same transaction, so readers
// never observe zero or two published versions for a tour. Concurrent
// publishes serialize on the tour row lock.
func (s *Service) Publish(ctx context.Context, tourID, versionID string) (t Tour, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Tour{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	st := s.store.WithTx(tx)

	t, err = st.GetTourForUpdate(ctx, tourID)
	if err != nil {
		return Tour{}, err
	}
	v, err := st.GetVersion(ctx, versionID)
	if err != nil {
		return Tour{}, err
	}
	if v.TourID != tourID {
		return Tour{}, apperr.ErrNotFound
	}

	firstPublish := t.Status != TourPublished

	if t.PublishedVersionID != nil && *t.PublishedVersionID != versionID {
		if err = st.MarkSuperseded(ctx, *t.PublishedVersionID); err != nil {
			return Tour{}, err
		}
	}
	if _, err = st.MarkPublished(ctx, versionID); err != nil {
		return Tour{}, err
	}

	newStatus := t.Status
	if newStatus == TourDraft || newStatus == TourComingSoon {
		newStatus = TourPublished
	}
	if err = st.SetPublishedVersion(ctx, tourID, versionID, newStatus); err != nil {
		return Tour{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return Tour{}, err
	}

	t.PublishedVersionID = &versionID
	t.Status = newStatus

	if firstPublish && newStatus == TourPublished && s.events != nil {
		s.events.Publish(notify.Event{
			Type:      notify.EventTourPublished,
			TourID:    tourID,
			VersionID: versionID,
		})
	}
	return t, nil
}

// ListPublished returns the public catalog, localized for lang. cityID
// zero means all cities.
func (s *Service) ListPublished(ctx context.Context, cityID int, lang string) ([]ListItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.slug, t.city_id, v.title_i18n, v.summary_i18n, v.languages,
		       COALESCE(v.distance_m,0), COALESCE(v.duration_min,0), v.free_checkpoint_limit,
		       v.price_amount, v.price_currency,
		       (SELECT COUNT(*) FROM checkpoints c WHERE c.version_id=v.id AND c.is_visible)
		FROM tours t
		JOIN tour_versions v ON v.id = t.published_version_id
		WHERE t.status='published' AND ($1 = 0 OR t.city_id = $1)
		ORDER BY t.created_at DESC
	`, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListItem
	for rows.Next() {
		var item ListItem
		var title, summary map[string]string
		if err := rows.Scan(&item.ID, &item.Slug, &item.CityID, &title, &summary, &item.Languages,
			&item.DistanceM, &item.DurationMin, &item.FreeCheckpointLimit,
			&item.PriceAmount, &item.PriceCurrency, &item.CheckpointCount); err != nil {
			return nil, err
		}
		item.Title = ResolveI18n(title, lang)
		item.Summary = ResolveI18n(summary, lang)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Detail is the public payload for one tour, resolved through its
// published version.
type Detail struct {
	ListItem
	Status      TourStatus `json:"status"`
	VersionID   string     `json:"version_id"`
	VersionNo   int        `json:"version_no"`
	PathWKT     string     `json:"path_wkt,omitempty"`
	PublishedAt string     `json:"published_at,omitempty"`
}

func (s *Service) GetDetail(ctx context.Context, tourID, lang string) (Detail, error) {
	t, err := s.store.GetTour(ctx, tourID)
	if err != nil {
		return Detail{}, err
	}
	if t.PublishedVersionID == nil {
		return Detail{}, apperr.ErrNotFound
	}
	v, err := s.store.GetPublishedVersion(ctx, tourID)
	if err != nil {
		return Detail{}, err
	}
	count, err := s.store.CountVisibleCheckpoints(ctx, v.ID)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{
		ListItem: ListItem{
			ID:                  t.ID,
			Slug:                t.Slug,
			CityID:              t.CityID,
			Title:               ResolveI18n(v.TitleI18n, lang),
			Summary:             ResolveI18n(v.SummaryI18n, lang),
			Languages:           v.Languages,
			DistanceM:           v.DistanceM,
			DurationMin:         v.DurationMin,
			FreeCheckpointLimit: v.FreeCheckpointLimit,
			PriceAmount:         v.PriceAmount,
			PriceCurrency:       v.PriceCurrency,
			CheckpointCount:     count,
		},
		Status:    t.Status,
		VersionID: v.ID,
		VersionNo: v.VersionNo,
		PathWKT:   v.PathWKT,
	}
	if v.PublishedAt != nil {
		d.PublishedAt = v.PublishedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return d, nil
}

func lineStringWKT(points []geo.Point) string {
	if len(points) < 2 {
		return ""
	}
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%g %g", p.Lng, p.Lat)
	}
	return "LINESTRING(" + strings.Join(parts, ",") + ")"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
