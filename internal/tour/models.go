package tour

import "time"

// TourStatus is the lifecycle of the user-facing tour entity.
type TourStatus string

const (
	TourDraft      TourStatus = "draft"
	TourPublished  TourStatus = "published"
	TourComingSoon TourStatus = "coming_soon"
	TourArchived   TourStatus = "archived"
)

func (s TourStatus) Valid() bool {
	switch s {
	case TourDraft, TourPublished, TourComingSoon, TourArchived:
		return true
	}
	return false
}

// VersionStatus is the lifecycle of one content snapshot. Transitions
// only move forward: draft -> review (optional) -> published -> superseded.
type VersionStatus string

const (
	VersionDraft      VersionStatus = "draft"
	VersionReview     VersionStatus = "review"
	VersionPublished  VersionStatus = "published"
	VersionSuperseded VersionStatus = "superseded"
)

func (s VersionStatus) Valid() bool {
	switch s {
	case VersionDraft, VersionReview, VersionPublished, VersionSuperseded:
		return true
	}
	return false
}

type Tour struct {
	ID                 string     `json:"id"`
	CityID             int        `json:"city_id"`
	Slug               string     `json:"slug"`
	Status             TourStatus `json:"status"`
	PublishedVersionID *string    `json:"published_version_id,omitempty"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Version is an immutable numbered snapshot of a tour's content. Once
// published its content is never edited; changes require a new version.
type Version struct {
	ID                  string            `json:"id"`
	TourID              string            `json:"tour_id"`
	VersionNo           int               `json:"version_no"`
	Status              VersionStatus     `json:"status"`
	TitleI18n           map[string]string `json:"title_i18n"`
	SummaryI18n         map[string]string `json:"summary_i18n,omitempty"`
	Languages           []string          `json:"languages"`
	PathWKT             string            `json:"path_wkt,omitempty"`
	DistanceM           int               `json:"distance_m"`
	DurationMin         int               `json:"duration_min"`
	FreeCheckpointLimit int               `json:"free_checkpoint_limit"`
	PriceAmount         *float64          `json:"price_amount,omitempty"`
	PriceCurrency       *string           `json:"price_currency,omitempty"`
	PublishedAt         *time.Time        `json:"published_at,omitempty"`
	CreatedBy           string            `json:"created_by"`
	CreatedAt           time.Time         `json:"created_at"`
}

type Checkpoint struct {
	ID              string            `json:"id"`
	VersionID       string            `json:"version_id"`
	SeqNo           int               `json:"seq_no"`
	DisplayNumber   *int              `json:"display_number,omitempty"`
	IsVisible       bool              `json:"is_visible"`
	TitleI18n       map[string]string `json:"title_i18n"`
	DescriptionI18n map[string]string `json:"description_i18n,omitempty"`
	Lat             float64           `json:"lat"`
	Lng             float64           `json:"lng"`
	TriggerRadiusM  int               `json:"trigger_radius_m"`
	IsFreePreview   bool              `json:"is_free_preview"`
	SourcePointID   *int64            `json:"source_point_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ListItem is the public catalog payload, localized for one language.
type ListItem struct {
	ID                  string   `json:"id"`
	Slug                string   `json:"slug"`
	CityID              int      `json:"city_id"`
	Title               string   `json:"title"`
	Summary             string   `json:"summary,omitempty"`
	Languages           []string `json:"languages"`
	DistanceM           int      `json:"distance_m"`
	DurationMin         int      `json:"duration_min"`
	FreeCheckpointLimit int      `json:"free_checkpoint_limit"`
	PriceAmount         *float64 `json:"price_amount,omitempty"`
	PriceCurrency       *string  `json:"price_currency,omitempty"`
	CheckpointCount     int      `json:"checkpoint_count"`
}
