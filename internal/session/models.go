package session

import (
	"time"

	"github.com/shammasov-max/locus-guide-back/internal/progress"
)

// CompletionCause distinguishes an explicit finish from derived
// completion. The two writers are mutually exclusive: each can only run
// while completed_at is still null.
type CompletionCause string

const (
	CauseManual    CompletionCause = "manual"
	CauseAutomatic CompletionCause = "automatic"
)

// Session is one user's attempt at a tour, pinned to the version that
// was published when they started. locked_version_id never changes.
type Session struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	TourID          string           `json:"tour_id"`
	LockedVersionID string           `json:"locked_version_id"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CompletionCause *CompletionCause `json:"completion_cause,omitempty"`
}

// CheckpointView is a checkpoint localized for one language, with the
// caller's progress joined in when they are authenticated.
type CheckpointView struct {
	ID               string     `json:"id"`
	SeqNo            int        `json:"seq_no"`
	DisplayNumber    *int       `json:"display_number,omitempty"`
	IsVisible        bool       `json:"is_visible"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Lat              float64    `json:"lat"`
	Lng              float64    `json:"lng"`
	TriggerRadiusM   int        `json:"trigger_radius_m"`
	IsFreePreview    bool       `json:"is_free_preview"`
	Visited          bool       `json:"visited"`
	VisitedAt        *time.Time `json:"visited_at,omitempty"`
	AudioStatus      string     `json:"audio_status"`
	AudioStartedAt   *time.Time `json:"audio_started_at,omitempty"`
	AudioCompletedAt *time.Time `json:"audio_completed_at,omitempty"`
}

// Detail is a session with its locked version's title and aggregate
// progress, for the "my tours" listing.
type Detail struct {
	Session
	Title    string           `json:"title"`
	Progress progress.Summary `json:"progress"`
}
