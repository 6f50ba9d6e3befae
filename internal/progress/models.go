package progress

import "time"

// AudioStatus tracks narration playback for one checkpoint. The status
// value itself may move in either direction (players re-scrub); only
// the first-transition timestamps are sticky.
type AudioStatus string

const (
	AudioNone      AudioStatus = "none"
	AudioStarted   AudioStatus = "started"
	AudioCompleted AudioStatus = "completed"
)

func (s AudioStatus) Valid() bool {
	switch s {
	case AudioNone, AudioStarted, AudioCompleted:
		return true
	}
	return false
}

// Event is the per-(user, checkpoint) progress record.
type Event struct {
	UserID           string      `json:"user_id"`
	CheckpointID     string      `json:"checkpoint_id"`
	Visited          bool        `json:"visited"`
	VisitedAt        *time.Time  `json:"visited_at,omitempty"`
	AudioStatus      AudioStatus `json:"audio_status"`
	AudioStartedAt   *time.Time  `json:"audio_started_at,omitempty"`
	AudioCompletedAt *time.Time  `json:"audio_completed_at,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Summary aggregates progress over a version's visible checkpoints.
type Summary struct {
	CheckpointsVisited int     `json:"checkpoints_visited"`
	CheckpointsTotal   int     `json:"checkpoints_total"`
	AudioCompleted     int     `json:"audio_completed"`
	ProgressPercent    float64 `json:"progress_percent"`
}
