package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shammasov-max/locus-guide-back/internal/notify"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"
	"github.com/shammasov-max/locus-guide-back/internal/shared/geo"

	"github.com/pashagolub/pgxmock/v3"
)

var eventColumnNames = []string{"visited", "visited_at", "audio_status", "audio_started_at", "audio_completed_at", "updated_at"}

func expectNoActiveSession(mock pgxmock.PgxPoolIface, userID, tourID string) {
	mock.ExpectQuery(`SELECT id, locked_version_id`).
		WithArgs(userID, tourID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "locked_version_id"}))
}

func TestMarkVisited(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	visitedAt := time.Now()
	mock.ExpectQuery(`SELECT v.tour_id`).
		WithArgs("cp-1").
		WillReturnRows(pgxmock.NewRows([]string{"tour_id"}).AddRow("tour-1"))
	mock.ExpectQuery(`INSERT INTO checkpoint_progress`).
		WithArgs("user-1", "cp-1").
		WillReturnRows(pgxmock.NewRows(eventColumnNames).
			AddRow(true, &visitedAt, AudioNone, (*time.Time)(nil), (*time.Time)(nil), time.Now()))
	expectNoActiveSession(mock, "user-1", "tour-1")

	svc := NewService(mock, nil)
	event, err := svc.MarkVisited(context.Background(), "user-1", "cp-1", nil)
	if err != nil {
		t.Fatalf("mark visited: %v", err)
	}
	if !event.Visited || event.VisitedAt == nil {
		t.Fatalf("unexpected event: %+v", event)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkVisitedChecksTriggerRadius(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT v.tour_id`).
		WithArgs("cp-1").
		WillReturnRows(pgxmock.NewRows([]string{"tour_id"}).AddRow("tour-1"))
	mock.ExpectQuery(`ST_DWithin`).
		WithArgs("cp-1", 13.405, 52.52).
		WillReturnRows(pgxmock.NewRows([]string{"within"}).AddRow(false))

	svc := NewService(mock, nil)
	_, err = svc.MarkVisited(context.Background(), "user-1", "cp-1", &geo.Point{Lat: 52.52, Lng: 13.405})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid for out-of-radius position, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkVisitedWithinRadius(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	visitedAt := time.Now()
	mock.ExpectQuery(`SELECT v.tour_id`).
		WithArgs("cp-1").
		WillReturnRows(pgxmock.NewRows([]string{"tour_id"}).AddRow("tour-1"))
	mock.ExpectQuery(`ST_DWithin`).
		WithArgs("cp-1", 13.405, 52.52).
		WillReturnRows(pgxmock.NewRows([]string{"within"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO checkpoint_progress`).
		WithArgs("user-1", "cp-1").
		WillReturnRows(pgxmock.NewRows(eventColumnNames).
			AddRow(true, &visitedAt, AudioNone, (*time.Time)(nil), (*time.Time)(nil), time.Now()))
	expectNoActiveSession(mock, "user-1", "tour-1")

	svc := NewService(mock, nil)
	if _, err := svc.MarkVisited(context.Background(), "user-1", "cp-1", &geo.Point{Lat: 52.52, Lng: 13.405}); err != nil {
		t.Fatalf("mark visited: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkVisitedUnknownCheckpoint(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT v.tour_id`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"tour_id"}))

	svc := NewService(mock, nil)
	if _, err := svc.MarkVisited(context.Background(), "user-1", "missing", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetAudioStatusRejectsUnknownValue(t *testing.T) {
	svc := NewService(nil, nil)
	if _, err := svc.SetAudioStatus(context.Background(), "user-1", "cp-1", "paused"); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestSetAudioStatus(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	startedAt := time.Now()
	mock.ExpectQuery(`SELECT v.tour_id`).
		WithArgs("cp-1").
		WillReturnRows(pgxmock.NewRows([]string{"tour_id"}).AddRow("tour-1"))
	mock.ExpectQuery(`INSERT INTO checkpoint_progress`).
		WithArgs("user-1", "cp-1", AudioStarted).
		WillReturnRows(pgxmock.NewRows(eventColumnNames).
			AddRow(false, (*time.Time)(nil), AudioStarted, &startedAt, (*time.Time)(nil), time.Now()))
	expectNoActiveSession(mock, "user-1", "tour-1")

	svc := NewService(mock, nil)
	event, err := svc.SetAudioStatus(context.Background(), "user-1", "cp-1", AudioStarted)
	if err != nil {
		t.Fatalf("set audio status: %v", err)
	}
	if event.AudioStatus != AudioStarted || event.AudioStartedAt == nil {
		t.Fatalf("unexpected event: %+v", event)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAudioCompletionFinishesSession(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	completedAt := time.Now()
	mock.ExpectQuery(`SELECT v.tour_id`).
		WithArgs("cp-2").
		WillReturnRows(pgxmock.NewRows([]string{"tour_id"}).AddRow("tour-1"))
	mock.ExpectQuery(`INSERT INTO checkpoint_progress`).
		WithArgs("user-1", "cp-2", AudioCompleted).
		WillReturnRows(pgxmock.NewRows(eventColumnNames).
			AddRow(true, &completedAt, AudioCompleted, &completedAt, &completedAt, time.Now()))
	mock.ExpectQuery(`SELECT id, locked_version_id`).
		WithArgs("user-1", "tour-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "locked_version_id"}).AddRow("sess-1", "v1"))
	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WithArgs("user-1", "v1").
		WillReturnRows(pgxmock.NewRows([]string{"total", "visited", "audio"}).AddRow(2, 2, 2))
	mock.ExpectExec(`SET completed_at=now\(\), completion_cause='automatic'`).
		WithArgs("sess-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	hub := notify.NewHub(nil)
	client := hub.Register("tour-1")
	defer hub.Unregister(client)

	svc := NewService(mock, hub)
	if _, err := svc.SetAudioStatus(context.Background(), "user-1", "cp-2", AudioCompleted); err != nil {
		t.Fatalf("set audio status: %v", err)
	}

	select {
	case msg := <-client.Send:
		if len(msg) == 0 {
			t.Fatalf("empty completion event")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected completion event")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAudioCompletionLosesRaceSilently(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	completedAt := time.Now()
	mock.ExpectQuery(`SELECT v.tour_id`).
		WithArgs("cp-2").
		WillReturnRows(pgxmock.NewRows([]string{"tour_id"}).AddRow("tour-1"))
	mock.ExpectQuery(`INSERT INTO checkpoint_progress`).
		WithArgs("user-1", "cp-2", AudioCompleted).
		WillReturnRows(pgxmock.NewRows(eventColumnNames).
			AddRow(true, &completedAt, AudioCompleted, &completedAt, &completedAt, time.Now()))
	mock.ExpectQuery(`SELECT id, locked_version_id`).
		WithArgs("user-1", "tour-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "locked_version_id"}).AddRow("sess-1", "v1"))
	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WithArgs("user-1", "v1").
		WillReturnRows(pgxmock.NewRows([]string{"total", "visited", "audio"}).AddRow(2, 2, 2))
	mock.ExpectExec(`SET completed_at=now\(\), completion_cause='automatic'`).
		WithArgs("sess-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	hub := notify.NewHub(nil)
	client := hub.Register("tour-1")
	defer hub.Unregister(client)

	svc := NewService(mock, hub)
	if _, err := svc.SetAudioStatus(context.Background(), "user-1", "cp-2", AudioCompleted); err != nil {
		t.Fatalf("set audio status: %v", err)
	}

	select {
	case <-client.Send:
		t.Fatalf("losing evaluation must not publish an event")
	case <-time.After(50 * time.Millisecond):
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSummaryRounding(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WithArgs("user-1", "v1").
		WillReturnRows(pgxmock.NewRows([]string{"total", "visited", "audio"}).AddRow(3, 2, 1))

	svc := NewService(mock, nil)
	sum, err := svc.Summary(context.Background(), "user-1", "v1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.CheckpointsTotal != 3 || sum.CheckpointsVisited != 2 || sum.AudioCompleted != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.ProgressPercent != 33.3 {
		t.Fatalf("expected 33.3 percent, got %v", sum.ProgressPercent)
	}
}

func TestSummaryEmptyVersion(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`COUNT\(\*\) FILTER`).
		WithArgs("user-1", "v-empty").
		WillReturnRows(pgxmock.NewRows([]string{"total", "visited", "audio"}).AddRow(0, 0, 0))

	svc := NewService(mock, nil)
	sum, err := svc.Summary(context.Background(), "user-1", "v-empty")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.ProgressPercent != 0 {
		t.Fatalf("expected zero percent, got %v", sum.ProgressPercent)
	}
}
