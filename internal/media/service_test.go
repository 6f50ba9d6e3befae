package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"

	"github.com/pashagolub/pgxmock/v3"
)

func TestAttach(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("cp-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO narration_media`).
		WithArgs(pgxmock.AnyArg(), "cp-1", "en", baseURL+"gate-en.mp3", 95, "editor-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	svc := NewService(mock)
	narration, err := svc.Attach(context.Background(), "cp-1", "en", "gate-en.mp3", 95, "editor-1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if narration.URL != baseURL+"gate-en.mp3" || narration.ID == "" {
		t.Fatalf("unexpected narration: %+v", narration)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAttachUnknownCheckpoint(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	svc := NewService(mock)
	if _, err := svc.Attach(context.Background(), "missing", "en", "a.mp3", 10, "editor-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM narration_media WHERE checkpoint_id`).
		WithArgs("cp-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "checkpoint_id", "lang", "url", "duration_sec", "uploaded_by", "created_at"}).
			AddRow("n-1", "cp-1", "de", baseURL+"gate-de.mp3", 90, "editor-1", time.Now()).
			AddRow("n-2", "cp-1", "en", baseURL+"gate-en.mp3", 95, "editor-1", time.Now()))

	svc := NewService(mock)
	narrations, err := svc.List(context.Background(), "cp-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(narrations) != 2 || narrations[0].Lang != "de" {
		t.Fatalf("unexpected narrations: %+v", narrations)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
