package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/database"
	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
	"github.com/nerrad567/warehouse-desktop/internal/ports"
	"github.com/nerrad567/warehouse-desktop/internal/readiness"
	"github.com/nerrad567/warehouse-desktop/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "desktop.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_SaveGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	l := &Launch{Session: "s1", Mode: "packaged", State: "allocating", StartedAt: started}
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ended := started.Add(time.Minute)
	l.State = "terminated"
	l.Port = 8081
	l.EndedAt = &ended
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != "terminated" || got.Port != 8081 || got.Mode != "packaged" {
		t.Errorf("Get() = %+v", got)
	}
	if !got.StartedAt.Equal(started) || got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("times = %v / %v", got.StartedAt, got.EndedAt)
	}
}

func TestSQLiteRepository_Errors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrLaunchNotFound) {
		t.Errorf("Get() error = %v, want ErrLaunchNotFound", err)
	}
	if err := repo.Save(ctx, &Launch{Session: "x"}); !errors.Is(err, ErrInvalidLaunch) {
		t.Errorf("Save() without start time error = %v, want ErrInvalidLaunch", err)
	}
	if err := repo.Save(ctx, nil); !errors.Is(err, ErrInvalidLaunch) {
		t.Errorf("Save(nil) error = %v, want ErrInvalidLaunch", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for i, s := range []string{"a", "b", "c"} {
		l := &Launch{Session: s, Mode: "development", State: "running", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Save(ctx, l); err != nil {
			t.Fatalf("Save(%s) error = %v", s, err)
		}
	}

	got, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].Session != "c" || got[1].Session != "b" {
		t.Errorf("List(2) = %+v", got)
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(0) len = %d, want 3", len(all))
	}
}

func TestRecorder_TracksRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	rec := NewRecorder(repo, "packaged", "/opt/app/runtime/bin/java")

	ep := ports.Endpoint{Host: ports.LoopbackHost, Port: 8083}
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	res := &readiness.Result{Outcome: readiness.Ready, Attempts: 4, Elapsed: 1500 * time.Millisecond}

	steps := []lifecycle.Transition{
		{Session: "run-1", From: lifecycle.StateIdle, To: lifecycle.StateAllocating, At: at},
		{Session: "run-1", From: lifecycle.StateAllocating, To: lifecycle.StateLaunching, At: at, Endpoint: ep},
		{Session: "run-1", From: lifecycle.StateLaunching, To: lifecycle.StateProbing, At: at, Endpoint: ep, PID: 777},
		{Session: "run-1", From: lifecycle.StateProbing, To: lifecycle.StateReady, At: at, Endpoint: ep, PID: 777, Readiness: res},
		{Session: "run-1", From: lifecycle.StateReady, To: lifecycle.StateRunning, At: at, Endpoint: ep, PID: 777},
		{Session: "run-1", From: lifecycle.StateRunning, To: lifecycle.StateTerminating, At: at, Endpoint: ep, PID: 777},
		{Session: "run-1", From: lifecycle.StateTerminating, To: lifecycle.StateTerminated, At: at.Add(time.Hour), Endpoint: ep, PID: 777},
	}
	for _, tr := range steps {
		if err := rec.OnTransition(ctx, tr); err != nil {
			t.Fatalf("OnTransition(%s) error = %v", tr.To, err)
		}
	}

	got, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Port != 8083 || got.PID != 777 || got.Outcome != "ready" || got.Attempts != 4 {
		t.Errorf("launch = %+v", got)
	}
	if got.ReadyAfterMS != 1500 || got.State != "terminated" || got.EndedAt == nil {
		t.Errorf("launch = %+v", got)
	}
	if got.Interpreter != "/opt/app/runtime/bin/java" || got.Mode != "packaged" {
		t.Errorf("launch = %+v", got)
	}
	if rec.Current().Session != "run-1" {
		t.Errorf("Current() = %+v", rec.Current())
	}
}

func TestRecorder_RecordsFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	rec := NewRecorder(repo, "development", "java")

	at := time.Now()
	_ = rec.OnTransition(ctx, lifecycle.Transition{Session: "run-2", To: lifecycle.StateAllocating, At: at})
	if err := rec.OnTransition(ctx, lifecycle.Transition{
		Session: "run-2", From: lifecycle.StateAllocating, To: lifecycle.StateFailed, At: at,
		Error: "allocating port: no available port",
	}); err != nil {
		t.Fatalf("OnTransition() error = %v", err)
	}

	got, err := repo.Get(ctx, "run-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != "failed" || got.Error == "" || got.Port != 0 {
		t.Errorf("launch = %+v", got)
	}
}
