//go:build !windows

package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/nerrad567/warehouse-desktop/internal/backend"
	"github.com/nerrad567/warehouse-desktop/internal/ports"
	"github.com/nerrad567/warehouse-desktop/internal/readiness"
)

// installSilentJava puts a java on PATH that stays alive without listening.
// exec keeps the signal target and the supervised pid the same process.
func installSilentJava(t *testing.T) {
	t.Helper()
	binDir := t.TempDir()
	script := "#!/bin/sh\necho \"fake-java $*\"\nexec sleep 60\n"
	if err := os.WriteFile(filepath.Join(binDir, "java"), []byte(script), 0o755); err != nil { //nolint:gosec // Test script must be executable
		t.Fatalf("write fake java: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestCoordinator_RefusedBackendDegradesThenRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full readiness timeout")
	}
	installSilentJava(t)

	resolver, err := backend.NewResolver(backend.Layout{
		BaseDir: t.TempDir(),
		JarName: "warehouse-backend.jar",
	})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	paths := resolver.Resolve(backend.ModeDevelopment)
	if paths.BundledInterpreterPresent {
		t.Fatal("bundled interpreter should be absent")
	}

	logPath := filepath.Join(t.TempDir(), ".warehouse", "backend.log")
	launcher, err := backend.NewLauncher(backend.Config{
		Interpreter:     "java",
		LogPath:         logPath,
		GracefulTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewLauncher() error = %v", err)
	}

	window := &fakeWindow{}
	dialog := &fakeDialog{}
	rec := &recorder{}
	quit := true
	const readyTimeout = 2 * time.Second

	c, err := New(Config{
		PortStart:              38080,
		PortMax:                38180,
		ReadyTimeout:           readyTimeout,
		TitlePrefix:            "Warehouse Management",
		QuitOnAllWindowsClosed: &quit,
	}, Deps{
		Allocator: ports.NewAllocator(ports.LoopbackHost),
		Launcher:  NewBackendLauncher(launcher, paths),
		Prober: readiness.NewProber(readiness.Config{
			Interval:       100 * time.Millisecond,
			RequestTimeout: 200 * time.Millisecond,
		}),
		Window:    window,
		Dialog:    dialog,
		Observers: []Observer{rec},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	begin := time.Now()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	elapsed := time.Since(begin)

	want := []State{StateAllocating, StateLaunching, StateProbing, StateDegradedReady, StateRunning}
	if got := rec.states(); !equalStates(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
	if elapsed < readyTimeout {
		t.Errorf("Start() returned after %v, before the %v readiness timeout", elapsed, readyTimeout)
	}
	if dialog.shown != 0 {
		t.Errorf("dialog shown: %q", dialog.message)
	}
	if window.opened != 1 {
		t.Fatalf("window opened %d times", window.opened)
	}

	st := c.Status()
	if st.State != StateRunning {
		t.Errorf("State = %s, want running", st.State)
	}
	if st.Readiness == nil || st.Readiness.Outcome != readiness.TimedOut {
		t.Errorf("Readiness = %+v, want timed out", st.Readiness)
	}
	if window.url != st.URL {
		t.Errorf("window url = %q, want %q", window.url, st.URL)
	}
	if st.Endpoint.Port < 38080 || st.Endpoint.Port > 38180 {
		t.Errorf("port %d outside the search range", st.Endpoint.Port)
	}
	if st.Process == nil || filepath.Base(st.Process.Binary) != "java" {
		t.Errorf("Process = %+v, want the PATH interpreter", st.Process)
	}
	pid := st.PID
	if pid <= 0 {
		t.Fatalf("PID = %d", pid)
	}

	c.Shutdown(context.Background())

	if c.State() != StateTerminated {
		t.Errorf("State() after Shutdown = %s", c.State())
	}
	if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
		t.Errorf("backend pid %d still present after Shutdown: %v", pid, err)
	}
}
