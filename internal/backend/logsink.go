package backend

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	// logDirPermissions is the permission mode for the per-user log directory.
	logDirPermissions = 0750

	// logFilePermissions is the permission mode for the backend log file.
	logFilePermissions = 0640
)

// UserHome returns the invoking user's home directory.
// USERPROFILE wins over HOME so Windows shells that export both behave.
func UserHome() string {
	if v := os.Getenv("USERPROFILE"); v != "" {
		return v
	}
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// LogPath returns <home>/<dirName>/<fileName>.
func LogPath(dirName, fileName string) string {
	return filepath.Join(UserHome(), dirName, fileName)
}

// OpenLogSink opens path for appending, creating its directory if needed.
//
// Failures never propagate: a directory that cannot be created or a file that
// cannot be opened is logged and an io.Discard-backed sink is returned, so
// the backend still starts. The returned writer is an *os.File whenever the
// file was opened, which lets the child write to it directly.
func OpenLogSink(path string, logger Logger) io.WriteCloser {
	if logger == nil {
		logger = noopLogger{}
	}

	if err := os.MkdirAll(filepath.Dir(path), logDirPermissions); err != nil && !errors.Is(err, fs.ErrExist) {
		logger.Warn("could not create backend log directory, continuing", "path", filepath.Dir(path), "error", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) //nolint:gosec // Fixed per-user path
	if err != nil {
		logger.Warn("could not open backend log file, output will be discarded", "path", path, "error", err)
		return discardCloser{}
	}

	return f
}

// writeBanner separates runs in the shared log. Errors are ignored; the
// banner is decoration.
func writeBanner(w io.Writer, port int, binary string, args []string) {
	_, _ = fmt.Fprintf(w, "\n===== %s backend starting on port %d: %s %v =====\n", //nolint:errcheck // Best-effort banner
		time.Now().Format(time.RFC3339), port, binary, args)
}

type discardCloser struct{}

func (discardCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardCloser) Close() error                { return nil }
