package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// ErrNoOpener is returned when no platform opener could be started.
var ErrNoOpener = errors.New("ui: no browser opener available")

// profilePrefix names the throwaway browser profile directories.
const profilePrefix = "warehouse-desktop-window-"

// Title returns the window title for a backend on port.
func Title(prefix string, port int) string {
	return prefix + " (" + strconv.Itoa(port) + ")"
}

// Logger defines the logging interface for ui components.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// BrowserWindow shows the backend UI in its own browser window.
//
// When a Chromium-based browser is installed it is run in app mode with a
// private profile, as a child of this process: the window closing ends
// that child and closes the channel returned by Closed. Otherwise the URL
// is handed to the system opener and closing the tab cannot be observed.
type BrowserWindow struct {
	goos   string
	runner Runner
	logger Logger

	closed    chan struct{}
	closeOnce sync.Once
}

// NewBrowserWindow creates a window for the current platform.
func NewBrowserWindow() *BrowserWindow {
	return NewBrowserWindowFor(runtime.GOOS, ExecRunner{})
}

// NewBrowserWindowFor creates a window for goos using runner.
func NewBrowserWindowFor(goos string, runner Runner) *BrowserWindow {
	return &BrowserWindow{
		goos:   goos,
		runner: runner,
		logger: noopLogger{},
		closed: make(chan struct{}),
	}
}

// SetLogger sets the logger for the window.
func (w *BrowserWindow) SetLogger(logger Logger) {
	w.logger = logger
}

// Open shows url. It returns once the window process has started; an
// app-mode window is then supervised in the background until it exits or
// ctx is cancelled. The title is only logged, the page sets its own.
func (w *BrowserWindow) Open(ctx context.Context, url, title string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("ui: empty url")
	}

	if browser, ok := w.findAppBrowser(); ok {
		profile, err := os.MkdirTemp("", profilePrefix)
		if err == nil {
			w.logger.Info("window opened", "title", title, "url", url, "browser", browser)
			go w.runApp(ctx, browser, profile, url, title)
			return nil
		}
		w.logger.Warn("cannot create browser profile, using system browser", "error", err)
	}

	return w.openSystem(ctx, url, title)
}

// Closed is closed when the app-mode window exits on its own. It never
// fires for the system-browser fallback.
func (w *BrowserWindow) Closed() <-chan struct{} {
	return w.closed
}

// runApp waits for the app-mode browser. A clean exit means the user closed
// the window; a failure falls back to the system opener.
func (w *BrowserWindow) runApp(ctx context.Context, browser, profile, url, title string) {
	err := w.runner.Run(ctx, browser, appArgs(url, profile)...)

	if rmErr := os.RemoveAll(profile); rmErr != nil {
		w.logger.Warn("cannot remove browser profile", "path", profile, "error", rmErr)
	}

	switch {
	case ctx.Err() != nil:
		return
	case err != nil:
		w.logger.Warn("app window failed, using system browser", "browser", browser, "error", err)
		if openErr := w.openSystem(ctx, url, title); openErr != nil {
			w.logger.Warn("could not open window, open the URL manually", "url", url, "error", openErr)
		}
		return
	}

	w.logger.Info("window closed", "title", title)
	w.closeOnce.Do(func() { close(w.closed) })
}

// findAppBrowser returns the first installed app-mode capable browser.
func (w *BrowserWindow) findAppBrowser() (string, bool) {
	for _, name := range appBrowsers(w.goos) {
		if path, err := w.runner.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// openSystem hands url to the platform opener.
func (w *BrowserWindow) openSystem(ctx context.Context, url, title string) error {
	var errs []error
	for _, c := range openerCommands(w.goos, url) {
		err := w.runner.Start(ctx, c[0], c[1:]...)
		if err == nil {
			w.logger.Info("window opened", "title", title, "url", url, "opener", c[0])
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", c[0], err))
	}
	return fmt.Errorf("%w: %w", ErrNoOpener, errors.Join(errs...))
}

// appArgs starts a single chromeless window on a private profile, so the
// browser process belongs to this window alone.
func appArgs(url, profile string) []string {
	return []string{
		"--app=" + url,
		"--user-data-dir=" + profile,
		"--no-first-run",
		"--no-default-browser-check",
	}
}

// appBrowsers lists Chromium-based browsers to try, in order, for goos.
func appBrowsers(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		return []string{
			"msedge",
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
			"chrome",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		}
	default:
		return []string{
			"chromium",
			"chromium-browser",
			"google-chrome",
			"google-chrome-stable",
			"microsoft-edge",
		}
	}
}

// openerCommands lists the commands to try, in order, for goos.
func openerCommands(goos, url string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"open", url}}
	case "windows":
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"cmd", "/c", "start", "", url},
		}
	default:
		return [][]string{
			{"xdg-open", url},
			{"sensible-browser", url},
			{"x-www-browser", url},
		}
	}
}
