package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
)

// dialogTimeout bounds how long a native dialog helper may block.
const dialogTimeout = 10 * time.Minute

// NativeDialog shows blocking error dialogs with the platform helper.
type NativeDialog struct {
	goos     string
	runner   Runner
	fallback io.Writer
	logger   Logger
}

// NewNativeDialog creates a dialog for the current platform that falls back
// to stderr.
func NewNativeDialog() *NativeDialog {
	return NewNativeDialogFor(runtime.GOOS, ExecRunner{}, os.Stderr)
}

// NewNativeDialogFor creates a dialog for goos.
func NewNativeDialogFor(goos string, runner Runner, fallback io.Writer) *NativeDialog {
	if fallback == nil {
		fallback = io.Discard
	}
	return &NativeDialog{goos: goos, runner: runner, fallback: fallback, logger: noopLogger{}}
}

// SetLogger sets the logger for the dialog.
func (d *NativeDialog) SetLogger(logger Logger) {
	d.logger = logger
}

// ShowError blocks until the user dismisses the dialog. If no helper works
// the message is written to the fallback writer.
func (d *NativeDialog) ShowError(title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), dialogTimeout)
	defer cancel()

	for _, c := range dialogCommands(d.goos, title, message) {
		err := d.runner.Run(ctx, c[0], c[1:]...)
		if err == nil {
			return
		}
		d.logger.Warn("dialog helper failed", "helper", c[0], "error", err)
	}

	fmt.Fprintf(d.fallback, "%s: %s\n", title, message)
}

func dialogCommands(goos, title, message string) [][]string {
	switch goos {
	case "darwin":
		script := fmt.Sprintf("display alert %s message %s as critical",
			appleQuote(title), appleQuote(message))
		return [][]string{{"osascript", "-e", script}}
	case "windows":
		script := fmt.Sprintf(
			"Add-Type -AssemblyName PresentationFramework; [System.Windows.MessageBox]::Show(%s, %s, 'OK', 'Error')",
			psQuote(message), psQuote(title))
		return [][]string{{"powershell", "-NoProfile", "-Command", script}}
	default:
		return [][]string{
			{"zenity", "--error", "--title=" + title, "--text=" + message},
			{"kdialog", "--title", title, "--error", message},
		}
	}
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
