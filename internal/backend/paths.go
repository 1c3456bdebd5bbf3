package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Mode selects where the backend artefacts are looked up.
type Mode string

const (
	// ModeDevelopment resolves paths into the local backend build output.
	ModeDevelopment Mode = "development"

	// ModePackaged resolves paths into the installed resources directory.
	ModePackaged Mode = "packaged"

	// ModeAuto picks packaged when a packaged jar is present, development otherwise.
	ModeAuto Mode = "auto"
)

const (
	// devTargetDir is the backend build output relative to the launcher's directory.
	devTargetDir = "../../backend/target"

	// packagedBackendDir is the backend directory inside the resources directory.
	packagedBackendDir = "backend"

	// runtimeBinDir is where a bundled Java runtime keeps its launcher.
	runtimeBinDir = "runtime/bin"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDevelopment, "dev":
		return ModeDevelopment, nil
	case ModePackaged:
		return ModePackaged, nil
	case ModeAuto, "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("%w: %q (use: auto, development, packaged)", ErrInvalidMode, s)
	}
}

// RuntimePaths are the resolved backend locations for one application run.
type RuntimePaths struct {
	Mode Mode `json:"mode"`

	// Executable is the backend jar.
	Executable string `json:"executable"`

	// Interpreter is the bundled Java launcher path. It is only used when
	// BundledInterpreterPresent is true.
	Interpreter string `json:"interpreter"`

	// BundledInterpreterPresent records whether Interpreter existed on disk
	// when the paths were resolved.
	BundledInterpreterPresent bool `json:"bundled_interpreter_present"`
}

// Layout describes where the launcher lives and what it is looking for.
type Layout struct {
	// BaseDir is the directory of the launcher executable.
	BaseDir string

	// ResourcesDir is the packaged resources directory.
	// Default: <BaseDir>/resources
	ResourcesDir string

	// JarName is the backend jar filename.
	JarName string

	// Interpreter is the bare interpreter name, without platform suffix.
	// Default: "java"
	Interpreter string

	// GOOS selects the executable suffix. Default: runtime.GOOS
	GOOS string
}

// Resolver turns a Mode into RuntimePaths for a fixed Layout.
type Resolver struct {
	layout Layout
}

// NewResolver creates a resolver, filling layout defaults.
// An empty BaseDir is taken from the running executable's directory.
func NewResolver(layout Layout) (*Resolver, error) {
	if layout.BaseDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating launcher executable: %w", err)
		}
		if resolved, evalErr := filepath.EvalSymlinks(exe); evalErr == nil {
			exe = resolved
		}
		layout.BaseDir = filepath.Dir(exe)
	}
	if layout.ResourcesDir == "" {
		layout.ResourcesDir = filepath.Join(layout.BaseDir, "resources")
	}
	if layout.Interpreter == "" {
		layout.Interpreter = "java"
	}
	if layout.GOOS == "" {
		layout.GOOS = runtime.GOOS
	}
	if layout.JarName == "" {
		return nil, fmt.Errorf("backend jar name is required")
	}

	return &Resolver{layout: layout}, nil
}

// DetectMode resolves ModeAuto: packaged if the packaged jar exists, otherwise development.
// Explicit modes are returned unchanged.
func (r *Resolver) DetectMode(mode Mode) Mode {
	if mode != ModeAuto {
		return mode
	}
	if fileExists(r.packagedJar()) {
		return ModePackaged
	}
	return ModeDevelopment
}

// Resolve returns the backend paths for mode. ModeAuto is detected first.
// The only I/O is the existence check on the bundled interpreter.
func (r *Resolver) Resolve(mode Mode) RuntimePaths {
	mode = r.DetectMode(mode)

	var jar, binDir string
	switch mode {
	case ModePackaged:
		backendDir := filepath.Join(r.layout.ResourcesDir, packagedBackendDir)
		jar = filepath.Join(backendDir, r.layout.JarName)
		binDir = filepath.Join(backendDir, filepath.FromSlash(runtimeBinDir))
	default:
		target := filepath.Join(r.layout.BaseDir, filepath.FromSlash(devTargetDir))
		jar = filepath.Join(target, r.layout.JarName)
		binDir = filepath.Join(target, filepath.FromSlash(runtimeBinDir))
	}

	interpreter := filepath.Join(binDir, r.InterpreterName())

	return RuntimePaths{
		Mode:                      mode,
		Executable:                jar,
		Interpreter:               interpreter,
		BundledInterpreterPresent: fileExists(interpreter),
	}
}

// InterpreterName returns the interpreter filename for the target platform.
func (r *Resolver) InterpreterName() string {
	return ExecutableName(r.layout.Interpreter, r.layout.GOOS)
}

func (r *Resolver) packagedJar() string {
	return filepath.Join(r.layout.ResourcesDir, packagedBackendDir, r.layout.JarName)
}

// ExecutableName appends the platform executable suffix to name.
func ExecutableName(name, goos string) string {
	if goos == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
