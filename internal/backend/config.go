package backend

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings the launcher needs to invoke the backend.
type Config struct {
	// Interpreter is the bare interpreter name used when no bundled
	// runtime is present. It is resolved through PATH.
	// Default: "java"
	Interpreter string

	// ExtraArgs are passed to the interpreter before -jar.
	ExtraArgs []string

	// LogPath is the file both output streams are appended to.
	// Default: ~/.warehouse/backend.log
	LogPath string

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	// Default: 5s
	GracefulTimeout time.Duration

	// GOOS selects the fallback interpreter suffix. Default: runtime.GOOS
	GOOS string
}

// Validate checks the launcher configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Interpreter) == "" {
		return fmt.Errorf("interpreter is required")
	}
	for _, arg := range c.ExtraArgs {
		if strings.HasPrefix(arg, "-Dserver.address=") || strings.HasPrefix(arg, "-Dserver.port=") {
			return fmt.Errorf("extra arg %q would override the allocated bind address", arg)
		}
		if arg == "-jar" {
			return fmt.Errorf("extra args must not contain -jar")
		}
	}
	if c.GracefulTimeout < 0 {
		return fmt.Errorf("graceful timeout must not be negative")
	}
	return nil
}

// BuildArgs constructs the interpreter arguments for the backend.
// The bind address and port always come first and are explicit.
func (c *Config) BuildArgs(host string, port int, jar string) []string {
	args := []string{
		"-Dserver.address=" + host,
		"-Dserver.port=" + strconv.Itoa(port),
	}
	args = append(args, c.ExtraArgs...)
	args = append(args, "-jar", jar)
	return args
}

// isLoopback reports whether host is a loopback IP or "localhost".
func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
