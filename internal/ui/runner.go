package ui

import (
	"context"
	"os/exec"
)

// Runner runs an external helper command.
type Runner interface {
	// LookPath resolves name to an executable path.
	LookPath(name string) (string, error)

	// Start launches name without waiting for it to exit.
	Start(ctx context.Context, name string, args ...string) error

	// Run launches name and waits for it to exit. Cancelling ctx kills it.
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Start implements Runner. The child is released once started.
func (ExecRunner) Start(_ context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap in the background so openers do not linger as zombies.
	go func() { _ = cmd.Wait() }()
	return nil
}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
