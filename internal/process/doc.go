// Package process owns a single child OS process for its whole lifetime.
//
// It is used by the backend launcher to run the local backend server:
//
//   - Spawn with stdin detached and stdout/stderr wired to one writer
//   - Reap the child in the background so it never lingers as a zombie
//   - Terminate exactly once: SIGTERM to the process group, SIGKILL after a grace period
//   - Status and statistics for the status API
//
// The child's own exit is observed only to reap it and record the exit error.
// There is no restart policy; a crashed backend stays down until the
// application is restarted.
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:            "backend",
//	    Binary:          "/usr/bin/java",
//	    Args:            []string{"-jar", "app.jar"},
//	    Output:          logFile,
//	    GracefulTimeout: 5 * time.Second,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Terminate()
package process
