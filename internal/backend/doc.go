// Package backend locates and spawns the local warehouse backend server.
//
// The backend is a Java application packaged as a single jar. In development
// it is picked up from the backend build output next to the repository; in a
// packaged install it ships inside the application's resources directory,
// optionally together with a bundled Java runtime:
//
//	development:  <base>/../../backend/target/warehouse-management-1.0.0.jar
//	              <base>/../../backend/target/runtime/bin/java
//	packaged:     <resources>/backend/warehouse-management-1.0.0.jar
//	              <resources>/backend/runtime/bin/java
//
// When the bundled runtime is missing, the launcher falls back to whatever
// "java" resolves to on PATH.
//
// The backend is always told which address and port to bind; its own
// defaults are never relied on. Both output streams are appended to a single
// per-user log file (~/.warehouse/backend.log) that is never truncated, so
// the history of every run is available for postmortem debugging. Logging is
// best-effort: if the directory or file cannot be created the backend still
// starts, with its output discarded.
package backend
