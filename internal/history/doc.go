// Package history records every application run in the local SQLite store.
//
// A Recorder observes lifecycle transitions and keeps one launches row per
// session up to date: endpoint, pid, readiness outcome, startup error and
// when the run ended. The status API reads the rows back with List.
package history
