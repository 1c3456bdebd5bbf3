package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
)

// Measurement names.
const (
	MeasurementStartup = "backend_startup"
	MeasurementFailure = "backend_failure"
)

// PointWriter accepts points for asynchronous delivery.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// StartupWriter is a lifecycle.Observer that records startup timings.
type StartupWriter struct {
	w        PointWriter
	instance string
	mode     string
}

// NewStartupWriter creates a writer tagging points with instance and mode.
func NewStartupWriter(w PointWriter, instance, mode string) *StartupWriter {
	return &StartupWriter{w: w, instance: instance, mode: mode}
}

// OnTransition implements lifecycle.Observer.
func (s *StartupWriter) OnTransition(_ context.Context, t lifecycle.Transition) error {
	if p := s.point(t); p != nil {
		s.w.WritePoint(p)
	}
	return nil
}

// point returns the point for t, or nil when t is not recorded.
func (s *StartupWriter) point(t lifecycle.Transition) *write.Point {
	tags := map[string]string{
		"instance": s.instance,
		"mode":     s.mode,
	}

	switch {
	case t.Readiness != nil && (t.To == lifecycle.StateReady || t.To == lifecycle.StateDegradedReady):
		tags["outcome"] = string(t.Readiness.Outcome)
		return write.NewPoint(MeasurementStartup, tags, map[string]any{
			"ready_ms": t.Readiness.Elapsed.Milliseconds(),
			"attempts": t.Readiness.Attempts,
			"port":     t.Endpoint.Port,
			"session":  t.Session,
		}, t.At)

	case t.To == lifecycle.StateFailed:
		tags["stage"] = string(t.From)
		return write.NewPoint(MeasurementFailure, tags, map[string]any{
			"error":   t.Error,
			"session": t.Session,
		}, t.At)
	}
	return nil
}
