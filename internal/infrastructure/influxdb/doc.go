// Package influxdb writes backend startup timings to InfluxDB.
//
// It is optional and off by default. When enabled, a StartupWriter observes
// the lifecycle and writes one backend_startup point when readiness probing
// ends (ready or timed out) and one backend_failure point when startup fails.
// Writes are batched and non-blocking; Close flushes them.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // not configured
//	}
//	defer client.Close()
//	coordinator.AddObserver(influxdb.NewStartupWriter(client, instance, mode))
package influxdb
