// Package mqtt publishes the desktop shell's lifecycle to an MQTT broker.
//
// It is optional and off by default. When enabled, each application
// instance owns two retained topics:
//
//	warehouse/desktop/{instance}/status   online / offline (LWT on crash)
//	warehouse/desktop/{instance}/state    last lifecycle transition as JSON
//
// A broker that is down at startup only disables publishing; it never
// blocks or fails the backend launch.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.InstanceID())
//	if err != nil {
//	    logger.Warn("mqtt disabled", "error", err)
//	} else {
//	    defer client.Close()
//	    coordinator.AddObserver(mqtt.NewLifecyclePublisher(client))
//	}
package mqtt
