// Package config loads and validates the desktop shell configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// WAREHOUSE_DESKTOP_* environment variables. Credentials for the optional
// MQTT and InfluxDB observers should be set through the environment.
//
// Usage:
//
//	path, explicit := config.ResolvePath(*configFlag)
//	cfg, err := config.Load(path, !explicit)
//	if err != nil {
//	    return err
//	}
package config
