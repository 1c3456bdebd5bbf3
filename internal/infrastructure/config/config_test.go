package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  title_prefix: "Warehouse"
runtime:
  mode: packaged
  base_dir: /opt/warehouse
backend:
  port_start: 9000
  port_max: 9010
  ready_timeout: 45s
  poll_interval: 250ms
  extra_args: ["-Xmx512m"]
mqtt:
  enabled: true
  broker:
    host: "broker.local"
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.TitlePrefix != "Warehouse" {
		t.Errorf("App.TitlePrefix = %q", cfg.App.TitlePrefix)
	}
	if cfg.Runtime.Mode != "packaged" || cfg.Runtime.BaseDir != "/opt/warehouse" {
		t.Errorf("Runtime = %+v", cfg.Runtime)
	}
	if cfg.Backend.PortStart != 9000 || cfg.Backend.PortMax != 9010 {
		t.Errorf("port range = %d..%d", cfg.Backend.PortStart, cfg.Backend.PortMax)
	}
	if cfg.Backend.ReadyTimeout != 45*time.Second || cfg.Backend.PollInterval != 250*time.Millisecond {
		t.Errorf("durations = %v / %v", cfg.Backend.ReadyTimeout, cfg.Backend.PollInterval)
	}
	if len(cfg.Backend.ExtraArgs) != 1 || cfg.Backend.ExtraArgs[0] != "-Xmx512m" {
		t.Errorf("ExtraArgs = %v", cfg.Backend.ExtraArgs)
	}
	// Untouched fields keep their defaults.
	if cfg.Backend.JarName != "warehouse-management-1.0.0.jar" || cfg.Backend.HealthPath != "/api/health" {
		t.Errorf("defaults lost: %+v", cfg.Backend)
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	if err != nil {
		t.Fatalf("Load() optional missing file error = %v", err)
	}

	b := cfg.Backend
	if b.Host != "127.0.0.1" || b.PortStart != 8080 || b.PortMax != 8200 {
		t.Errorf("endpoint defaults = %s %d..%d", b.Host, b.PortStart, b.PortMax)
	}
	if b.ReadyTimeout != 30*time.Second || b.PollInterval != 500*time.Millisecond {
		t.Errorf("probe defaults = %v / %v", b.ReadyTimeout, b.PollInterval)
	}
	if b.LogDirName != ".warehouse" || b.LogFileName != "backend.log" {
		t.Errorf("log defaults = %s/%s", b.LogDirName, b.LogFileName)
	}
	if cfg.Runtime.Mode != "auto" || cfg.API.Enabled || cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Errorf("optional features should default off: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml", false); err == nil {
		t.Error("Load() expected error for missing explicit file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	if _, err := Load(path, true); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "runtime:\n  mode: packaged\n")

	t.Setenv("WAREHOUSE_DESKTOP_DEV", "1")
	t.Setenv("WAREHOUSE_DESKTOP_DATABASE_PATH", "/tmp/desk.db")
	t.Setenv("WAREHOUSE_DESKTOP_MQTT_HOST", "mqtt.example")
	t.Setenv("WAREHOUSE_DESKTOP_MQTT_USERNAME", "user")
	t.Setenv("WAREHOUSE_DESKTOP_MQTT_PASSWORD", "pass")
	t.Setenv("WAREHOUSE_DESKTOP_INFLUXDB_TOKEN", "tok")
	t.Setenv("WAREHOUSE_DESKTOP_LOG_LEVEL", "debug")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runtime.Mode != "development" {
		t.Errorf("Runtime.Mode = %q, want development", cfg.Runtime.Mode)
	}
	if cfg.Database.Path != "/tmp/desk.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example" || cfg.MQTT.Auth.Username != "user" || cfg.MQTT.Auth.Password != "pass" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.InfluxDB.Token != "tok" || cfg.Logging.Level != "debug" {
		t.Errorf("InfluxDB.Token = %q, Logging.Level = %q", cfg.InfluxDB.Token, cfg.Logging.Level)
	}
}

func TestLoad_ModeEnv(t *testing.T) {
	t.Setenv("WAREHOUSE_DESKTOP_MODE", "packaged")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"), true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Runtime.Mode != "packaged" {
		t.Errorf("Runtime.Mode = %q, want packaged", cfg.Runtime.Mode)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(*Config) {}},
		{name: "bad mode", mutate: func(c *Config) { c.Runtime.Mode = "staging" }, wantErr: "runtime.mode"},
		{name: "non-loopback host", mutate: func(c *Config) { c.Backend.Host = "0.0.0.0" }, wantErr: "backend.host"},
		{name: "localhost allowed", mutate: func(c *Config) { c.Backend.Host = "localhost" }},
		{name: "ipv6 loopback allowed", mutate: func(c *Config) { c.Backend.Host = "::1" }},
		{name: "inverted range", mutate: func(c *Config) { c.Backend.PortStart = 8300 }, wantErr: "backend.port_start"},
		{name: "port too high", mutate: func(c *Config) { c.Backend.PortMax = 70000 }, wantErr: "backend.port_start"},
		{name: "single port range", mutate: func(c *Config) { c.Backend.PortStart, c.Backend.PortMax = 8080, 8080 }},
		{name: "health path", mutate: func(c *Config) { c.Backend.HealthPath = "api/health" }, wantErr: "health_path"},
		{name: "zero ready timeout", mutate: func(c *Config) { c.Backend.ReadyTimeout = 0 }, wantErr: "ready_timeout"},
		{name: "zero poll interval", mutate: func(c *Config) { c.Backend.PollInterval = 0 }, wantErr: "poll_interval"},
		{name: "negative grace", mutate: func(c *Config) { c.Backend.GracefulTimeout = -time.Second }, wantErr: "graceful_timeout"},
		{name: "missing jar", mutate: func(c *Config) { c.Backend.JarName = "" }, wantErr: "jar_name"},
		{name: "bad qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "influx without bucket", mutate: func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Bucket = "" }, wantErr: "influxdb"},
		{name: "api on all interfaces", mutate: func(c *Config) { c.API.Enabled = true; c.API.Host = "0.0.0.0" }, wantErr: "api.host"},
		{name: "disabled api not validated", mutate: func(c *Config) { c.API.Host = "0.0.0.0" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if p, explicit := ResolvePath(""); p != DefaultPath || explicit {
		t.Errorf("ResolvePath(\"\") = %q, %v", p, explicit)
	}

	t.Setenv(EnvConfigPath, "/etc/warehouse.yaml")
	if p, explicit := ResolvePath(""); p != "/etc/warehouse.yaml" || !explicit {
		t.Errorf("ResolvePath with env = %q, %v", p, explicit)
	}
	if p, explicit := ResolvePath("/flag.yaml"); p != "/flag.yaml" || !explicit {
		t.Errorf("ResolvePath with flag = %q, %v", p, explicit)
	}
}

func TestTimeoutsAndInstance(t *testing.T) {
	cfg := defaultConfig()
	to := cfg.API.Timeouts
	if to.ReadTimeout() != 10*time.Second || to.WriteTimeout() != 10*time.Second || to.IdleTimeout() != time.Minute {
		t.Errorf("timeouts = %v / %v / %v", to.ReadTimeout(), to.WriteTimeout(), to.IdleTimeout())
	}

	cfg.App.InstanceID = "till-3"
	if cfg.InstanceID() != "till-3" {
		t.Errorf("InstanceID() = %q", cfg.InstanceID())
	}
	cfg.App.InstanceID = ""
	if cfg.InstanceID() == "" {
		t.Error("InstanceID() fallback is empty")
	}
}
