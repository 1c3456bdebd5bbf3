package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither -config nor WAREHOUSE_DESKTOP_CONFIG is set.
const DefaultPath = "configs/config.yaml"

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "WAREHOUSE_DESKTOP_CONFIG"

// Config is the root configuration for the desktop shell.
// It is loaded from YAML and can be overridden by environment variables.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Backend  BackendConfig  `yaml:"backend"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
}

// AppConfig identifies this installation.
type AppConfig struct {
	Name string `yaml:"name"`

	// TitlePrefix is the window title; " (<port>)" is appended.
	TitlePrefix string `yaml:"title_prefix"`

	// InstanceID scopes MQTT topics and InfluxDB tags. Defaults to the hostname.
	InstanceID string `yaml:"instance_id"`
}

// RuntimeConfig selects where the backend artefacts are looked up.
type RuntimeConfig struct {
	// Mode is "auto", "development" or "packaged".
	Mode string `yaml:"mode"`

	// BaseDir is the application directory. Empty means the executable's directory.
	BaseDir string `yaml:"base_dir"`

	// ResourcesDir is the packaged resources directory. Empty means BaseDir/resources.
	ResourcesDir string `yaml:"resources_dir"`
}

// BackendConfig describes how the backend is launched and probed.
type BackendConfig struct {
	JarName     string `yaml:"jar_name"`
	Interpreter string `yaml:"interpreter"`

	// Host must be a loopback address.
	Host      string `yaml:"host"`
	PortStart int    `yaml:"port_start"`
	PortMax   int    `yaml:"port_max"`

	HealthPath      string        `yaml:"health_path"`
	ReadyTimeout    time.Duration `yaml:"ready_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`

	// ExtraArgs are passed to the interpreter before -jar.
	ExtraArgs []string `yaml:"extra_args"`

	// LogDirName and LogFileName place the backend log under the user's home.
	LogDirName  string `yaml:"log_dir_name"`
	LogFileName string `yaml:"log_file_name"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DatabaseConfig contains launch history store settings.
type DatabaseConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite file. Empty means <home>/<log_dir_name>/desktop.db.
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains the optional lifecycle publisher settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains the optional startup timing writer settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// APIConfig contains the optional loopback status API settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	PortStart int              `yaml:"port_start"`
	PortMax   int              `yaml:"port_max"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains transition stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// ResolvePath picks the config path: the flag value, then
// WAREHOUSE_DESKTOP_CONFIG, then DefaultPath. explicit is false only for
// DefaultPath.
func ResolvePath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v, true
	}
	return DefaultPath, false
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values
//  2. YAML file values
//  3. Environment variables
//
// A missing file is an error unless optional is set, in which case the
// defaults are used.
func Load(path string, optional bool) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config matching the packaged application.
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "warehouse-desktop",
			TitlePrefix: "Warehouse Management",
		},
		Runtime: RuntimeConfig{
			Mode: "auto",
		},
		Backend: BackendConfig{
			JarName:         "warehouse-management-1.0.0.jar",
			Interpreter:     "java",
			Host:            "127.0.0.1",
			PortStart:       8080,
			PortMax:         8200,
			HealthPath:      "/api/health",
			ReadyTimeout:    30 * time.Second,
			PollInterval:    500 * time.Millisecond,
			RequestTimeout:  2 * time.Second,
			GracefulTimeout: 5 * time.Second,
			LogDirName:      ".warehouse",
			LogFileName:     "backend.log",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Database: DatabaseConfig{
			Enabled:     true,
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "warehouse-desktop",
			},
			QoS:            1,
			TopicPrefix:    "warehouse/desktop",
			ConnectTimeout: 5 * time.Second,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "warehouse",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host:      "127.0.0.1",
			PortStart: 9180,
			PortMax:   9199,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 4096,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Variables follow the pattern WAREHOUSE_DESKTOP_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WAREHOUSE_DESKTOP_MODE"); v != "" {
		cfg.Runtime.Mode = v
	}
	// Development flag wins over any mode setting.
	if os.Getenv("WAREHOUSE_DESKTOP_DEV") == "1" {
		cfg.Runtime.Mode = "development"
	}

	if v := os.Getenv("WAREHOUSE_DESKTOP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("WAREHOUSE_DESKTOP_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("WAREHOUSE_DESKTOP_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WAREHOUSE_DESKTOP_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WAREHOUSE_DESKTOP_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("WAREHOUSE_DESKTOP_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Runtime.Mode {
	case "auto", "development", "packaged":
	default:
		errs = append(errs, fmt.Sprintf("runtime.mode %q must be auto, development or packaged", c.Runtime.Mode))
	}

	b := c.Backend
	if b.JarName == "" {
		errs = append(errs, "backend.jar_name is required")
	}
	if b.Interpreter == "" {
		errs = append(errs, "backend.interpreter is required")
	}
	if !isLoopback(b.Host) {
		errs = append(errs, fmt.Sprintf("backend.host %q must be a loopback address", b.Host))
	}
	errs = append(errs, validateRange("backend", b.PortStart, b.PortMax)...)
	if !strings.HasPrefix(b.HealthPath, "/") {
		errs = append(errs, "backend.health_path must start with /")
	}
	for name, d := range map[string]time.Duration{
		"backend.ready_timeout":   b.ReadyTimeout,
		"backend.poll_interval":   b.PollInterval,
		"backend.request_timeout": b.RequestTimeout,
	} {
		if d <= 0 {
			errs = append(errs, name+" must be positive")
		}
	}
	if b.GracefulTimeout < 0 {
		errs = append(errs, "backend.graceful_timeout must not be negative")
	}
	if b.LogFileName == "" {
		errs = append(errs, "backend.log_file_name is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.API.Enabled {
		if !isLoopback(c.API.Host) {
			errs = append(errs, fmt.Sprintf("api.host %q must be a loopback address", c.API.Host))
		}
		errs = append(errs, validateRange("api", c.API.PortStart, c.API.PortMax)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validateRange(section string, start, limit int) []string {
	if start < 1 || limit > 65535 || start > limit {
		return []string{fmt.Sprintf("%s.port_start..port_max must satisfy 1 <= %d <= %d <= 65535", section, start, limit)}
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// InstanceID returns App.InstanceID, falling back to the hostname.
func (c *Config) InstanceID() string {
	if c.App.InstanceID != "" {
		return c.App.InstanceID
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "local"
}
