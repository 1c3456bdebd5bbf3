// Warehouse Desktop - local shell for the warehouse management backend.
//
// The launcher finds a free loopback port, starts the bundled backend jar on
// it, waits for the health endpoint and opens the user interface at the
// backend's URL. Closing the application terminates the backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/nerrad567/warehouse-desktop/internal/api"
	"github.com/nerrad567/warehouse-desktop/internal/backend"
	"github.com/nerrad567/warehouse-desktop/internal/history"
	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/config"
	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/database"
	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/influxdb"
	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/logging"
	"github.com/nerrad567/warehouse-desktop/internal/infrastructure/mqtt"
	"github.com/nerrad567/warehouse-desktop/internal/lifecycle"
	"github.com/nerrad567/warehouse-desktop/internal/ports"
	"github.com/nerrad567/warehouse-desktop/internal/readiness"
	"github.com/nerrad567/warehouse-desktop/internal/ui"
	"github.com/nerrad567/warehouse-desktop/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// historyFileName is the launch history database inside the log directory.
const historyFileName = "desktop.db"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - args: Command-line arguments without the program name
//   - stdout: Destination for -version output
//
// Returns:
//   - error: nil on clean shutdown, or the startup failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("warehouse-desktop", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config.yaml (env "+config.EnvConfigPath+")")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	if *showVersion {
		fmt.Fprintf(stdout, "warehouse-desktop %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	configPath, explicit := config.ResolvePath(*configFlag)
	cfg, err := config.Load(configPath, !explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting warehouse desktop",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	coordinator, paths, err := buildCoordinator(cfg, log)
	if err != nil {
		return err
	}

	instance := cfg.InstanceID()

	checks := map[string]healthChecker{}

	repo, db, closeDB := openHistory(cfg, log)
	defer closeDB()
	var recorder *history.Recorder
	if repo != nil {
		checks["database"] = db
		recorder = history.NewRecorder(repo, string(paths.Mode), interpreterFor(cfg, paths))
		coordinator.AddObserver(recorder)
	}

	server, stopAPI := startStatusAPI(ctx, cfg, log, coordinator, repo)
	defer stopAPI()
	if server != nil {
		checks["api"] = server
	}

	if cfg.MQTT.Enabled {
		client, mqttErr := mqtt.Connect(cfg.MQTT, instance)
		if mqttErr != nil {
			log.Warn("MQTT unavailable, lifecycle publishing disabled", "error", mqttErr)
		} else {
			client.SetLogger(log.Component("mqtt"))
			defer func() {
				if closeErr := client.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			coordinator.AddObserver(mqtt.NewLifecyclePublisher(client))
			checks["mqtt"] = client
			log.Info("MQTT connected", "topic", client.Topics().State())
		}
	}

	influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(influxErr, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case influxErr != nil:
		log.Warn("InfluxDB unavailable, startup timings disabled", "error", influxErr)
	default:
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		coordinator.AddObserver(influxdb.NewStartupWriter(influxClient, instance, string(paths.Mode)))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		checks["influxdb"] = influxClient
	}

	if err := healthCheck(ctx, checks); err != nil {
		log.Warn("health check failed", "error", err)
	} else {
		log.Info("all health checks passed", "checked", len(checks))
	}

	runErr := coordinator.Run(ctx)
	if recorder != nil {
		if launch := recorder.Current(); launch != nil {
			log.Info("launch recorded",
				"session", launch.Session,
				"state", launch.State,
				"outcome", launch.Outcome,
				"port", launch.Port,
			)
		}
	}
	if runErr != nil {
		return fmt.Errorf("running backend: %w", runErr)
	}

	log.Info("warehouse desktop stopped", "session", coordinator.Session())
	return nil
}

// healthChecker is implemented by each optional infrastructure client.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies the optional infrastructure connections. None of them
// gate the backend, so the caller only logs the result.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - checks: Connected clients keyed by name
//
// Returns:
//   - error: First failure in name order, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]healthChecker) error {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := checks[name].HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// buildCoordinator resolves the backend artefacts and wires the lifecycle
// coordinator with its allocator, launcher, prober, window and dialog.
func buildCoordinator(cfg *config.Config, log *logging.Logger) (*lifecycle.Coordinator, backend.RuntimePaths, error) {
	mode, err := backend.ParseMode(cfg.Runtime.Mode)
	if err != nil {
		return nil, backend.RuntimePaths{}, fmt.Errorf("runtime mode: %w", err)
	}

	resolver, err := backend.NewResolver(backend.Layout{
		BaseDir:      cfg.Runtime.BaseDir,
		ResourcesDir: cfg.Runtime.ResourcesDir,
		JarName:      cfg.Backend.JarName,
		Interpreter:  cfg.Backend.Interpreter,
	})
	if err != nil {
		return nil, backend.RuntimePaths{}, fmt.Errorf("resolving backend paths: %w", err)
	}
	paths := resolver.Resolve(mode)
	log.Info("backend paths resolved",
		"mode", paths.Mode,
		"jar", paths.Executable,
		"bundled_interpreter", paths.BundledInterpreterPresent,
	)

	launcher, err := backend.NewLauncher(backend.Config{
		Interpreter:     cfg.Backend.Interpreter,
		ExtraArgs:       cfg.Backend.ExtraArgs,
		LogPath:         backend.LogPath(cfg.Backend.LogDirName, cfg.Backend.LogFileName),
		GracefulTimeout: cfg.Backend.GracefulTimeout,
	})
	if err != nil {
		return nil, backend.RuntimePaths{}, fmt.Errorf("creating launcher: %w", err)
	}
	launcher.SetLogger(log.Component("launcher"))
	log.Info("backend log", "path", launcher.LogPath())

	prober := readiness.NewProber(readiness.Config{
		HealthPath:     cfg.Backend.HealthPath,
		Interval:       cfg.Backend.PollInterval,
		RequestTimeout: cfg.Backend.RequestTimeout,
	})
	prober.SetLogger(log.Component("readiness"))

	allocator := ports.NewAllocator(cfg.Backend.Host)
	allocator.SetLogger(log.Component("ports"))

	window := ui.NewBrowserWindow()
	window.SetLogger(log.Component("window"))
	dialog := ui.NewNativeDialog()
	dialog.SetLogger(log.Component("dialog"))

	coordinator, err := lifecycle.New(lifecycle.Config{
		PortStart:    cfg.Backend.PortStart,
		PortMax:      cfg.Backend.PortMax,
		ReadyTimeout: cfg.Backend.ReadyTimeout,
		TitlePrefix:  cfg.App.TitlePrefix,
	}, lifecycle.Deps{
		Allocator: allocator,
		Launcher:  lifecycle.NewBackendLauncher(launcher, paths),
		Prober:    prober,
		Window:    window,
		Dialog:    dialog,
	})
	if err != nil {
		return nil, backend.RuntimePaths{}, fmt.Errorf("creating coordinator: %w", err)
	}
	coordinator.SetLogger(log.Component("lifecycle").With("session", coordinator.Session()))

	return coordinator, paths, nil
}

// openHistory opens the launch history store. Any failure disables history
// and is logged; the backend still starts.
//
// Returns:
//   - history.Repository: nil when disabled or unavailable
//   - *database.DB: The open database, nil with repo
//   - func(): Closes the database, a no-op when repo is nil
func openHistory(cfg *config.Config, log *logging.Logger) (history.Repository, *database.DB, func()) {
	if !cfg.Database.Enabled {
		log.Info("launch history disabled")
		return nil, nil, func() {}
	}

	path := historyPath(cfg)
	db, err := database.Open(database.Config{
		Path:        path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		log.Warn("launch history unavailable", "path", path, "error", err)
		return nil, nil, func() {}
	}

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		log.Warn("launch history migrations failed", "path", path, "error", err)
		db.Close() //nolint:errcheck // Already failing
		return nil, nil, func() {}
	}

	log.Info("launch history opened", "path", db.Path())
	return history.NewSQLiteRepository(db.DB), db, func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}
}

// startStatusAPI starts the loopback status API when enabled. Failures are
// logged and leave the API off with a nil server. The returned func stops it.
func startStatusAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, coordinator *lifecycle.Coordinator, repo history.Repository) (*api.Server, func()) {
	if !cfg.API.Enabled {
		return nil, func() {}
	}

	allocator := ports.NewAllocator(cfg.API.Host)
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log.Component("api"),
		Status:    coordinator,
		Allocator: allocator,
		History:   repo,
		Version:   version,
	})
	if err != nil {
		log.Warn("status API disabled", "error", err)
		return nil, func() {}
	}
	if err := server.Start(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("status API failed to start", "error", err)
		}
		return nil, func() {}
	}

	log.Info("status API listening", "url", server.Endpoint().URL())
	coordinator.AddObserver(server)
	return server, func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing status API", "error", closeErr)
		}
	}
}

// historyPath returns the configured database path, defaulting to the
// backend log directory under the user's home.
func historyPath(cfg *config.Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return filepath.Join(filepath.Dir(backend.LogPath(cfg.Backend.LogDirName, cfg.Backend.LogFileName)), historyFileName)
}

// interpreterFor names the Java launcher the backend will run under.
func interpreterFor(cfg *config.Config, paths backend.RuntimePaths) string {
	if paths.BundledInterpreterPresent {
		return paths.Interpreter
	}
	return cfg.Backend.Interpreter
}
