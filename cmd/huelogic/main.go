// Hue Logic - button programming for Hue bridges.
//
// This is the main entry point for the Hue Logic service. It mirrors
// the bridge's resources locally, serves the switch inventory and
// button programming API, and keeps room snapshots for backup and
// restore.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/huelogic/internal/api"
	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/cache"
	"github.com/nerrad567/huelogic/internal/infrastructure/config"
	"github.com/nerrad567/huelogic/internal/infrastructure/database"
	"github.com/nerrad567/huelogic/internal/infrastructure/influxdb"
	"github.com/nerrad567/huelogic/internal/infrastructure/logging"
	"github.com/nerrad567/huelogic/internal/infrastructure/mqtt"
	"github.com/nerrad567/huelogic/internal/inventory"
	"github.com/nerrad567/huelogic/internal/snapshot"
	"github.com/nerrad567/huelogic/internal/telemetry"
	"github.com/nerrad567/huelogic/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hue Logic",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx, migrations.FS(), "."); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Bridge transport
	transport := bridge.NewClient(cfg.Bridge)
	log.Info("bridge client configured", "host", cfg.Bridge.Host)

	// Local mirror
	mirror := cache.New(transport, cfg.Cache.Path, cfg.CacheMaxAge())
	mirror.SetLogger(log)
	if loadErr := mirror.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading cache: %w", loadErr)
	}
	log.Info("cache loaded",
		"path", cfg.Cache.Path,
		"reloaded_at", mirror.ReloadedAt(),
	)

	// Connect to MQTT broker (optional event mirror)
	var eventMirror *mqtt.Mirror
	var events cache.MultiEvents
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		eventMirror = mqtt.NewMirror(mqttClient, byte(cfg.MQTT.QoS))
		eventMirror.SetLogger(log)
		events = append(events, eventMirror)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional telemetry)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		collector := telemetry.NewCollector(mirror, influxClient)
		collector.SetLogger(log)
		events = append(events, collector)
	} else {
		log.Info("InfluxDB disabled")
	}

	if len(events) > 0 {
		mirror.SetEvents(events)
	}

	// Snapshot store
	store := snapshot.NewSQLiteStore(db.DB)

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		Logger:      log,
		Cache:       mirror,
		Inventory:   inventory.New(mirror),
		Store:       store,
		Transport:   transport,
		Mirror:      eventMirror,
		KeepPerRoom: cfg.Snapshots.KeepPerRoom,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify connections are healthy
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: api: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Hue Logic stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HUELOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HUELOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
