// HomeLink Bridge - Home Automation Backend
//
// This is the main entry point for the HomeLink bridge. It connects the
// MQTT field bus (sensor nodes and actuators) with web clients over REST
// and WebSocket, persisting every reading and every dispatched command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/nerrad567/homelink-bridge/migrations"

	"github.com/nerrad567/homelink-bridge/internal/action"
	"github.com/nerrad567/homelink-bridge/internal/api"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/config"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/database"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/homelink-bridge/internal/ingest"
	"github.com/nerrad567/homelink-bridge/internal/reading"
	"github.com/nerrad567/homelink-bridge/internal/relay"
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
	log.Info("starting HomeLink Bridge",
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
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	readingRepo := reading.NewSQLiteRepository(db.DB)
	actionRepo := action.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
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

	// Connect to Redis (optional latest-reading cache)
	var cache *reading.Cache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = reading.NewCache(redisClient)
		if pingErr := cache.HealthCheck(ctx); pingErr != nil {
			return fmt.Errorf("connecting to Redis: %w", pingErr)
		}
		defer func() {
			log.Info("closing Redis connection")
			if closeErr := cache.Close(); closeErr != nil {
				log.Error("error closing Redis", "error", closeErr)
			}
		}()
		log.Info("Redis connected", "addr", cfg.RedisAddr())
	} else {
		log.Info("Redis cache disabled")
	}

	// Connect to InfluxDB (optional time-series mirror)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// Create API server and the shared realtime hub
	apiDeps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Readings: readingRepo,
		Actions:  actionRepo,
		Database: db,
		MQTT:     mqttClient,
		Version:  version,
	}
	if cache != nil {
		apiDeps.Cache = cache
	}

	server, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	hub := server.Hub()

	qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2 by config.Validate

	// Wire the command relay: client control events -> actions table -> broker
	relayDeps := relay.Deps{
		Recorder:  actionRepo,
		Publisher: mqttClient,
		Responder: hub,
		Logger:    log,
		QoS:       qos,
	}
	if influxClient != nil {
		relayDeps.Metrics = influxClient
	}
	commandRelay := relay.New(relayDeps)
	commandRelay.Register(hub)

	// Wire the ingestion pipeline: sensor topics -> storage -> broadcast
	ingestDeps := ingest.Deps{
		Store:  readingRepo,
		Hub:    hub,
		Logger: log,
	}
	if cache != nil {
		ingestDeps.Cache = cache
	}
	if influxClient != nil {
		ingestDeps.Metrics = influxClient
	}
	pipeline := ingest.New(ingestDeps)
	if err := pipeline.Start(mqttClient, qos); err != nil {
		return fmt.Errorf("starting ingestion pipeline: %w", err)
	}
	log.Info("ingestion pipeline started", "topics", mqtt.SensorTopics())

	// Start the HTTP/WebSocket server
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. Redis (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("HomeLink Bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
