// Package app assembles the HTTP service from configuration. Both the long-running
// server in cmd/api and the serverless entry point in api/ start here.
package app

import (
	"context"
	"fmt"
	"os"

	statesvc "streammap-backend/internal/application/states"
	"streammap-backend/internal/config"
	"streammap-backend/internal/infrastructure/database"
	"streammap-backend/internal/interfaces/router"
	"streammap-backend/internal/pkg/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App is a ready-to-serve Fiber app plus the connections it owns.
type App struct {
	Fiber  *fiber.App
	Config *config.Config
	DB     *gorm.DB
	Rdb    *redis.Client
}

// New loads configuration from the environment, sets up logging and builds the app.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return Build(context.Background(), cfg)
}

// Build wires the router and prepares the database schema and region catalog.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	fiberApp, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app create: %w", err)
	}
	if err := PrepareDatabase(ctx, db, cfg); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	return &App{Fiber: fiberApp, Config: cfg, DB: db, Rdb: rdb}, nil
}

// PrepareDatabase migrates the schema and seeds the region catalog from STATES_GEOJSON
// when the states table is empty.
func PrepareDatabase(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	states := &statesvc.Service{DB: db}
	n, err := states.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if cfg.StatesGeoJSON == "" {
		log.Warn().Msg("region catalog is empty and STATES_GEOJSON is not set; projects will be saved without a state")
		return nil
	}
	data, err := os.ReadFile(cfg.StatesGeoJSON)
	if err != nil {
		return fmt.Errorf("read STATES_GEOJSON: %w", err)
	}
	imported, err := states.ImportGeoJSON(ctx, data)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(imported)).Str("file", cfg.StatesGeoJSON).Msg("region catalog imported")
	return nil
}
