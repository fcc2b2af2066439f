// Command import-states loads a GeoJSON FeatureCollection of state polygons into the
// region catalog. Existing states with the same name are replaced.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	statesvc "streammap-backend/internal/application/states"
	"streammap-backend/internal/config"
	"streammap-backend/internal/infrastructure/database"
	"streammap-backend/internal/pkg/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	file := flag.String("file", "", "path to a GeoJSON FeatureCollection (defaults to STATES_GEOJSON)")
	dsn := flag.String("db", "", "database URL (defaults to DATABASE_URL)")
	migrate := flag.Bool("migrate", true, "run schema migrations first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if *file == "" {
		*file = cfg.StatesGeoJSON
	}
	if *dsn == "" {
		*dsn = cfg.DatabaseURL
	}
	if *file == "" || *dsn == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := database.Open(*dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if *migrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("read geojson")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	imported, err := (&statesvc.Service{DB: db}).ImportGeoJSON(ctx, data)
	if err != nil {
		log.Fatal().Err(err).Msg("import states")
	}
	for _, s := range imported {
		fmt.Printf("%d\t%s\t%s\n", s.ID, s.Name, s.Abbreviation)
	}
	log.Info().Int("count", len(imported)).Msg("states imported")
}
