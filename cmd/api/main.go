package main

import (
	"context"
	"fmt"

	"streammap-backend/internal/app"

	"github.com/rs/zerolog/log"
)

func main() {
	svc, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}

	sqlDB, err := svc.DB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("database handle")
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("database connected")
	if err := svc.Rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Msg("redis connected")
	log.Info().Str("port", svc.Config.Port).Str("env", svc.Config.Env).
		Str("health", fmt.Sprintf("http://localhost:%s/health/json", svc.Config.Port)).Msg("server starting")

	if err := svc.Fiber.Listen(":" + svc.Config.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
