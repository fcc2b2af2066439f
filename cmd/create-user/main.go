// Command create-user adds an account that can log in to the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	authsvc "streammap-backend/internal/application/auth"
	"streammap-backend/internal/config"
	"streammap-backend/internal/infrastructure/database"
	"streammap-backend/internal/pkg/constants"
	"streammap-backend/internal/pkg/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	email := flag.String("email", "", "login email")
	fullname := flag.String("name", "", "full name")
	role := flag.String("role", constants.Contributor, "admin, contributor or viewer")
	dsn := flag.String("db", "", "database URL (defaults to DATABASE_URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if *dsn == "" {
		*dsn = cfg.DatabaseURL
	}
	// The password comes from the environment so it stays out of shell history.
	password := os.Getenv("USER_PASSWORD")
	if *email == "" || *fullname == "" || password == "" || *dsn == "" {
		fmt.Fprintln(os.Stderr, "usage: USER_PASSWORD=... create-user -email a@b.org -name 'Jane Doe' [-role contributor]")
		os.Exit(2)
	}

	db, err := database.Open(*dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	u, err := authsvc.CreateUser(context.Background(), db, authsvc.CreateUserInput{
		Fullname: *fullname,
		Email:    *email,
		Password: password,
		Role:     *role,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create user")
	}
	fmt.Printf("%s\t%s\t%s\n", u.UserID, u.Email, u.Role)
}
