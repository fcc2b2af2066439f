package database

import (
	"strings"

	"streammap-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const sqlitePrefix = "sqlite:"

// Open opens a GORM DB from DSN. "sqlite:<path>" opens a local SQLite file (or ":memory:");
// anything else is handed to the Postgres driver.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers such as PgBouncer.
func Open(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite serialises writers; one connection also keeps ":memory:" databases whole.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate creates or updates every table the service owns. The affiliation model is
// registered as the projects<->organizations join table first so GORM does not invent one.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&domain.Project{}, "Organizations", &domain.Affiliation{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&domain.User{},
		&domain.State{},
		&domain.Organization{},
		&domain.Project{},
		&domain.Affiliation{},
		&domain.Photo{},
	)
}

// Pinger adapts a GORM handle to the health report's DBPinger.
type Pinger struct {
	DB *gorm.DB
}

func (p *Pinger) Ping() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
