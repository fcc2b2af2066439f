package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string // postgres DSN, or sqlite:<path> for local runs
	RedisURL            string
	StorageURL          string // Supabase-compatible storage base URL used for signed and public photo URLs
	StorageSecretKey    string // service key; the anon key cannot sign uploads
	PhotoBucket         string
	StatesGeoJSON       string // optional region file imported at startup when the catalog is empty
	RegionStrict        bool
	RegionCacheTTL      time.Duration
	RegionTimeout       time.Duration
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	CookieDomain        string
	HealthAdminKey      string
	LogLevel            zerolog.Level
	LogFormat           string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PHOTO_BUCKET", "project-photos")
	viper.SetDefault("REGION_CACHE_TTL", "5m")
	viper.SetDefault("REGION_TIMEOUT", "2s")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL")))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	ttl, err := duration("REGION_CACHE_TTL")
	if err != nil {
		return nil, err
	}
	timeout, err := duration("REGION_TIMEOUT")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("REGION_TIMEOUT must be positive")
	}

	return &Config{
		Env:                 viper.GetString("APP_ENV"),
		Port:                viper.GetString("PORT"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		StorageURL:          strings.TrimRight(viper.GetString("STORAGE_URL"), "/"),
		StorageSecretKey:    viper.GetString("STORAGE_SECRET_KEY"),
		PhotoBucket:         viper.GetString("PHOTO_BUCKET"),
		StatesGeoJSON:       viper.GetString("STATES_GEOJSON"),
		RegionStrict:        strings.EqualFold(viper.GetString("REGION_STRICT"), "true"),
		RegionCacheTTL:      ttl,
		RegionTimeout:       timeout,
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		CookieDomain:        viper.GetString("COOKIE_DOMAIN"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		LogLevel:            level,
		LogFormat:           strings.ToLower(viper.GetString("LOG_FORMAT")),
	}, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func duration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
