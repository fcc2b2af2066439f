package router

import (
	"errors"
	"net/http"
	"time"

	authsvc "streammap-backend/internal/application/auth"
	healthsvc "streammap-backend/internal/application/health"
	orgsvc "streammap-backend/internal/application/org"
	projectsvc "streammap-backend/internal/application/projects"
	statesvc "streammap-backend/internal/application/states"
	uploadsvc "streammap-backend/internal/application/uploads"
	usersvc "streammap-backend/internal/application/user"
	"streammap-backend/internal/config"
	"streammap-backend/internal/constants"
	"streammap-backend/internal/geo"
	"streammap-backend/internal/infrastructure/database"
	authhandler "streammap-backend/internal/interfaces/handlers/auth"
	healthhandler "streammap-backend/internal/interfaces/handlers/health"
	orghandler "streammap-backend/internal/interfaces/handlers/org"
	projecthandler "streammap-backend/internal/interfaces/handlers/projects"
	statehandler "streammap-backend/internal/interfaces/handlers/states"
	uploadhandler "streammap-backend/internal/interfaces/handlers/uploads"
	userhandler "streammap-backend/internal/interfaces/handlers/user"
	"streammap-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrNoDatabase is returned when DATABASE_URL is empty.
var ErrNoDatabase = errors.New("DATABASE_URL is not set")

// CreateApp wires middleware, services and routes. The caller owns the returned DB and Redis client.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, ErrNoDatabase
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
		CookieDomain:      cfg.CookieDomain,
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.NewErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))

	// Region catalog: states table behind a TTL snapshot, invalidated on import.
	states := &statesvc.Service{DB: db}
	catalog := geo.NewCachedCatalog(states, cfg.RegionCacheTTL)
	states.Cache = catalog

	pipeline := projectsvc.NewPipeline(&geo.Resolver{Catalog: catalog})
	pipeline.Strict = cfg.RegionStrict
	pipeline.Timeout = cfg.RegionTimeout

	photos := &uploadsvc.Service{StorageURL: cfg.StorageURL, Bucket: cfg.PhotoBucket}
	if cfg.StorageURL != "" {
		photos.Client = &uploadsvc.HTTPClient{
			BaseURL:   cfg.StorageURL,
			SecretKey: cfg.StorageSecretKey,
			Client:    &http.Client{Timeout: 10 * time.Second},
		}
	} else {
		log.Warn().Msg("STORAGE_URL is not set; photo submissions will be rejected")
	}
	projects := &projectsvc.Service{DB: db, Pipeline: pipeline, Photos: photos}

	hh := &healthhandler.Handlers{
		Rdb: rdb,
		DB:  &database.Pinger{DB: db},
		Options: healthsvc.Options{
			Regions:    states,
			StorageURL: cfg.StorageURL,
			HTTPClient: &http.Client{Timeout: 3 * time.Second},
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	ah := &authhandler.Handlers{
		UserFinder: &authsvc.GormUserFinder{DB: db},
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	// Projects: reads are public, writes need a session and a permission.
	ph := &projecthandler.Handlers{Service: projects}
	uph := &uploadhandler.Handlers{Projects: projects}
	pg := app.Group("/api/v1/projects")
	pg.Get("/", ph.List)
	pg.Get("/stats", ph.Stats)
	pg.Get("/markers", ph.Markers)
	pg.Get("/:id", ph.Get)
	pg.Post("/", middleware.RequireAuth(), middleware.AuthorizePermission(constants.CreateProject), ph.Create)
	pg.Put("/:id", middleware.RequireAuth(), middleware.AuthorizePermission(constants.EditProject), ph.Update)
	pg.Delete("/:id", middleware.RequireAuth(), middleware.AuthorizePermission(constants.DeleteProject), ph.Delete)
	pg.Post("/:id/photos", middleware.RequireAuth(), middleware.AuthorizePermission(constants.EditProject), uph.AddPhotos)

	oh := &orghandler.Handlers{Service: &orgsvc.Service{DB: db}}
	og := app.Group("/api/v1/organizations")
	og.Get("/", oh.List)
	og.Post("/", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ManageOrganizations), oh.Create)
	og.Patch("/:id", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ManageOrganizations), oh.Update)

	sh := &statehandler.Handlers{Service: states}
	sg := app.Group("/api/v1/states")
	sg.Get("/", sh.List)
	sg.Post("/import", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ManageStates), sh.Import)

	uh := &userhandler.Handlers{Service: &usersvc.Service{DB: db, Rdb: rdb}}
	ug := app.Group("/api/v1/users", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ManageUsers))
	ug.Get("/", uh.List)
	ug.Patch("/:id/role", uh.UpdateRole)

	return app, db, rdb, nil
}
