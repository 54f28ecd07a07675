package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DevDeskHQ/devdesk_api/internal/cache"
	"github.com/DevDeskHQ/devdesk_api/internal/config"
	"github.com/DevDeskHQ/devdesk_api/internal/database"
	"github.com/DevDeskHQ/devdesk_api/internal/handler"
	"github.com/DevDeskHQ/devdesk_api/internal/middleware"
	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/repository"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/worker"
	"github.com/DevDeskHQ/devdesk_api/internal/ws"
)

// main is the application entrypoint for the DevDesk dashboard API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting devdesk api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize repositories
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// 5. Initialize websocket hub (explicit registry, no package singleton)
	hub := ws.NewHub()

	// 6. Initialize services
	activitySvc := service.NewActivityService(activityRepo, cache.NewActivityCache(redisClient), ws.NewHubNotifier(hub))
	authSvc := service.NewAuthService(userRepo, activitySvc, cache.NewLoginLimiter(redisClient), cfg.SessionSecret, cfg.SessionTTL)
	userSvc := service.NewUserService(userRepo, activitySvc)
	documentSvc := service.NewDocumentService(service.NewAnthropicGenerator(&cfg.Anthropic))
	skillSvc := service.NewSkillService(cfg.Workspace.SkillsDir, "SKILL.md")
	agentSvc := service.NewSkillService(cfg.Workspace.AgentsDir, "AGENT.md")

	fsSvc, err := service.NewFSService(cfg.Workspace.Roots)
	if err != nil {
		log.Fatal().Err(err).Msg("workspace service initialization failed")
	}
	desktopSvc, err := service.NewDesktopService(cfg.Desktop.Upstreams)
	if err != nil {
		log.Fatal().Err(err).Msg("desktop service initialization failed")
	}

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:    handler.NewHealthHandler(db, redisClient),
		Auth:      handler.NewAuthHandler(authSvc),
		User:      handler.NewUserHandler(userSvc),
		Activity:  handler.NewActivityHandler(activitySvc),
		WS:        handler.NewWSHandler(hub),
		Document:  handler.NewDocumentHandler(documentSvc, activitySvc),
		Skill:     handler.NewDefinitionHandler(skillSvc, activitySvc, "skill"),
		Agent:     handler.NewDefinitionHandler(agentSvc, activitySvc, "agent"),
		Workspace: handler.NewWorkspaceHandler(fsSvc, activitySvc),
		Desktop:   handler.NewDesktopHandler(desktopSvc),
	}

	// 8. Initialize middleware
	sessionMw := middleware.NewSessionMiddleware(authSvc)

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, sessionMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewRetentionWorker(activityRepo, cfg.Worker.ActivityRetention, cfg.Worker.ActivitySweepInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers, close open sockets
	cancel()
	hub.Shutdown()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Activity  *handler.ActivityHandler
	WS        *handler.WSHandler
	Document  *handler.DocumentHandler
	Skill     *handler.DefinitionHandler
	Agent     *handler.DefinitionHandler
	Workspace *handler.WorkspaceHandler
	Desktop   *handler.DesktopHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, sessionMw *middleware.SessionMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.POST("/v1/auth/login", handlers.Auth.Login)

	// Authenticated routes
	authed := router.Group("/v1")
	authed.Use(sessionMw.Handle())
	{
		authed.POST("/auth/logout", handlers.Auth.Logout)
		authed.GET("/auth/me", handlers.Auth.Me)

		// Activity feed
		authed.GET("/activity", handlers.Activity.List)
		authed.GET("/activity/ws", handlers.WS.Stream)

		// User management (admin only)
		users := authed.Group("/users")
		users.Use(middleware.RequireRole(models.RoleAdmin))
		{
			users.GET("", handlers.User.List)
			users.POST("", handlers.User.Create)
			users.GET("/:id", handlers.User.Get)
			users.PUT("/:id", handlers.User.Update)
			users.DELETE("/:id", handlers.User.Delete)
		}

		// AI document drafting
		documents := authed.Group("/documents")
		documents.Use(middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper, models.RoleUser))
		{
			documents.POST("/generate", handlers.Document.Generate)
			documents.POST("/refine/stream", handlers.Document.Stream)
		}

		// Skill and agent definitions
		for prefix, h := range map[string]*handler.DefinitionHandler{
			"/skills": handlers.Skill,
			"/agents": handlers.Agent,
		} {
			group := authed.Group(prefix)
			group.GET("", h.List)
			group.POST("", middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper, models.RoleUser), h.Save)
			group.GET("/:name", h.Get)
			group.GET("/:name/preview", h.Preview)
		}

		// Workspace filesystem (admin + developer)
		workspace := authed.Group("/workspace")
		workspace.Use(middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper))
		{
			workspace.GET("/browse", handlers.Workspace.Browse)
			workspace.GET("/permissions", handlers.Workspace.GetPermissions)
			workspace.PUT("/permissions", handlers.Workspace.SetPermissions)
			workspace.GET("/file", handlers.Workspace.ReadFile)
			workspace.PUT("/file", handlers.Workspace.WriteFile)
		}

		// Remote desktops (admin + developer)
		desktops := authed.Group("/desktops")
		desktops.Use(middleware.RequireRole(models.RoleAdmin, models.RoleDeveloper))
		{
			desktops.GET("", handlers.Desktop.List)
			desktops.Any("/:name/*path", handlers.Desktop.Proxy)
		}
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
