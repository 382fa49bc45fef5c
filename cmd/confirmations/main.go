package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"steam_bridge/internal/config"
	"steam_bridge/internal/database"
	"steam_bridge/internal/handlers"
	"steam_bridge/internal/middleware"
	"steam_bridge/internal/services"
	"steam_bridge/internal/session"
	"steam_bridge/internal/steam"
)

// auditRetention is how long audit entries are kept before startup pruning.
const auditRetention = 90 * 24 * time.Hour

// App holds the application dependencies.
type App struct {
	config   *config.Config
	db       *database.DB
	registry *session.Registry
	router   *chi.Mux

	authHandler  *handlers.AuthHandler
	confHandler  *handlers.ConfirmationsHandler
	auditHandler *handlers.AuditHandler
}

func main() {
	// Local development overrides; absence is fine
	godotenv.Load()

	cfg := config.New(config.DefaultConfirmationsPort)

	db, err := database.New(cfg.AuditDBPath)
	if err != nil {
		log.Fatalf("[Confirmations] Failed to open audit database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("[Confirmations] Failed to run migrations: %v", err)
	}

	auditService := services.NewAuditService(db)
	if pruned, err := auditService.DeleteOlderThan(auditRetention); err == nil && pruned > 0 {
		log.Printf("[Confirmations] Pruned %d audit entries past retention", pruned)
	}

	registry := session.NewRegistry().WithOnEvict(func(rec *session.Record) {
		auditService.LogAction(rec.ID, rec.SteamID, rec.AccountName, services.AuditSessionSwept, "", nil, "")
	})
	registry.StartSweeper(session.SweepInterval)
	defer registry.Close()

	deps := handlers.NewDependencies().
		WithRegistry(registry).
		WithClientOptions(steam.Options{
			CommunityURL: cfg.CommunityURL,
			APIBaseURL:   cfg.APIBaseURL,
		}).
		WithAuditService(auditService).
		WithCurrencyService(services.NewCurrencyService())

	app := &App{
		config:       cfg,
		db:           db,
		registry:     registry,
		authHandler:  handlers.NewAuthHandler(deps),
		confHandler:  handlers.NewConfirmationsHandler(deps),
		auditHandler: handlers.NewAuditHandler(deps),
	}

	app.setupRouter()

	// No write timeout: vendor calls carry no deadline and a slow one must
	// not sever the response mid-flight.
	server := &http.Server{
		Addr:        cfg.Address(),
		Handler:     app.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[Confirmations] Server starting on http://%s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Confirmations] Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Confirmations] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("[Confirmations] Server forced to shutdown: %v", err)
	}

	log.Println("[Confirmations] Server stopped")
}

func (app *App) setupRouter() {
	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	// Request URLs carry session ids in query strings, so verbose request
	// logging stays development-only.
	if app.config.IsDevelopment {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Compress(5))

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireJSON)
	r.Use(middleware.LimitBody)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.authHandler.Health)

		// Login routes, rate limited to keep the vendor from flagging us
		r.Group(func(r chi.Router) {
			r.Use(middleware.LimitLogin)
			r.Post("/login-mafile", app.authHandler.LoginMAFile)
			r.Post("/login-with-secrets", app.authHandler.LoginWithSecrets)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.LimitAPI)

			// Confirmations
			r.Get("/confirmations", app.confHandler.List)
			r.Post("/confirmations/accept-all", app.confHandler.AcceptAll)
			r.Post("/confirmations/cancel-all", app.confHandler.CancelAll)
			r.Post("/confirmations/{confirmationId}/accept", app.confHandler.Accept)
			r.Post("/confirmations/{confirmationId}/cancel", app.confHandler.Cancel)
			r.Get("/confirmations/{confirmationId}/details", app.confHandler.Details)

			// Sessions and audit
			r.Post("/logout", app.authHandler.Logout)
			r.Get("/audit", app.auditHandler.Recent)
		})
	})

	app.router = r
}
