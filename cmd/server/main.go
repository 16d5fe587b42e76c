// Command server runs the ticket backend HTTP service: REST CRUD endpoints,
// ranked keyword search, analytics/insights, and the MCP tool-calling surface.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-ticket-backend/internal/config"
	httpapi "github.com/tbourn/go-ticket-backend/internal/http"
	"github.com/tbourn/go-ticket-backend/internal/observability"
	"github.com/tbourn/go-ticket-backend/internal/repo"
	"github.com/tbourn/go-ticket-backend/internal/search"
	"github.com/tbourn/go-ticket-backend/internal/services"
	"github.com/tbourn/go-ticket-backend/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title        Ticket Backend API
// @version      1.0
// @description  CRUD ticketing service with ranked keyword search and a tool-calling surface.
// @BasePath     /api/v1
func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Info().
		Str("version", version).
		Str("port", cfg.Port).
		Str("db_path", cfg.DBPath).
		Msg("starting ticket backend")

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sc); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if cfg.OTEL.Enabled {
		// Spans for every GORM query, attached to the request trace.
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin")
		}
	}

	ix := search.NewIndex()
	svc := &services.TicketService{
		DB:             db,
		Index:          ix,
		Engine:         search.NewEngine(ix),
		Insights:       services.NewInsightsService(),
		MaxSearchLimit: cfg.SearchMaxLimit,
		MaxPageSize:    cfg.ListMaxLimit,
	}

	// Warm the in-memory index from persisted tickets before serving traffic.
	n, err := svc.RebuildIndex(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("rebuild search index")
	}
	log.Info().Int("indexed", n).Msg("search index ready")

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	httpapi.RegisterRoutes(r, db, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	sc, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sc); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("stopped")
}
