package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"layout-designer/internal/common/config"
	"layout-designer/internal/common/middleware"
	"layout-designer/internal/designer/dispatch"
	"layout-designer/internal/designer/handlers"
	"layout-designer/internal/designer/layoutstore"
	"layout-designer/internal/designer/session"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ============================================================
// Designer Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3001"
	}

	logger := newLogger(cfg)

	dbPath := getenv("LAYOUT_DB_PATH", "data/db/layouts.db")
	db, err := layoutstore.OpenSQLite(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	store := layoutstore.New(db)
	if err := store.Init(context.Background(), "migrations/001_init_layouts.sql"); err != nil {
		logger.Fatal().Err(err).Msg("init db")
	}

	messengerURL := getenv("MESSENGER_URL", "http://localhost:3002")
	dispatcher := dispatch.NewHTTP(messengerURL, logger)

	sessions := session.NewManager()
	designerHandler := handlers.NewDesignerHandler(sessions, store, dispatcher, logger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Designer Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.CORS())
	app.Use(middleware.Logger())

	// ============================================================
	// Health & Metrics
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		if err := db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ============================================================
	// Designer Routes
	// ============================================================

	designerHandler.Register(app)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info().Str("addr", addr).Str("env", cfg.Environment).Str("messenger", messengerURL).Msg("starting designer service")

	if err := app.Listen(addr); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("service", "designer").Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "designer").Logger()
}

func getenv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
