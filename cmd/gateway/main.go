package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"layout-designer/internal/common/config"
	"layout-designer/internal/common/middleware"
	"layout-designer/internal/gateway/handlers"
	"layout-designer/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Layout Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.CORS())
	app.Use(middleware.Logger())

	designerURL := getEnv("DESIGNER_URL", "http://localhost:3001")
	messengerURL := getEnv("MESSENGER_URL", "http://localhost:3002")

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(map[string]string{
		"designer":  designerURL,
		"messenger": messengerURL,
	}))
	app.Get("/health/startup", handlers.StartupProbe)

	// ============================================================
	// Docs
	// ============================================================

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Layout Gateway v1",
			"status":  "ok",
		})
	})

	// ============================================================
	// Service Routes (Proxy)
	// ============================================================

	// Designer Service
	api.Post("/designer/sessions", proxy.ProxyTo(designerURL+"/sessions"))
	api.Get("/designer/sessions/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s", designerURL, c.Params("id")))
	})
	api.Delete("/designer/sessions/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s", designerURL, c.Params("id")))
	})
	api.Post("/designer/sessions/:id/items", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/items", designerURL, c.Params("id")))
	})
	api.Post("/designer/sessions/:id/items/:itemID/transform", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/items/%s/transform", designerURL, c.Params("id"), c.Params("itemID")))
	})
	api.Post("/designer/sessions/:id/selection", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/selection", designerURL, c.Params("id")))
	})
	api.Delete("/designer/sessions/:id/selection", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/selection", designerURL, c.Params("id")))
	})
	api.Post("/designer/sessions/:id/pointer", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/pointer", designerURL, c.Params("id")))
	})
	api.Post("/designer/sessions/:id/reset", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/reset", designerURL, c.Params("id")))
	})
	api.Get("/designer/sessions/:id/svg", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/svg", designerURL, c.Params("id")))
	})
	api.Post("/designer/sessions/:id/save", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/save", designerURL, c.Params("id")))
	})
	api.Post("/designer/sessions/:id/send", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/sessions/%s/send", designerURL, c.Params("id")))
	})

	// Messenger Service
	api.Post("/threads", proxy.ProxyTo(messengerURL+"/threads"))
	api.Get("/threads/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/threads/%s", messengerURL, c.Params("id")))
	})
	api.Get("/threads/:id/messages", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/threads/%s/messages", messengerURL, c.Params("id")))
	})
	api.Post("/threads/:id/messages", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/threads/%s/messages", messengerURL, c.Params("id")))
	})

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Layout Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying designer to %s, messenger to %s", designerURL, messengerURL)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
