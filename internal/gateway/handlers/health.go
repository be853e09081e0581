package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe проверяет, что приложение работает.
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe проверяет доступность нижестоящих сервисов: дергает
// /health/live у каждого параллельно.
func ReadinessProbe(upstreams map[string]string) fiber.Handler {
	client := &http.Client{Timeout: 3 * time.Second}

	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		for name, baseURL := range upstreams {
			g.Go(func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health/live", nil)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				resp, err := client.Do(req)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return fmt.Errorf("%s: status %d", name, resp.StatusCode)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	}
}

// StartupProbe проверяет, что приложение успешно запустилось.
func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
	})
}
