package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"layout-designer/internal/common/metrics"
	"layout-designer/internal/designer/codec"
	"layout-designer/internal/messenger/repository"
)

// ============================================================
// Messenger Handler
// ============================================================

type MessengerHandler struct {
	repo *repository.Repository
	log  zerolog.Logger
}

func NewMessengerHandler(repo *repository.Repository, log zerolog.Logger) *MessengerHandler {
	return &MessengerHandler{repo: repo, log: log}
}

// Register вешает маршруты мессенджера на приложение.
func (h *MessengerHandler) Register(app *fiber.App) {
	app.Post("/threads", h.CreateThread)
	app.Get("/threads/:id", h.GetThread)
	app.Get("/threads/:id/messages", h.ListMessages)
	app.Post("/threads/:id/messages", h.PostMessage)
}

type createThreadRequest struct {
	ClientID   string `json:"clientId"`
	DesignerID string `json:"designerId"`
	Subject    string `json:"subject,omitempty"`
}

// CreateThread заводит тред дизайнер-клиент.
func (h *MessengerHandler) CreateThread(c fiber.Ctx) error {
	var req createThreadRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.ClientID == "" || req.DesignerID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "clientId and designerId required"})
	}

	thread, err := h.repo.CreateThread(context.Background(), req.ClientID, req.DesignerID, req.Subject)
	if err != nil {
		h.log.Error().Err(err).Msg("create thread failed")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create thread"})
	}

	h.log.Info().Str("thread_id", thread.ID).Msg("thread created")
	return c.Status(http.StatusCreated).JSON(thread)
}

// GetThread возвращает тред.
func (h *MessengerHandler) GetThread(c fiber.Ctx) error {
	thread, err := h.repo.GetThread(context.Background(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrThreadNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "thread not found"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(thread)
}

// ListMessages возвращает сообщения треда в порядке отправки.
func (h *MessengerHandler) ListMessages(c fiber.Ctx) error {
	messages, err := h.repo.ListMessages(context.Background(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrThreadNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "thread not found"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(fiber.Map{"messages": messages})
}

type postMessageRequest struct {
	SenderID   string          `json:"senderId"`
	Body       string          `json:"body"`
	IsDesigner bool            `json:"isDesigner"`
	Layout     json.RawMessage `json:"layout,omitempty"`
}

// PostMessage добавляет сообщение в тред; сообщение без layout — обычный
// текст. Вложенная раскладка принимается только валидной.
func (h *MessengerHandler) PostMessage(c fiber.Ctx) error {
	var req postMessageRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.SenderID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "senderId required"})
	}
	if req.Body == "" && len(req.Layout) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "body or layout required"})
	}

	if len(req.Layout) > 0 {
		if _, err := codec.Unmarshal(req.Layout); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	message, err := h.repo.AppendMessage(context.Background(), c.Params("id"), req.SenderID, req.Body, req.IsDesigner, req.Layout)
	if err != nil {
		if errors.Is(err, repository.ErrThreadNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "thread not found"})
		}
		h.log.Error().Err(err).Str("thread_id", c.Params("id")).Msg("append message failed")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store message"})
	}

	withLayout := "no"
	if len(message.Layout) > 0 {
		withLayout = "yes"
	}
	metrics.MessagesSent.WithLabelValues(withLayout).Inc()

	return c.Status(http.StatusCreated).JSON(message)
}
