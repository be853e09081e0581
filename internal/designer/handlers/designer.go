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
	"layout-designer/internal/designer/dispatch"
	"layout-designer/internal/designer/editor"
	"layout-designer/internal/designer/layoutstore"
	"layout-designer/internal/designer/render"
	"layout-designer/internal/designer/scene"
	"layout-designer/internal/designer/session"
)

// ============================================================
// Designer Handler
// ============================================================

// LayoutStore — персистентное хранилище документов раскладки.
type LayoutStore interface {
	Save(ctx context.Context, kind layoutstore.OwnerKind, ownerID string, document []byte) error
	Load(ctx context.Context, kind layoutstore.OwnerKind, ownerID string) ([]byte, error)
}

type DesignerHandler struct {
	sessions *session.Manager
	store    LayoutStore
	dispatch dispatch.Dispatcher
	log      zerolog.Logger
}

func NewDesignerHandler(sessions *session.Manager, store LayoutStore, dispatcher dispatch.Dispatcher, log zerolog.Logger) *DesignerHandler {
	return &DesignerHandler{
		sessions: sessions,
		store:    store,
		dispatch: dispatcher,
		log:      log,
	}
}

// Register вешает маршруты редактора на приложение.
func (h *DesignerHandler) Register(app *fiber.App) {
	app.Post("/sessions", h.OpenSession)
	app.Get("/sessions/:id", h.GetLayout)
	app.Delete("/sessions/:id", h.CloseSession)

	app.Post("/sessions/:id/items", h.AddItem)
	app.Post("/sessions/:id/items/:itemID/transform", h.TransformItem)
	app.Post("/sessions/:id/selection", h.SetSelection)
	app.Delete("/sessions/:id/selection", h.DeleteSelected)
	app.Post("/sessions/:id/pointer", h.Pointer)
	app.Post("/sessions/:id/reset", h.Reset)

	app.Get("/sessions/:id/svg", h.GetSVG)
	app.Post("/sessions/:id/save", h.Save)
	app.Post("/sessions/:id/send", h.Send)
}

// ============================================================
// Session lifecycle
// ============================================================

type openSessionRequest struct {
	OwnerKind string `json:"ownerKind"`
	OwnerID   string `json:"ownerId"`
	Fresh     bool   `json:"fresh,omitempty"` // начать с пустой сцены, игнорируя сохранённый документ
}

// OpenSession открывает сессию редактирования для владельца. Сохранённая
// раскладка, если есть, загружается в сцену.
func (h *DesignerHandler) OpenSession(c fiber.Ctx) error {
	var req openSessionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	kind := layoutstore.OwnerKind(req.OwnerKind)
	if !layoutstore.ValidKind(kind) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "ownerKind must be package or booking"})
	}
	if req.OwnerID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "ownerId required"})
	}

	model := scene.NewModel()
	if !req.Fresh {
		raw, err := h.store.Load(context.Background(), kind, req.OwnerID)
		switch {
		case err == nil:
			doc, err := codec.Unmarshal(raw)
			if err == nil {
				model, err = codec.Decode(doc)
			}
			if err != nil {
				// битый или слишком новый документ не загружаем частично:
				// вызывающий может открыть сессию с fresh=true
				h.log.Warn().Err(err).Str("owner_id", req.OwnerID).Msg("stored layout rejected")
				status := http.StatusUnprocessableEntity
				if errors.Is(err, codec.ErrUnsupportedVersion) {
					status = http.StatusConflict
				}
				return c.Status(status).JSON(fiber.Map{"error": err.Error()})
			}
		case errors.Is(err, layoutstore.ErrNotFound):
			// владелец без раскладки — пустая сцена
		default:
			h.log.Error().Err(err).Msg("layout store unavailable")
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "layout store unavailable"})
		}
	}

	model.OnChange(metrics.SceneEdits.Inc)

	sess := h.sessions.Open(req.OwnerKind, req.OwnerID, model)
	metrics.SessionsOpened.Inc()
	h.log.Info().Str("session_id", sess.ID).Str("owner_kind", req.OwnerKind).Str("owner_id", req.OwnerID).Msg("session opened")

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"sessionId": sess.ID,
		"layout":    codec.Encode(model),
	})
}

// GetLayout отдаёт свежий снапшот сцены.
func (h *DesignerHandler) GetLayout(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	doc, err := h.snapshot(sess)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.JSON(doc)
}

// CloseSession закрывает сессию без сохранения.
func (h *DesignerHandler) CloseSession(c fiber.Ctx) error {
	if !h.sessions.Close(c.Params("id")) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.JSON(fiber.Map{"status": "closed"})
}

// ============================================================
// Edit operations
// ============================================================

type addItemRequest struct {
	Category string  `json:"category"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// AddItem добавляет item по шаблону категории и делает его единственным
// выделением.
func (h *DesignerHandler) AddItem(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var req addItemRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	var itemID string
	var doc *codec.Document
	err := sess.Do(func(ed *editor.Editor) error {
		id, err := ed.Add(scene.Category(req.Category), scene.Point{X: req.X, Y: req.Y})
		if err != nil {
			return err
		}
		itemID = id
		doc = codec.Encode(ed.Model())
		return nil
	})
	if err != nil {
		return h.editError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"itemId": itemID,
		"layout": doc,
	})
}

type transformRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DW float64 `json:"dw"`
	DH float64 `json:"dh"`
}

// TransformItem применяет перенос/ресайз к item.
func (h *DesignerHandler) TransformItem(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var req transformRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	itemID := c.Params("itemID")
	err := sess.Do(func(ed *editor.Editor) error {
		return ed.Model().TransformItem(itemID, scene.Transform{DX: req.DX, DY: req.DY, DW: req.DW, DH: req.DH})
	})
	if err != nil {
		return h.editError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

type selectionRequest struct {
	IDs []string `json:"ids"`
}

// SetSelection заменяет выделение; неизвестные id отбрасываются.
func (h *DesignerHandler) SetSelection(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var req selectionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	var selected []string
	err := sess.Do(func(ed *editor.Editor) error {
		ed.Model().SetSelection(req.IDs)
		selected = ed.Model().Selection()
		return nil
	})
	if err != nil {
		return h.editError(c, err)
	}
	return c.JSON(fiber.Map{"selected": selected})
}

// DeleteSelected удаляет выделенные items, пустое выделение — no-op.
func (h *DesignerHandler) DeleteSelected(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var doc *codec.Document
	err := sess.Do(func(ed *editor.Editor) error {
		ed.DeleteSelected()
		doc = codec.Encode(ed.Model())
		return nil
	})
	if err != nil {
		return h.editError(c, err)
	}
	return c.JSON(fiber.Map{"layout": doc})
}

type pointerRequest struct {
	Action string  `json:"action"` // down, move, up
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Pointer стримит события указателя в редактор (drag-перемещение).
func (h *DesignerHandler) Pointer(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var req pointerRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	var selected []string
	err := sess.Do(func(ed *editor.Editor) error {
		switch req.Action {
		case "down":
			ed.PointerDown(req.X, req.Y)
		case "move":
			ed.PointerMove(req.X, req.Y)
		case "up":
			ed.PointerUp()
		default:
			return errBadPointerAction
		}
		selected = ed.Model().Selection()
		return nil
	})
	if errors.Is(err, errBadPointerAction) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "action must be down, move or up"})
	}
	if err != nil {
		return h.editError(c, err)
	}
	return c.JSON(fiber.Map{"selected": selected})
}

// Reset безвозвратно очищает сцену.
func (h *DesignerHandler) Reset(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var doc *codec.Document
	err := sess.Do(func(ed *editor.Editor) error {
		ed.Reset()
		doc = codec.Encode(ed.Model())
		return nil
	})
	if err != nil {
		return h.editError(c, err)
	}
	return c.JSON(fiber.Map{"layout": doc})
}

// ============================================================
// Persistence & dispatch
// ============================================================

// GetSVG отдаёт SVG-превью текущей сцены.
func (h *DesignerHandler) GetSVG(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	doc, err := h.snapshot(sess)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	svg, err := render.SVG(doc)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// Save снимает снапшот и целиком заменяет документ владельца в хранилище.
// При ошибке хранилища сессия и сцена остаются нетронутыми для повтора.
func (h *DesignerHandler) Save(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	doc, err := h.snapshot(sess)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	raw, err := codec.Marshal(doc)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "encode failed"})
	}

	// внешний вызов вне лока сессии: редактирование не блокируется
	kind := layoutstore.OwnerKind(sess.OwnerKind)
	if err := h.store.Save(context.Background(), kind, sess.OwnerID, raw); err != nil {
		h.log.Error().Err(err).Str("session_id", sess.ID).Msg("layout save failed")
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "layout store unavailable"})
	}

	metrics.LayoutsSaved.WithLabelValues(sess.OwnerKind).Inc()
	h.log.Info().Str("session_id", sess.ID).Str("owner_id", sess.OwnerID).Msg("layout saved")
	return c.JSON(fiber.Map{"status": "saved"})
}

type sendRequest struct {
	ThreadID string `json:"threadId"`
	SenderID string `json:"senderId"`
	Body     string `json:"body"`
}

// Send вкладывает снапшот раскладки в сообщение треда. Успех закрывает
// сессию; при ошибке доставки сцена сохраняется для повтора.
func (h *DesignerHandler) Send(c fiber.Ctx) error {
	sess, ok := h.sessions.Get(c.Params("id"))
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var req sendRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.ThreadID == "" || req.SenderID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "threadId and senderId required"})
	}

	doc, err := h.snapshot(sess)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	if err := h.dispatch.Send(context.Background(), req.ThreadID, req.SenderID, req.Body, true, doc); err != nil {
		h.log.Error().Err(err).Str("session_id", sess.ID).Str("thread_id", req.ThreadID).Msg("layout send failed")
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "message dispatch failed"})
	}

	metrics.MessagesSent.WithLabelValues("yes").Inc()
	h.sessions.Close(sess.ID)
	h.log.Info().Str("session_id", sess.ID).Str("thread_id", req.ThreadID).Msg("layout sent, session closed")
	return c.JSON(fiber.Map{"status": "sent"})
}

// ============================================================
// Helpers
// ============================================================

var errBadPointerAction = errors.New("bad pointer action")

// snapshot кодирует сцену под локом сессии; внешние вызовы идут уже без
// лока с неизменяемым документом.
func (h *DesignerHandler) snapshot(sess *session.Session) (*codec.Document, error) {
	var doc *codec.Document
	err := sess.Do(func(ed *editor.Editor) error {
		doc = codec.Encode(ed.Model())
		return nil
	})
	return doc, err
}

// editError мапит ошибки сцены/сессии на HTTP-статусы.
func (h *DesignerHandler) editError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrClosed):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	case errors.Is(err, scene.ErrInvalidCategory):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "unknown furniture category"})
	case errors.Is(err, scene.ErrItemNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
	default:
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
