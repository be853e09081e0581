package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-designer/internal/designer/codec"
	"layout-designer/internal/designer/layoutstore"
	"layout-designer/internal/designer/scene"
	"layout-designer/internal/designer/session"
)

// ============================================================
// Fakes
// ============================================================

type fakeStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	failSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]byte)}
}

func (s *fakeStore) key(kind layoutstore.OwnerKind, ownerID string) string {
	return string(kind) + "/" + ownerID
}

func (s *fakeStore) Save(_ context.Context, kind layoutstore.OwnerKind, ownerID string, document []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("store down")
	}
	s.docs[s.key(kind, ownerID)] = document
	return nil
}

func (s *fakeStore) Load(_ context.Context, kind layoutstore.OwnerKind, ownerID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[s.key(kind, ownerID)]
	if !ok {
		return nil, layoutstore.ErrNotFound
	}
	return doc, nil
}

type sentMessage struct {
	threadID   string
	senderID   string
	body       string
	isDesigner bool
	layout     *codec.Document
}

type fakeDispatcher struct {
	mu   sync.Mutex
	fail bool
	sent []sentMessage
}

func (d *fakeDispatcher) Send(_ context.Context, threadID, senderID, body string, isDesigner bool, layout *codec.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("messenger down")
	}
	d.sent = append(d.sent, sentMessage{threadID, senderID, body, isDesigner, layout})
	return nil
}

// ============================================================
// Harness
// ============================================================

type harness struct {
	app      *fiber.App
	store    *fakeStore
	dispatch *fakeDispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newFakeStore()
	dispatcher := &fakeDispatcher{}
	h := NewDesignerHandler(session.NewManager(), store, dispatcher, zerolog.Nop())

	app := fiber.New()
	h.Register(app)

	return &harness{app: app, store: store, dispatch: dispatcher}
}

func (h *harness) request(t *testing.T, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

type sessionResponse struct {
	SessionID string          `json:"sessionId"`
	Layout    *codec.Document `json:"layout"`
}

func (h *harness) openSession(t *testing.T, ownerKind, ownerID string) sessionResponse {
	t.Helper()

	resp, data := h.request(t, http.MethodPost, "/sessions", map[string]any{
		"ownerKind": ownerKind,
		"ownerId":   ownerID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var out sessionResponse
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.SessionID)
	return out
}

func (h *harness) addItem(t *testing.T, sessionID, category string) string {
	t.Helper()

	resp, data := h.request(t, http.MethodPost, "/sessions/"+sessionID+"/items", map[string]any{
		"category": category,
		"x":        100.0,
		"y":        100.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var out struct {
		ItemID string `json:"itemId"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	return out.ItemID
}

func (h *harness) getLayout(t *testing.T, sessionID string) (*http.Response, *codec.Document) {
	t.Helper()

	resp, data := h.request(t, http.MethodGet, "/sessions/"+sessionID, nil)
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	var doc codec.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return resp, &doc
}

// ============================================================
// Tests
// ============================================================

func TestOpenSessionEmpty(t *testing.T) {
	h := newHarness(t)

	out := h.openSession(t, "booking", "booking-1")
	require.NotNil(t, out.Layout)
	assert.Empty(t, out.Layout.Items)
	assert.Equal(t, codec.FormatVersion, out.Layout.FormatVersion)
}

func TestOpenSessionValidation(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.request(t, http.MethodPost, "/sessions", map[string]any{"ownerKind": "client", "ownerId": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.request(t, http.MethodPost, "/sessions", map[string]any{"ownerKind": "booking"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOpenSessionLoadsStoredLayout(t *testing.T) {
	h := newHarness(t)

	// сохраняем раскладку с одним столом через первую сессию
	first := h.openSession(t, "package", "pkg-1")
	h.addItem(t, first.SessionID, "Table")
	resp, _ := h.request(t, http.MethodPost, "/sessions/"+first.SessionID+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	second := h.openSession(t, "package", "pkg-1")
	require.Len(t, second.Layout.Items, 1)
	assert.Equal(t, scene.CategoryTable, second.Layout.Items[0].Category)
}

func TestOpenSessionRejectsCorruptedStoredLayout(t *testing.T) {
	h := newHarness(t)
	h.store.docs["booking/bad"] = []byte(`{"formatVersion":1,"canvasWidth":0}`)

	resp, _ := h.request(t, http.MethodPost, "/sessions", map[string]any{"ownerKind": "booking", "ownerId": "bad"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOpenSessionRejectsNewerFormatVersion(t *testing.T) {
	h := newHarness(t)
	h.store.docs["booking/future"] = []byte(`{"formatVersion":99,"canvasWidth":1200,"canvasHeight":800,"backgroundColor":"#fff","items":[]}`)

	resp, _ := h.request(t, http.MethodPost, "/sessions", map[string]any{"ownerKind": "booking", "ownerId": "future"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// fresh=true обходит сохранённый документ
	resp, data := h.request(t, http.MethodPost, "/sessions", map[string]any{"ownerKind": "booking", "ownerId": "future", "fresh": true})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
}

func TestAddItemUnknownCategory(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")

	resp, _ := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/items", map[string]any{"category": "Sofa"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEditFlowDeleteSelected(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")

	tableID := h.addItem(t, out.SessionID, "Table")
	chairID := h.addItem(t, out.SessionID, "Chair")

	resp, _ := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/selection", map[string]any{"ids": []string{tableID}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := h.request(t, http.MethodDelete, "/sessions/"+out.SessionID+"/selection", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var deleted struct {
		Layout codec.Document `json:"layout"`
	}
	require.NoError(t, json.Unmarshal(data, &deleted))
	require.Len(t, deleted.Layout.Items, 1)
	assert.Equal(t, chairID, deleted.Layout.Items[0].ID)
	assert.Equal(t, 0, deleted.Layout.Items[0].ZOrder)
}

func TestTransformUnknownItem(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")

	resp, _ := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/items/ghost/transform", map[string]any{"dx": 5.0})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPointerDragThroughAPI(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")
	tableID := h.addItem(t, out.SessionID, "Table")

	resp, data := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/pointer", map[string]any{"action": "down", "x": 150.0, "y": 130.0})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sel struct {
		Selected []string `json:"selected"`
	}
	require.NoError(t, json.Unmarshal(data, &sel))
	assert.Equal(t, []string{tableID}, sel.Selected)

	resp, _ = h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/pointer", map[string]any{"action": "move", "x": 180.0, "y": 160.0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/pointer", map[string]any{"action": "up"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, doc := h.getLayout(t, out.SessionID)
	require.NotNil(t, doc)
	assert.Equal(t, 130.0, doc.Items[0].Primitives[0].X)
	assert.Equal(t, 130.0, doc.Items[0].Primitives[0].Y)
}

func TestResetThroughAPI(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")
	h.addItem(t, out.SessionID, "Tent")

	resp, data := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reset struct {
		Layout codec.Document `json:"layout"`
	}
	require.NoError(t, json.Unmarshal(data, &reset))
	assert.Empty(t, reset.Layout.Items)
}

func TestSVGPreview(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")
	h.addItem(t, out.SessionID, "Chair")

	resp, data := h.request(t, http.MethodGet, "/sessions/"+out.SessionID+"/svg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "<svg")
	assert.Contains(t, string(data), "<circle")
}

func TestSaveFailureKeepsSessionIntact(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")

	h.addItem(t, out.SessionID, "Table")
	h.addItem(t, out.SessionID, "Chair")
	h.addItem(t, out.SessionID, "Tent")

	h.store.failSave = true
	resp, _ := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/save", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// все три правки на месте, в хранилище ничего не закоммичено
	status, doc := h.getLayout(t, out.SessionID)
	require.Equal(t, http.StatusOK, status.StatusCode)
	assert.Len(t, doc.Items, 3)
	assert.Empty(t, h.store.docs)

	// повтор того же снапшота после восстановления хранилища
	h.store.failSave = false
	resp, _ = h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/save", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, h.store.docs, 1)
}

func TestSendClosesSession(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")
	h.addItem(t, out.SessionID, "Platform")

	resp, _ := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/send", map[string]any{
		"threadId": "thread-1",
		"senderId": "designer-1",
		"body":     "Final layout attached",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, h.dispatch.sent, 1)
	msg := h.dispatch.sent[0]
	assert.Equal(t, "thread-1", msg.threadID)
	assert.True(t, msg.isDesigner)
	require.NotNil(t, msg.layout)
	assert.Len(t, msg.layout.Items, 1)

	// сессия закрыта после успешной отправки
	status, _ := h.getLayout(t, out.SessionID)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
}

func TestSendFailureKeepsSessionOpen(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")
	h.addItem(t, out.SessionID, "Table")

	h.dispatch.fail = true
	resp, _ := h.request(t, http.MethodPost, "/sessions/"+out.SessionID+"/send", map[string]any{
		"threadId": "thread-1",
		"senderId": "designer-1",
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	status, doc := h.getLayout(t, out.SessionID)
	require.Equal(t, http.StatusOK, status.StatusCode)
	assert.Len(t, doc.Items, 1)
	assert.Empty(t, h.dispatch.sent)
}

func TestCloseSession(t *testing.T) {
	h := newHarness(t)
	out := h.openSession(t, "booking", "booking-1")

	resp, _ := h.request(t, http.MethodDelete, "/sessions/"+out.SessionID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.request(t, http.MethodDelete, "/sessions/"+out.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	status, _ := h.getLayout(t, out.SessionID)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
}
