package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"layout-designer/internal/designer/codec"
)

// ============================================================
// Message Dispatcher
// ============================================================

var ErrDispatchFailed = errors.New("message dispatch failed")

// Dispatcher доставляет сообщение (опционально с вложенной раскладкой) в
// тред мессенджера. Ошибка не трогает состояние сессии — вызывающий может
// повторить отправку того же снапшота.
type Dispatcher interface {
	Send(ctx context.Context, threadID, senderID, body string, isDesigner bool, layout *codec.Document) error
}

// outgoingMessage — формат POST /threads/:id/messages мессенджера.
type outgoingMessage struct {
	SenderID   string          `json:"senderId"`
	Body       string          `json:"body"`
	IsDesigner bool            `json:"isDesigner"`
	Layout     *codec.Document `json:"layout,omitempty"`
}

// HTTPDispatcher шлет сообщения в messenger service по HTTP.
type HTTPDispatcher struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewHTTP(baseURL string, log zerolog.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Send доставляет сообщение в тред. Любой не-2xx ответ и сетевые ошибки
// заворачиваются в ErrDispatchFailed.
func (d *HTTPDispatcher) Send(ctx context.Context, threadID, senderID, body string, isDesigner bool, layout *codec.Document) error {
	payload, err := json.Marshal(outgoingMessage{
		SenderID:   senderID,
		Body:       body,
		IsDesigner: isDesigner,
		Layout:     layout,
	})
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", ErrDispatchFailed, err)
	}

	url := fmt.Sprintf("%s/threads/%s/messages", d.baseURL, threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Error().Err(err).Str("thread_id", threadID).Msg("messenger unreachable")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		d.log.Error().Int("status", resp.StatusCode).Str("thread_id", threadID).Msg("messenger rejected message")
		return fmt.Errorf("%w: messenger returned %d: %s", ErrDispatchFailed, resp.StatusCode, detail)
	}
	return nil
}
