package models

import "encoding/json"

// ============================================================
// Thread & Message Models
// ============================================================

// Thread группирует переписку дизайнера с клиентом по заказу.
type Thread struct {
	ID         string `json:"id"`
	ClientID   string `json:"clientId"`
	DesignerID string `json:"designerId"`
	Subject    string `json:"subject,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// Message — сообщение треда. Layout, если есть, несёт один документ
// раскладки как вложение; текст сообщение задаёт отправитель.
type Message struct {
	ID         string          `json:"id"` // ULID, сортируется по времени
	ThreadID   string          `json:"threadId"`
	SenderID   string          `json:"senderId"`
	Body       string          `json:"body"`
	IsDesigner bool            `json:"isDesigner"`
	Layout     json.RawMessage `json:"layout,omitempty"`
	CreatedAt  string          `json:"createdAt"`
}
