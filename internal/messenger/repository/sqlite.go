package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"layout-designer/internal/messenger/models"
)

// ============================================================
// Messenger Repository (SQLite)
// ============================================================

var ErrThreadNotFound = errors.New("thread not found")

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init запускает миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// CreateThread заводит тред между клиентом и дизайнером.
func (r *Repository) CreateThread(ctx context.Context, clientID, designerID, subject string) (*models.Thread, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO threads (id, client_id, designer_id, subject, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, id, clientID, designerID, subject, now)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}

	return &models.Thread{
		ID:         id,
		ClientID:   clientID,
		DesignerID: designerID,
		Subject:    subject,
		CreatedAt:  now,
	}, nil
}

// GetThread возвращает тред по id.
func (r *Repository) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, client_id, designer_id, subject, created_at
        FROM threads
        WHERE id = ?
    `, id)

	var t models.Thread
	if err := row.Scan(&t.ID, &t.ClientID, &t.DesignerID, &t.Subject, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	return &t, nil
}

// AppendMessage добавляет сообщение в тред. Layout хранится как текст
// рядом с телом, id — ULID, так что порядок в треде восстанавливается
// сортировкой по id.
func (r *Repository) AppendMessage(ctx context.Context, threadID, senderID, body string, isDesigner bool, layout json.RawMessage) (*models.Message, error) {
	if _, err := r.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	id := ulid.Make().String()
	now := time.Now().UTC().Format(time.RFC3339)

	var layoutText sql.NullString
	if len(layout) > 0 {
		layoutText = sql.NullString{String: string(layout), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO messages (id, thread_id, sender_id, body, is_designer, layout, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, id, threadID, senderID, body, isDesigner, layoutText, now)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	return &models.Message{
		ID:         id,
		ThreadID:   threadID,
		SenderID:   senderID,
		Body:       body,
		IsDesigner: isDesigner,
		Layout:     layout,
		CreatedAt:  now,
	}, nil
}

// ListMessages возвращает сообщения треда в порядке отправки.
func (r *Repository) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	if _, err := r.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, thread_id, sender_id, body, is_designer, layout, created_at
        FROM messages
        WHERE thread_id = ?
        ORDER BY id
    `, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		var layout sql.NullString
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.IsDesigner, &layout, &m.CreatedAt); err != nil {
			return nil, err
		}
		if layout.Valid {
			m.Layout = json.RawMessage(layout.String)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
