package layoutstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// Layout Store (SQLite)
// ============================================================

type OwnerKind string

const (
	OwnerPackage OwnerKind = "package"
	OwnerBooking OwnerKind = "booking"
)

var (
	ErrNotFound         = errors.New("layout not found")
	ErrInvalidOwnerKind = errors.New("invalid owner kind")
)

// Repository хранит документ раскладки как непрозрачный текст при
// владельце (package/booking). Сохранение — полная замена документа.
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

// Save заменяет документ владельца целиком (upsert). Повторная отправка
// того же документа безопасна.
func (r *Repository) Save(ctx context.Context, kind OwnerKind, ownerID string, document []byte) error {
	if !ValidKind(kind) {
		return ErrInvalidOwnerKind
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO layouts (owner_kind, owner_id, document, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT (owner_kind, owner_id)
        DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP
    `, string(kind), ownerID, string(document))
	if err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	return nil
}

// Load возвращает текущий документ владельца.
func (r *Repository) Load(ctx context.Context, kind OwnerKind, ownerID string) ([]byte, error) {
	if !ValidKind(kind) {
		return nil, ErrInvalidOwnerKind
	}

	row := r.db.QueryRowContext(ctx, `
        SELECT document FROM layouts
        WHERE owner_kind = ? AND owner_id = ?
    `, string(kind), ownerID)

	var document string
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(document), nil
}

// Delete убирает документ владельца. Отсутствующий документ — no-op.
func (r *Repository) Delete(ctx context.Context, kind OwnerKind, ownerID string) error {
	if !ValidKind(kind) {
		return ErrInvalidOwnerKind
	}
	_, err := r.db.ExecContext(ctx, `
        DELETE FROM layouts WHERE owner_kind = ? AND owner_id = ?
    `, string(kind), ownerID)
	return err
}

// ValidKind проверяет, что владелец — package или booking.
func ValidKind(kind OwnerKind) bool {
	return kind == OwnerPackage || kind == OwnerBooking
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
