package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"layout-designer/internal/designer/editor"
	"layout-designer/internal/designer/scene"
)

// ============================================================
// Editing Sessions
// ============================================================

var ErrClosed = errors.New("editing session closed")

// Session — одна активная сессия редактирования. Мьютекс сериализует все
// операции над сценой; после Close поздние результаты save/send уже не
// могут тронуть состояние.
type Session struct {
	ID        string
	OwnerKind string
	OwnerID   string

	mu     sync.Mutex
	editor *editor.Editor
	closed bool
}

// Do выполняет fn под локом сессии. Закрытая сессия отклоняет любые
// операции с ErrClosed.
func (s *Session) Do(fn func(ed *editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return fn(s.editor)
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// ============================================================
// Manager
// ============================================================

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Open заводит сессию поверх переданной сцены и выдает uuid-токен.
func (m *Manager) Open(ownerKind, ownerID string, model *scene.Model) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
		editor:    editor.New(model),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close закрывает и убирает сессию. Идемпотентно.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.close()
	}
	return ok
}
