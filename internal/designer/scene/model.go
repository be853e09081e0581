package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ============================================================
// Scene Model
// ============================================================

var ErrItemNotFound = errors.New("scene item not found")

const (
	DefaultBackground   = "#f8f9fa"
	DefaultCanvasWidth  = 1200
	DefaultCanvasHeight = 800
)

// Transform — дельта перемещения/изменения размера для одного item.
type Transform struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DW float64 `json:"dw"`
	DH float64 `json:"dh"`
}

// Model хранит каноническое состояние сцены: упорядоченные items (порядок
// вставки = z-order, от заднего к переднему), фон, размеры холста и
// выделение. Не потокобезопасна, доступ сериализует владелец сессии.
type Model struct {
	items      []*Item
	selected   map[string]struct{}
	background string
	width      float64
	height     float64
	onChange   func()
}

func NewModel() *Model {
	return &Model{
		selected:   make(map[string]struct{}),
		background: DefaultBackground,
		width:      DefaultCanvasWidth,
		height:     DefaultCanvasHeight,
	}
}

// Restore собирает Model из уже восстановленных items (декодер документа).
// Выделение всегда пустое, id обязаны быть уникальными.
func Restore(background string, width, height float64, items []*Item) (*Model, error) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			return nil, fmt.Errorf("duplicate item id %q", it.ID)
		}
		seen[it.ID] = struct{}{}
	}

	m := NewModel()
	m.background = background
	m.width = width
	m.height = height
	m.items = items
	return m, nil
}

// OnChange регистрирует callback, который дергается после каждой успешной
// мутации. Кодек/метрики снимают по нему свежий снапшот.
func (m *Model) OnChange(fn func()) {
	m.onChange = fn
}

func (m *Model) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}

// AddItem создает item по шаблону категории и кладет его поверх остальных.
func (m *Model) AddItem(category Category, at Point) (string, error) {
	it, err := newItem(uuid.NewString(), category, at)
	if err != nil {
		return "", err
	}
	m.items = append(m.items, it)
	m.notify()
	return it.ID, nil
}

// RemoveItems удаляет items и вычищает их из выделения. Несуществующие id
// игнорируются (идемпотентно).
func (m *Model) RemoveItems(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := m.items[:0]
	removed := false
	for _, it := range m.items {
		if _, ok := drop[it.ID]; ok {
			delete(m.selected, it.ID)
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	m.items = kept

	if removed {
		m.notify()
	}
}

// SetSelection заменяет выделение пересечением ids с существующими items.
func (m *Model) SetSelection(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := m.find(id); ok {
			next[id] = struct{}{}
		}
	}
	m.selected = next
	m.notify()
}

// TransformItem применяет перенос/ресайз к item целиком.
func (m *Model) TransformItem(id string, delta Transform) error {
	it, ok := m.find(id)
	if !ok {
		return ErrItemNotFound
	}
	if delta.DX != 0 || delta.DY != 0 {
		it.translate(delta.DX, delta.DY)
	}
	if delta.DW != 0 || delta.DH != 0 {
		it.resize(delta.DW, delta.DH)
	}
	m.notify()
	return nil
}

// Reset очищает сцену и возвращает фон по умолчанию.
func (m *Model) Reset() {
	m.items = nil
	m.selected = make(map[string]struct{})
	m.background = DefaultBackground
	m.notify()
}

// ============================================================
// Queries
// ============================================================

// Items возвращает items в z-порядке (копию среза, сами items общие).
func (m *Model) Items() []*Item {
	out := make([]*Item, len(m.items))
	copy(out, m.items)
	return out
}

// Item ищет item по id.
func (m *Model) Item(id string) (*Item, bool) {
	return m.find(id)
}

// Selection возвращает отсортированные id выделенных items.
func (m *Model) Selection() []string {
	out := make([]string, 0, len(m.selected))
	for id := range m.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Model) IsSelected(id string) bool {
	_, ok := m.selected[id]
	return ok
}

func (m *Model) Background() string    { return m.background }
func (m *Model) CanvasWidth() float64  { return m.width }
func (m *Model) CanvasHeight() float64 { return m.height }

func (m *Model) find(id string) (*Item, bool) {
	for _, it := range m.items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}
