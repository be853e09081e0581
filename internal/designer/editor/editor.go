package editor

import (
	"layout-designer/internal/designer/scene"
)

// ============================================================
// Editor
// ============================================================

// Editor переводит намерения пользователя (кнопки тулбара, указатель) в
// операции над Model. Хранит только состояние текущего drag,
// персистентное состояние живет в Model.
type Editor struct {
	model *scene.Model
	drag  *dragState
}

type dragState struct {
	itemID string
	lastX  float64
	lastY  float64
}

func New(model *scene.Model) *Editor {
	return &Editor{model: model}
}

func (e *Editor) Model() *scene.Model {
	return e.model
}

// ============================================================
// Toolbar actions
// ============================================================

// AddTable добавляет стол и делает его единственным выделением.
func (e *Editor) AddTable(at scene.Point) (string, error) {
	return e.add(scene.CategoryTable, at)
}

// AddChair добавляет стул.
func (e *Editor) AddChair(at scene.Point) (string, error) {
	return e.add(scene.CategoryChair, at)
}

// AddTent добавляет тент.
func (e *Editor) AddTent(at scene.Point) (string, error) {
	return e.add(scene.CategoryTent, at)
}

// AddPlatform добавляет подиум.
func (e *Editor) AddPlatform(at scene.Point) (string, error) {
	return e.add(scene.CategoryPlatform, at)
}

// Add добавляет item произвольной категории.
func (e *Editor) Add(category scene.Category, at scene.Point) (string, error) {
	return e.add(category, at)
}

func (e *Editor) add(category scene.Category, at scene.Point) (string, error) {
	id, err := e.model.AddItem(category, at)
	if err != nil {
		return "", err
	}
	e.model.SetSelection([]string{id})
	return id, nil
}

// DeleteSelected удаляет выделенные items, при пустом выделении — no-op.
func (e *Editor) DeleteSelected() {
	selected := e.model.Selection()
	if len(selected) == 0 {
		return
	}
	e.model.RemoveItems(selected)
	e.cancelDragIfGone()
}

// Reset безусловно очищает сцену.
func (e *Editor) Reset() {
	e.model.Reset()
	e.drag = nil
}

// ============================================================
// Pointer interaction
// ============================================================

// PointerDown выделяет верхний item под указателем и начинает drag.
// Промах по пустому холсту сбрасывает выделение, это не ошибка.
func (e *Editor) PointerDown(x, y float64) {
	it := e.hitTest(x, y)
	if it == nil {
		e.model.SetSelection(nil)
		e.drag = nil
		return
	}

	e.model.SetSelection([]string{it.ID})
	e.drag = &dragState{itemID: it.ID, lastX: x, lastY: y}
}

// PointerMove стримит перенос активного drag в Model.
func (e *Editor) PointerMove(x, y float64) {
	if e.drag == nil {
		return
	}

	delta := scene.Transform{DX: x - e.drag.lastX, DY: y - e.drag.lastY}
	if err := e.model.TransformItem(e.drag.itemID, delta); err != nil {
		// item удалили во время drag — сессия drag обрывается
		e.drag = nil
		return
	}
	e.drag.lastX = x
	e.drag.lastY = y
}

// PointerUp завершает drag.
func (e *Editor) PointerUp() {
	e.drag = nil
}

// hitTest ищет верхний item, чья область содержит точку: от последнего
// добавленного к первому.
func (e *Editor) hitTest(x, y float64) *scene.Item {
	items := e.model.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if !items[i].Selectable {
			continue
		}
		if items[i].Contains(x, y) {
			return items[i]
		}
	}
	return nil
}

func (e *Editor) cancelDragIfGone() {
	if e.drag == nil {
		return
	}
	if _, ok := e.model.Item(e.drag.itemID); !ok {
		e.drag = nil
	}
}
