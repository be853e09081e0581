package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"layout-designer/internal/designer/scene"
)

// ============================================================
// Layout Document Codec
// ============================================================

// FormatVersion — старшая версия документа, которую понимает декодер.
const FormatVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported layout format version")
	ErrMalformedDocument  = errors.New("malformed layout document")
)

// Document — сериализованная форма сцены: чистые данные без runtime-ссылок,
// после Encode не мутируется, только заменяется целиком.
type Document struct {
	FormatVersion   int     `json:"formatVersion"`
	CanvasWidth     float64 `json:"canvasWidth"`
	CanvasHeight    float64 `json:"canvasHeight"`
	BackgroundColor string  `json:"backgroundColor"`
	Items           []Item  `json:"items"`
}

type Item struct {
	ID         string            `json:"id"`
	Category   scene.Category    `json:"category"`
	ZOrder     int               `json:"zOrder"`
	Primitives []scene.Primitive `json:"primitives"`
}

// ============================================================
// Encode
// ============================================================

// Encode снимает снапшот сцены. Детерминирован: одинаковое состояние дает
// одинаковый документ, zOrder = позиция в items.
func Encode(m *scene.Model) *Document {
	items := m.Items()
	doc := &Document{
		FormatVersion:   FormatVersion,
		CanvasWidth:     m.CanvasWidth(),
		CanvasHeight:    m.CanvasHeight(),
		BackgroundColor: m.Background(),
		Items:           make([]Item, 0, len(items)),
	}

	for z, it := range items {
		primitives := make([]scene.Primitive, len(it.Primitives))
		copy(primitives, it.Primitives)
		doc.Items = append(doc.Items, Item{
			ID:         it.ID,
			Category:   it.Category,
			ZOrder:     z,
			Primitives: primitives,
		})
	}
	return doc
}

// Marshal сериализует документ в JSON. Порядок полей фиксирован структурой,
// поэтому байты воспроизводимы.
func Marshal(doc *Document) ([]byte, error) {
	return json.Marshal(doc)
}

// ============================================================
// Decode
// ============================================================

// Unmarshal разбирает JSON и проверяет версию и форму документа. Возвращает
// ErrUnsupportedVersion для более новых документов и ErrMalformedDocument
// для битых.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	if doc.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("%w: got %d, supported up to %d", ErrUnsupportedVersion, doc.FormatVersion, FormatVersion)
	}
	if doc.FormatVersion < 1 {
		return nil, fmt.Errorf("%w: formatVersion missing", ErrMalformedDocument)
	}
	return &doc, nil
}

// Decode восстанавливает сцену из документа: items в порядке zOrder,
// выделение пустое. Всё или ничего — на ошибке сцена не создается.
func Decode(doc *Document) (*scene.Model, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformedDocument)
	}
	if doc.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("%w: got %d, supported up to %d", ErrUnsupportedVersion, doc.FormatVersion, FormatVersion)
	}
	if doc.FormatVersion < 1 {
		return nil, fmt.Errorf("%w: formatVersion missing", ErrMalformedDocument)
	}
	if doc.CanvasWidth <= 0 || doc.CanvasHeight <= 0 {
		return nil, fmt.Errorf("%w: canvas size must be positive", ErrMalformedDocument)
	}
	if doc.BackgroundColor == "" {
		return nil, fmt.Errorf("%w: backgroundColor required", ErrMalformedDocument)
	}

	// zOrder самоописывающий, восстанавливаем порядок по нему
	ordered := make([]Item, len(doc.Items))
	copy(ordered, doc.Items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ZOrder < ordered[j].ZOrder
	})

	items := make([]*scene.Item, 0, len(ordered))
	for _, di := range ordered {
		it, err := rehydrate(di)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	m, err := scene.Restore(doc.BackgroundColor, doc.CanvasWidth, doc.CanvasHeight, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return m, nil
}

// rehydrate восстанавливает один item; anchor и controls выводятся из
// геометрии и шаблона категории, они не хранятся в документе.
func rehydrate(di Item) (*scene.Item, error) {
	if di.ID == "" {
		return nil, fmt.Errorf("%w: item id required", ErrMalformedDocument)
	}
	if !scene.ValidCategory(di.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrMalformedDocument, di.Category)
	}
	if len(di.Primitives) == 0 {
		return nil, fmt.Errorf("%w: item %s has no primitives", ErrMalformedDocument, di.ID)
	}

	primitives := make([]scene.Primitive, len(di.Primitives))
	copy(primitives, di.Primitives)

	anchorSet := false
	var anchor scene.Point
	for _, p := range primitives {
		if !scene.ValidKind(p.Kind) {
			return nil, fmt.Errorf("%w: item %s has unknown primitive kind %q", ErrMalformedDocument, di.ID, p.Kind)
		}
		switch p.Kind {
		case scene.KindRectangle:
			if p.Width <= 0 || p.Height <= 0 {
				return nil, fmt.Errorf("%w: item %s rectangle needs positive size", ErrMalformedDocument, di.ID)
			}
		case scene.KindCircle:
			if p.Radius <= 0 {
				return nil, fmt.Errorf("%w: item %s circle needs positive radius", ErrMalformedDocument, di.ID)
			}
		}
		if !anchorSet && p.Kind != scene.KindLabel {
			anchor = scene.Point{X: p.X, Y: p.Y}
			anchorSet = true
		}
	}
	if !anchorSet {
		// только подписи — якорь по первой из них
		anchor = scene.Point{X: primitives[0].X, Y: primitives[0].Y}
	}

	return &scene.Item{
		ID:         di.ID,
		Category:   di.Category,
		Primitives: primitives,
		Anchor:     anchor,
		Selectable: true,
		Controls:   scene.ControlsFor(di.Category),
	}, nil
}
