package scene

import "errors"

// ============================================================
// Scene Item
// ============================================================

type Category string

const (
	CategoryTable    Category = "Table"
	CategoryChair    Category = "Chair"
	CategoryTent     Category = "Tent"
	CategoryPlatform Category = "Platform"
)

var ErrInvalidCategory = errors.New("invalid furniture category")

// Controls описывает, какие манипуляторы показывает редактор для item.
type Controls struct {
	Rotate       bool `json:"rotate"`
	ResizeLeft   bool `json:"resizeLeft"`
	ResizeRight  bool `json:"resizeRight"`
	ResizeTop    bool `json:"resizeTop"`
	ResizeBottom bool `json:"resizeBottom"`
}

// Item — одна размещённая единица мебели: фигура + подпись, двигается и
// удаляется только целиком.
type Item struct {
	ID         string      `json:"id"`
	Category   Category    `json:"category"`
	Primitives []Primitive `json:"primitives"`
	Anchor     Point       `json:"anchor"`
	Selectable bool        `json:"selectable"`
	Controls   Controls    `json:"controls"`
}

// ValidCategory проверяет, что категория известна.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryTable, CategoryChair, CategoryTent, CategoryPlatform:
		return true
	}
	return false
}

// ControlsFor возвращает набор манипуляторов по шаблону категории. Круглые
// стулья не вращаются и не тянутся за рёбра.
func ControlsFor(c Category) Controls {
	if c == CategoryChair {
		return Controls{}
	}
	return Controls{
		Rotate:       true,
		ResizeLeft:   true,
		ResizeRight:  true,
		ResizeTop:    true,
		ResizeBottom: true,
	}
}

// newItem собирает Item по шаблону категории в точке anchor.
func newItem(id string, category Category, at Point) (*Item, error) {
	var primitives []Primitive

	switch category {
	case CategoryTable:
		primitives = []Primitive{
			{Kind: KindRectangle, X: at.X, Y: at.Y, Width: 120, Height: 80, Fill: "#b08968", Stroke: "#7f5539"},
			{Kind: KindLabel, X: at.X + 60, Y: at.Y + 40, Text: "Table", Fill: "#ffffff"},
		}
	case CategoryChair:
		primitives = []Primitive{
			{Kind: KindCircle, X: at.X, Y: at.Y, Radius: 25, Fill: "#adb5bd", Stroke: "#6c757d"},
			{Kind: KindLabel, X: at.X, Y: at.Y, Text: "Chair", Fill: "#212529"},
		}
	case CategoryTent:
		primitives = []Primitive{
			{Kind: KindRectangle, X: at.X, Y: at.Y, Width: 240, Height: 240, Fill: "#90be6d", Stroke: "#43aa8b"},
			{Kind: KindLabel, X: at.X + 120, Y: at.Y + 120, Text: "Tent", Fill: "#ffffff"},
		}
	case CategoryPlatform:
		primitives = []Primitive{
			{Kind: KindRectangle, X: at.X, Y: at.Y, Width: 320, Height: 60, Fill: "#577590", Stroke: "#27445c"},
			{Kind: KindLabel, X: at.X + 160, Y: at.Y + 30, Text: "Platform", Fill: "#ffffff"},
		}
	default:
		return nil, ErrInvalidCategory
	}

	return &Item{
		ID:         id,
		Category:   category,
		Primitives: primitives,
		Anchor:     at,
		Selectable: true,
		Controls:   ControlsFor(category),
	}, nil
}

// translate сдвигает anchor и все примитивы как одно целое.
func (it *Item) translate(dx, dy float64) {
	it.Anchor.X += dx
	it.Anchor.Y += dy
	for i := range it.Primitives {
		it.Primitives[i].X += dx
		it.Primitives[i].Y += dy
	}
}

const minItemSize = 10

// resize меняет размеры фигурных примитивов, подписи возвращаются в центр
// фигуры.
func (it *Item) resize(dw, dh float64) {
	for i := range it.Primitives {
		p := &it.Primitives[i]
		switch p.Kind {
		case KindRectangle:
			p.Width = maxFloat(p.Width+dw, minItemSize)
			p.Height = maxFloat(p.Height+dh, minItemSize)
		case KindCircle:
			p.Radius = maxFloat(p.Radius+(dw+dh)/2, minItemSize/2)
		}
	}
	it.recenterLabels()
}

// recenterLabels ставит все Label в центр первой фигуры.
func (it *Item) recenterLabels() {
	var cx, cy float64
	found := false
	for _, p := range it.Primitives {
		switch p.Kind {
		case KindRectangle:
			cx, cy = p.X+p.Width/2, p.Y+p.Height/2
			found = true
		case KindCircle:
			cx, cy = p.X, p.Y
			found = true
		}
		if found {
			break
		}
	}
	if !found {
		return
	}
	for i := range it.Primitives {
		if it.Primitives[i].Kind == KindLabel {
			it.Primitives[i].X = cx
			it.Primitives[i].Y = cy
		}
	}
}

// Contains проверяет попадание точки в ограничивающую область item.
func (it *Item) Contains(x, y float64) bool {
	minX, minY, maxX, maxY, ok := it.bounds()
	if !ok {
		return false
	}
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}

// bounds — объединение фигурных примитивов, подписи не считаются.
func (it *Item) bounds() (minX, minY, maxX, maxY float64, ok bool) {
	for _, p := range it.Primitives {
		var px0, py0, px1, py1 float64
		switch p.Kind {
		case KindRectangle:
			px0, py0, px1, py1 = p.X, p.Y, p.X+p.Width, p.Y+p.Height
		case KindCircle:
			px0, py0, px1, py1 = p.X-p.Radius, p.Y-p.Radius, p.X+p.Radius, p.Y+p.Radius
		default:
			continue
		}
		if !ok {
			minX, minY, maxX, maxY = px0, py0, px1, py1
			ok = true
			continue
		}
		minX = minFloat(minX, px0)
		minY = minFloat(minY, py0)
		maxX = maxFloat(maxX, px1)
		maxY = maxFloat(maxY, py1)
	}
	return minX, minY, maxX, maxY, ok
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
