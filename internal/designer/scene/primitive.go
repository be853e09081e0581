package scene

// ============================================================
// Geometry Primitives
// ============================================================

type PrimitiveKind string

const (
	KindRectangle PrimitiveKind = "Rectangle"
	KindCircle    PrimitiveKind = "Circle"
	KindLabel     PrimitiveKind = "Label"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Primitive — атомарная фигура внутри Item. Для Rectangle x/y это левый
// верхний угол, для Circle и Label — центр.
type Primitive struct {
	Kind   PrimitiveKind `json:"kind"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Width  float64       `json:"width,omitempty"`
	Height float64       `json:"height,omitempty"`
	Radius float64       `json:"radius,omitempty"`
	Text   string        `json:"text,omitempty"`
	Fill   string        `json:"fill"`
	Stroke string        `json:"stroke,omitempty"`
}

// ValidKind проверяет, что kind примитива известен декодеру.
func ValidKind(kind PrimitiveKind) bool {
	switch kind {
	case KindRectangle, KindCircle, KindLabel:
		return true
	}
	return false
}
