package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-designer/internal/designer/codec"
	"layout-designer/internal/designer/scene"
)

func TestSVGRendersItemsInZOrder(t *testing.T) {
	doc := &codec.Document{
		FormatVersion:   codec.FormatVersion,
		CanvasWidth:     800,
		CanvasHeight:    600,
		BackgroundColor: "#ffffff",
		Items: []codec.Item{
			{
				ID:       "chair-1",
				Category: scene.CategoryChair,
				ZOrder:   1,
				Primitives: []scene.Primitive{
					{Kind: scene.KindCircle, X: 200, Y: 200, Radius: 25, Fill: "#adb5bd", Stroke: "#6c757d"},
				},
			},
			{
				ID:       "table-1",
				Category: scene.CategoryTable,
				ZOrder:   0,
				Primitives: []scene.Primitive{
					{Kind: scene.KindRectangle, X: 100, Y: 100, Width: 120, Height: 80, Fill: "#b08968", Stroke: "#7f5539"},
					{Kind: scene.KindLabel, X: 160, Y: 140, Text: "Table", Fill: "#ffffff"},
				},
			},
		},
	}

	svg, err := SVG(doc)
	require.NoError(t, err)

	assert.Contains(t, svg, `viewBox="0 0 800 600"`)
	assert.Contains(t, svg, `fill="#ffffff"`)
	assert.Contains(t, svg, `<circle id="chair-1"`)
	assert.Contains(t, svg, `<rect id="table-1"`)
	assert.Contains(t, svg, `>Table</text>`)

	// стол с zOrder 0 рисуется раньше стула
	assert.Less(t, strings.Index(svg, "table-1"), strings.Index(svg, "chair-1"))
}

func TestSVGEscapesLabelText(t *testing.T) {
	doc := &codec.Document{
		FormatVersion:   codec.FormatVersion,
		CanvasWidth:     400,
		CanvasHeight:    400,
		BackgroundColor: "#fff",
		Items: []codec.Item{
			{
				ID:       "label-1",
				Category: scene.CategoryTable,
				Primitives: []scene.Primitive{
					{Kind: scene.KindLabel, X: 10, Y: 10, Text: "<Tables & Chairs>", Fill: "#000"},
				},
			},
		},
	}

	svg, err := SVG(doc)
	require.NoError(t, err)
	assert.Contains(t, svg, "&lt;Tables &amp; Chairs&gt;")
	assert.NotContains(t, svg, "<Tables")
}

func TestSVGNilDocument(t *testing.T) {
	_, err := SVG(nil)
	require.Error(t, err)
}
