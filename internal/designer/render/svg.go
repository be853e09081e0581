package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"layout-designer/internal/designer/codec"
	"layout-designer/internal/designer/scene"
)

// ============================================================
// SVG Renderer
// ============================================================

// SVG собирает SVG-превью из документа раскладки (для клиента в треде и
// быстрой проверки сцены без фронтенда).
func SVG(doc *codec.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}

	width := doc.CanvasWidth
	height := doc.CanvasHeight
	if width <= 0 || height <= 0 {
		width, height = scene.DefaultCanvasWidth, scene.DefaultCanvasHeight
	}

	// items в z-порядке, задние рисуются первыми
	items := make([]codec.Item, len(doc.Items))
	copy(items, doc.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ZOrder < items[j].ZOrder
	})

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(width), formatFloat(height), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	background := doc.BackgroundColor
	if background == "" {
		background = scene.DefaultBackground
	}
	builder.WriteString(fmt.Sprintf(`  <rect x="0" y="0" width="%s" height="%s" fill="%s" />`,
		formatFloat(width), formatFloat(height), background))
	builder.WriteString("\n")

	for _, it := range items {
		for _, elem := range renderItem(it) {
			builder.WriteString("  ")
			builder.WriteString(elem)
			builder.WriteString("\n")
		}
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Element renderers
// ============================================================

func renderItem(it codec.Item) []string {
	var out []string

	for _, p := range it.Primitives {
		switch p.Kind {
		case scene.KindRectangle:
			out = append(out, fmt.Sprintf(`<rect id="%s" x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="%s" />`,
				it.ID, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Width), formatFloat(p.Height), p.Fill, strokeOr(p.Stroke)))
		case scene.KindCircle:
			out = append(out, fmt.Sprintf(`<circle id="%s" cx="%s" cy="%s" r="%s" fill="%s" stroke="%s" />`,
				it.ID, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Radius), p.Fill, strokeOr(p.Stroke)))
		case scene.KindLabel:
			out = append(out, fmt.Sprintf(`<text x="%s" y="%s" fill="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`,
				formatFloat(p.X), formatFloat(p.Y), p.Fill, escapeText(p.Text)))
		}
	}
	return out
}

// ============================================================
// Formatting helpers
// ============================================================

func strokeOr(stroke string) string {
	if stroke == "" {
		return "none"
	}
	return stroke
}

func escapeText(text string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(text)
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
