package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-designer/internal/designer/scene"
)

func buildScene(t *testing.T) (*scene.Model, []string) {
	t.Helper()
	m := scene.NewModel()

	var ids []string
	for _, step := range []struct {
		category scene.Category
		at       scene.Point
	}{
		{scene.CategoryTable, scene.Point{X: 50, Y: 50}},
		{scene.CategoryChair, scene.Point{X: 300, Y: 120}},
		{scene.CategoryTent, scene.Point{X: 500, Y: 400}},
	} {
		id, err := m.AddItem(step.category, step.at)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return m, ids
}

func TestEncodeSingleTable(t *testing.T) {
	m := scene.NewModel()
	_, err := m.AddItem(scene.CategoryTable, scene.Point{X: 50, Y: 50})
	require.NoError(t, err)

	doc := Encode(m)

	assert.Equal(t, FormatVersion, doc.FormatVersion)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, scene.CategoryTable, doc.Items[0].Category)
	assert.Equal(t, 0, doc.Items[0].ZOrder)
	require.Len(t, doc.Items[0].Primitives, 2)
	assert.Equal(t, scene.KindRectangle, doc.Items[0].Primitives[0].Kind)
	assert.Equal(t, scene.KindLabel, doc.Items[0].Primitives[1].Kind)
}

func TestEncodeAfterDelete(t *testing.T) {
	m := scene.NewModel()

	tableID, err := m.AddItem(scene.CategoryTable, scene.Point{X: 10, Y: 10})
	require.NoError(t, err)
	_, err = m.AddItem(scene.CategoryChair, scene.Point{X: 200, Y: 200})
	require.NoError(t, err)

	m.RemoveItems([]string{tableID})
	doc := Encode(m)

	require.Len(t, doc.Items, 1)
	assert.Equal(t, scene.CategoryChair, doc.Items[0].Category)
	assert.Equal(t, 0, doc.Items[0].ZOrder)
}

func TestEncodeDeterministic(t *testing.T) {
	m, _ := buildScene(t)

	first, err := Marshal(Encode(m))
	require.NoError(t, err)
	second, err := Marshal(Encode(m))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRoundTrip(t *testing.T) {
	m, ids := buildScene(t)
	require.NoError(t, m.TransformItem(ids[0], scene.Transform{DX: 15, DY: 25}))
	m.SetSelection([]string{ids[1]})

	raw, err := Marshal(Encode(m))
	require.NoError(t, err)

	doc, err := Unmarshal(raw)
	require.NoError(t, err)
	restored, err := Decode(doc)
	require.NoError(t, err)

	original := m.Items()
	rehydrated := restored.Items()
	require.Len(t, rehydrated, len(original))

	for i := range original {
		assert.Equal(t, original[i].ID, rehydrated[i].ID)
		assert.Equal(t, original[i].Category, rehydrated[i].Category)
		assert.Equal(t, original[i].Anchor, rehydrated[i].Anchor)
		assert.Equal(t, original[i].Primitives, rehydrated[i].Primitives)
	}

	// выделение не сериализуется
	assert.Empty(t, restored.Selection())
	assert.Equal(t, m.Background(), restored.Background())
	assert.Equal(t, m.CanvasWidth(), restored.CanvasWidth())
}

func TestDecodeRestoresZOrder(t *testing.T) {
	m, ids := buildScene(t)

	doc := Encode(m)
	// перетасованный массив восстанавливается по zOrder
	doc.Items[0], doc.Items[2] = doc.Items[2], doc.Items[0]

	restored, err := Decode(doc)
	require.NoError(t, err)

	items := restored.Items()
	require.Len(t, items, 3)
	for i, id := range ids {
		assert.Equal(t, id, items[i].ID)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	m, _ := buildScene(t)
	doc := Encode(m)
	doc.FormatVersion = FormatVersion + 1

	_, err := Decode(doc)
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	raw, err := Marshal(doc)
	require.NoError(t, err)
	_, err = Unmarshal(raw)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeMalformed(t *testing.T) {
	valid := func() *Document {
		m, _ := buildScene(t)
		return Encode(m)
	}

	cases := []struct {
		name   string
		mutate func(*Document)
	}{
		{"missing version", func(d *Document) { d.FormatVersion = 0 }},
		{"zero canvas", func(d *Document) { d.CanvasWidth = 0 }},
		{"empty background", func(d *Document) { d.BackgroundColor = "" }},
		{"empty item id", func(d *Document) { d.Items[0].ID = "" }},
		{"unknown category", func(d *Document) { d.Items[0].Category = "Sofa" }},
		{"no primitives", func(d *Document) { d.Items[0].Primitives = nil }},
		{"unknown kind", func(d *Document) { d.Items[0].Primitives[0].Kind = "Triangle" }},
		{"flat rectangle", func(d *Document) { d.Items[0].Primitives[0].Width = 0 }},
		{"duplicate id", func(d *Document) { d.Items[1].ID = d.Items[0].ID }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := valid()
			tc.mutate(doc)

			restored, err := Decode(doc)
			require.ErrorIs(t, err, ErrMalformedDocument)
			// всё или ничего
			assert.Nil(t, restored)
		})
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal([]byte(`{"formatVersion": "one"}`))
	require.ErrorIs(t, err, ErrMalformedDocument)

	_, err = Unmarshal([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformedDocument)
}
