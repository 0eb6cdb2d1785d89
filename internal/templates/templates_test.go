package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/storefront/internal/scene"
)

func TestDefault(t *testing.T) {
	lib := Default()
	require.Len(t, lib.List(), 6)

	badge, err := lib.Get("badge-design")
	require.NoError(t, err)
	els := badge.Elements()
	require.Len(t, els, 2)

	circle, ok := els[0].(*scene.Shape)
	require.True(t, ok)
	assert.Equal(t, scene.ShapeCircle, circle.Shape)
	assert.Equal(t, 80.0, circle.Radius)
	assert.Equal(t, 1.0, circle.Opacity)

	txt, ok := els[1].(*scene.Text)
	require.True(t, ok)
	assert.Equal(t, "BADGE", txt.Content)
	assert.Equal(t, scene.AlignCenter, txt.Align)
	assert.True(t, txt.Bold)
	assert.Equal(t, 1, txt.ZOrder)
}

func TestElementsAreCopies(t *testing.T) {
	tpl, err := Default().Get("minimal-text")
	require.NoError(t, err)
	tpl.Elements()[0].Common().X = -1
	assert.Equal(t, 250.0, tpl.Elements()[0].Common().X)
}

func TestRoundedLabel(t *testing.T) {
	tpl, err := Default().Get("vintage-label")
	require.NoError(t, err)
	frame := tpl.Elements()[0].(*scene.Shape)
	assert.Equal(t, 20.0, frame.Corner)
	assert.Equal(t, "transparent", frame.Fill)
}

func TestByCategory(t *testing.T) {
	groups := Default().ByCategory()
	assert.Len(t, groups, 6)
	require.Len(t, groups["Quotes"], 1)
	assert.Equal(t, "modern-quote", groups["Quotes"][0].ID)
}

func TestGetUnknown(t *testing.T) {
	_, err := Default().Get("nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestParseRejectsInvalidElements(t *testing.T) {
	tests := map[string]string{
		"unknown kind":  "templates:\n  - id: a\n    elements:\n      - kind: sprite\n",
		"bad circle":    "templates:\n  - id: a\n    elements:\n      - kind: shape\n        shape: circle\n",
		"duplicate ids": "templates:\n  - id: a\n  - id: a\n",
		"missing id":    "templates:\n  - name: x\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
