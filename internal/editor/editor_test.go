package editor

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/storefront/internal/assets"
	"github.com/inkpress/storefront/internal/printarea"
	"github.com/inkpress/storefront/internal/render"
	"github.com/inkpress/storefront/internal/scene"
)

var testArea = printarea.PrintArea{ID: "front", Label: "Front", Width: 1000, Height: 1000, DisplayScale: 0.2}

type fakeAssets map[string]image.Image

func (f fakeAssets) Image(id string) (image.Image, bool) {
	img, ok := f[id]
	return img, ok
}

func newEditor(t *testing.T, opts ...Option) *Editor {
	t.Helper()
	e, err := New(testArea, append([]Option{WithCommitDelay(0)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func ptr(v float64) *float64 { return &v }

func addRect(t *testing.T, e *Editor, x, y float64, fill string) string {
	t.Helper()
	id, err := e.AddShape(scene.ShapeRectangle, ShapeOptions{X: ptr(x), Y: ptr(y), Width: 50, Height: 50, Fill: fill})
	require.NoError(t, err)
	return id
}

func TestNewRejectsInvalidArea(t *testing.T) {
	_, err := New(printarea.PrintArea{ID: "x", Width: 10, Height: 10})
	assert.ErrorIs(t, err, printarea.ErrInvalidPrintArea)
}

func TestHitTestTopmostWins(t *testing.T) {
	e := newEditor(t)
	a := addRect(t, e, 20, 20, "#ff0000")
	b := addRect(t, e, 40, 40, "#00ff00")

	assert.Equal(t, b, e.PointerDown(50, 50))
	assert.Equal(t, b, e.Selection())
	e.PointerUp()

	assert.Equal(t, a, e.PointerDown(25, 25))
	e.PointerUp()

	require.NoError(t, e.Reorder(b, scene.Back))
	assert.Equal(t, a, e.HitTest(50, 50))
}

func TestClickOutsideClearsSelection(t *testing.T) {
	e := newEditor(t)
	addRect(t, e, 20, 20, "#ff0000")
	assert.Equal(t, Selected, e.State())

	assert.Equal(t, "", e.PointerDown(190, 190))
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, "", e.Selection())
}

func TestHelloUndoRedo(t *testing.T) {
	e := newEditor(t)
	_, err := e.AddText(TextOptions{Text: "HELLO", X: ptr(60), Y: ptr(60), FontSize: 56})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Scene().Len())

	changed, err := e.Undo()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, e.Scene().Len())
	assert.Equal(t, "", e.Selection())

	changed, err = e.Redo()
	require.NoError(t, err)
	assert.True(t, changed)
	els := e.Scene().Elements()
	require.Len(t, els, 1)
	txt, ok := els[0].(*scene.Text)
	require.True(t, ok)
	assert.Equal(t, "HELLO", txt.Content)
	assert.Equal(t, 56.0, txt.FontSize)

	changed, err = e.Redo()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDragCommitsOnlyPastThreshold(t *testing.T) {
	e := newEditor(t)
	id := addRect(t, e, 20, 20, "#ff0000")
	base := e.history.Len()

	// a jitter inside the threshold is a click, not a drag
	e.PointerDown(30, 30)
	e.PointerMove(32, 31)
	assert.Equal(t, Selected, e.State())
	assert.False(t, e.PointerUp())
	assert.Equal(t, base, e.history.Len())

	e.PointerDown(30, 30)
	e.PointerMove(40, 30)
	assert.Equal(t, Dragging, e.State())
	e.PointerMove(60, 50)
	assert.Equal(t, base, e.history.Len(), "moves are live only")
	assert.True(t, e.PointerUp())
	assert.Equal(t, Selected, e.State())
	assert.Equal(t, base+1, e.history.Len())

	el, ok := e.Scene().Get(id)
	require.True(t, ok)
	assert.Equal(t, 50.0, el.Common().X)
	assert.Equal(t, 40.0, el.Common().Y)
}

func TestDragBackToStartDoesNotCommit(t *testing.T) {
	e := newEditor(t)
	addRect(t, e, 20, 20, "#ff0000")
	base := e.history.Len()

	e.PointerDown(30, 30)
	e.PointerMove(50, 30)
	e.PointerMove(30, 30)
	assert.False(t, e.PointerUp())
	assert.Equal(t, base, e.history.Len())
}

func TestSetPropertyCoalesces(t *testing.T) {
	e := newEditor(t, WithCommitDelay(time.Hour))
	id := addRect(t, e, 20, 20, "#ff0000")
	base := e.history.Len()

	for _, v := range []float64{0.9, 0.7, 0.5, 0.3} {
		require.NoError(t, e.SetProperty(id, scene.PropOpacity, v))
	}
	assert.Equal(t, EditingProperty, e.State())
	assert.Equal(t, base, e.history.Len())

	assert.True(t, e.Flush())
	assert.Equal(t, base+1, e.history.Len())
	assert.Equal(t, Selected, e.State())
	assert.False(t, e.Flush())

	_, err := e.Undo()
	require.NoError(t, err)
	el, _ := e.Scene().Get(id)
	assert.Equal(t, 1.0, el.Common().Opacity)
	_, err = e.Redo()
	require.NoError(t, err)
	el, _ = e.Scene().Get(id)
	assert.Equal(t, 0.3, el.Common().Opacity)
}

func TestSetPropertyCommitsAfterDelay(t *testing.T) {
	var mu sync.Mutex
	commits := 0
	e := newEditor(t, WithCommitDelay(20*time.Millisecond), WithListener(func(ev Event) {
		if ev.Type == EventCommitted {
			mu.Lock()
			commits++
			mu.Unlock()
		}
	}))
	id := addRect(t, e, 20, 20, "#ff0000")
	mu.Lock()
	commits = 0
	mu.Unlock()

	require.NoError(t, e.SetProperty(id, scene.PropX, 30))
	require.NoError(t, e.SetProperty(id, scene.PropX, 40))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return commits == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, Selected, e.State())
}

func TestSetPropertyDifferentKeyFlushes(t *testing.T) {
	e := newEditor(t, WithCommitDelay(time.Hour))
	id := addRect(t, e, 20, 20, "#ff0000")
	base := e.history.Len()

	require.NoError(t, e.SetProperty(id, scene.PropX, 30))
	require.NoError(t, e.SetProperty(id, scene.PropY, 30))
	assert.Equal(t, base+1, e.history.Len())
	e.Flush()
	assert.Equal(t, base+2, e.history.Len())
}

func TestStaleIDsFail(t *testing.T) {
	e := newEditor(t)
	assert.ErrorIs(t, e.SetProperty("gone", scene.PropX, 1), scene.ErrElementNotFound)
	assert.ErrorIs(t, e.Remove("gone"), scene.ErrElementNotFound)
	assert.ErrorIs(t, e.Reorder("gone", scene.Front), scene.ErrElementNotFound)
	assert.ErrorIs(t, e.ApplyFilter("gone", scene.FilterSepia), scene.ErrElementNotFound)
	assert.ErrorIs(t, e.Select("gone"), scene.ErrElementNotFound)
	_, err := e.Duplicate("gone")
	assert.ErrorIs(t, err, scene.ErrElementNotFound)
}

func TestApplyFilterRequiresImage(t *testing.T) {
	e := newEditor(t)
	id := addRect(t, e, 20, 20, "#ff0000")
	assert.ErrorIs(t, e.ApplyFilter(id, scene.FilterGrayscale), ErrNotAnImage)
}

func TestAddImageAndFilter(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for i := 0; i < len(red.Pix); i += 4 {
		red.Pix[i], red.Pix[i+3] = 255, 255
	}
	fonts, err := render.NewFontRegistry(nil)
	require.NoError(t, err)
	r := render.NewRenderer(fonts, fakeAssets{"abc": red}, nil)
	e := newEditor(t, WithRenderer(r))

	id, err := e.AddImage(&assets.Asset{ID: "abc", Width: 800, Height: 400})
	require.NoError(t, err)
	el, _ := e.Scene().Get(id)
	img := el.(*scene.Image)
	assert.Equal(t, 400.0, img.Width)
	assert.Equal(t, 200.0, img.Height)

	base := e.history.Len()
	require.NoError(t, e.ApplyFilter(id, scene.FilterGrayscale))
	assert.Equal(t, base+1, e.history.Len())

	c := e.Surface().RGBAAt(100, 100)
	assert.Equal(t, c.R, c.G)
	assert.Equal(t, c.G, c.B)
}

func TestDuplicateAndRemove(t *testing.T) {
	e := newEditor(t)
	id := addRect(t, e, 20, 20, "#ff0000")

	dup, err := e.Duplicate(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, dup)
	assert.Equal(t, dup, e.Selection())
	el, _ := e.Scene().Get(dup)
	assert.Equal(t, 30.0, el.Common().X)
	assert.Equal(t, 1, el.Common().ZOrder)

	require.NoError(t, e.Remove(dup))
	assert.Equal(t, "", e.Selection())
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, 1, e.Scene().Len())
}

func TestApplyTemplate(t *testing.T) {
	e := newEditor(t)
	addRect(t, e, 20, 20, "#ff0000")

	tpl := []scene.Element{
		&scene.Shape{Base: scene.Base{ID: "bg", Opacity: 1}, Shape: scene.ShapeRectangle, Width: 200, Height: 200, Fill: "#ffffff"},
		&scene.Text{Base: scene.Base{ID: "title", X: 10, Y: 10, Opacity: 1}, Content: "SALE", FontSize: 30, Fill: "#000", Align: scene.AlignLeft},
	}
	require.NoError(t, e.ApplyTemplate(tpl))

	els := e.Scene().Elements()
	require.Len(t, els, 2)
	assert.NotEqual(t, "bg", els[0].Common().ID)
	assert.Equal(t, scene.KindText, els[1].Common().Kind)
	assert.Equal(t, "bg", tpl[0].Common().ID, "template prototypes are not modified")

	changed, err := e.Undo()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, e.Scene().Len())
}

func TestFrameDrawsSelectionOutsideSurface(t *testing.T) {
	e := newEditor(t)
	addRect(t, e, 50, 50, "#ff0000")

	frame, err := e.Frame()
	require.NoError(t, err)
	clean := e.Surface()

	assert.Equal(t, color.RGBA{R: 255, A: 255}, frame.RGBAAt(75, 75))
	outlined := false
	for x := 40; x < 110; x++ {
		if frame.RGBAAt(x, 46).A > 0 {
			outlined = true
		}
		assert.Equal(t, uint8(0), clean.RGBAAt(x, 46).A)
	}
	assert.True(t, outlined)
}

func TestFreezeFlushesPending(t *testing.T) {
	e := newEditor(t, WithCommitDelay(time.Hour))
	id := addRect(t, e, 20, 20, "#ff0000")
	require.NoError(t, e.SetProperty(id, scene.PropFill, "#0000ff"))

	data, preview, err := e.Freeze()
	require.NoError(t, err)
	assert.Equal(t, Selected, e.State())
	assert.Equal(t, data, e.history.Current().Snapshot)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, preview.RGBAAt(30, 30))
}

func TestSetPropertyRejectsNonFinite(t *testing.T) {
	e := newEditor(t)
	id, err := e.AddText(TextOptions{Text: "HELLO", X: ptr(60), Y: ptr(60), FontSize: 56})
	require.NoError(t, err)
	require.NoError(t, e.SetProperty(id, scene.PropX, 80.0))
	base := e.history.Len()

	assert.ErrorIs(t, e.SetProperty(id, scene.PropX, "NaN"), scene.ErrInvalidProperty)
	assert.ErrorIs(t, e.SetProperty(id, scene.PropFontSize, "Inf"), scene.ErrInvalidProperty)
	assert.Equal(t, base, e.history.Len())

	_, err = e.Snapshot()
	require.NoError(t, err)
	_, _, err = e.Freeze()
	require.NoError(t, err)

	changed, err := e.Undo()
	require.NoError(t, err)
	assert.True(t, changed)
	el, ok := e.Scene().Get(id)
	require.True(t, ok)
	assert.Equal(t, 60.0, el.Common().X)
	assert.Equal(t, 56.0, el.(*scene.Text).FontSize)
}

func TestFrameRedrawsWhenAssetArrives(t *testing.T) {
	source := fakeAssets{}
	fonts, err := render.NewFontRegistry(nil)
	require.NoError(t, err)
	e := newEditor(t, WithRenderer(render.NewRenderer(fonts, source, nil)))

	_, err = e.AddImage(&assets.Asset{ID: "late", Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), e.Surface().RGBAAt(100, 100).A)

	red := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := 0; i < len(red.Pix); i += 4 {
		red.Pix[i], red.Pix[i+3] = 255, 255
	}
	source["late"] = red
	assert.Equal(t, color.RGBA{R: 255, A: 255}, e.Surface().RGBAAt(100, 100))
}
