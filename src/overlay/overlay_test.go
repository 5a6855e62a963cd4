package overlay

import (
	"errors"
	"image"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosshair-overlay/src/compositor"
)

func TestCenteredGeometry(t *testing.T) {
	tests := []struct {
		name   string
		screen image.Rectangle
		size   int
		dx, dy int
		want   Geometry
	}{
		{"1080p default offset", image.Rect(0, 0, 1920, 1080), 15, 1, 1, Geometry{X: 954, Y: 534, Size: 15}},
		{"no offset", image.Rect(0, 0, 1920, 1080), 15, 0, 0, Geometry{X: 953, Y: 533, Size: 15}},
		{"negative offset", image.Rect(0, 0, 100, 100), 5, -10, -20, Geometry{X: 38, Y: 28, Size: 5}},
		{"secondary origin", image.Rect(-1280, 0, 0, 1024), 3, 0, 0, Geometry{X: -641, Y: 511, Size: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CenteredGeometry(tt.screen, tt.size, tt.dx, tt.dy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeometryRect(t *testing.T) {
	g := Geometry{X: 10, Y: -5, Size: 7}
	assert.Equal(t, image.Rect(10, -5, 17, 2), g.Rect())
}

func TestGDIScopeReleasesInReverseOrder(t *testing.T) {
	var order []string
	s := &gdiScope{}
	s.add(func() { order = append(order, "screen dc") })
	s.add(func() { order = append(order, "memory dc") })
	s.add(func() { order = append(order, "bitmap") })
	s.add(func() { order = append(order, "selection") })

	s.Release()
	s.Release()
	assert.Equal(t, []string{"selection", "bitmap", "memory dc", "screen dc"}, order)
}

func TestGDIScopeReleasesOnEarlyReturn(t *testing.T) {
	released := 0
	acquire := func(fail bool) error {
		s := &gdiScope{}
		defer s.Release()
		s.add(func() { released++ })
		if fail {
			return errors.New("second handle failed")
		}
		s.add(func() { released++ })
		return nil
	}

	require.Error(t, acquire(true))
	assert.Equal(t, 1, released)
	require.NoError(t, acquire(false))
	assert.Equal(t, 3, released)
}

func TestHeadlessRecordsCalls(t *testing.T) {
	var created *Headless
	s, err := HeadlessFactory(func(h *Headless) { created = h })("CrosshairOverlay_1", Geometry{Size: 15})
	require.NoError(t, err)
	h := s.(*Headless)
	require.Same(t, h, created)

	h.Drain()
	require.NoError(t, h.Reposition(Geometry{X: 3, Y: 4, Size: 21}))
	require.NoError(t, h.SetCaptureVisibility(true))
	f := compositor.NewFrame(21, 21)
	require.NoError(t, h.Present(f, Geometry{X: 3, Y: 4, Size: 21}))

	st := h.State()
	assert.Equal(t, "CrosshairOverlay_1", st.ClassName)
	assert.Equal(t, Geometry{X: 3, Y: 4, Size: 21}, st.Geometry)
	assert.True(t, st.Visible)
	assert.Same(t, f, st.Last)
	assert.Equal(t, 1, st.Presents)
	assert.Equal(t, 1, st.Drains)

	require.NoError(t, h.Destroy())
	require.NoError(t, h.Destroy())
	assert.True(t, h.State().Destroyed)
	assert.Error(t, h.Present(f, st.Geometry))
}

func TestHeadlessInjectedErrors(t *testing.T) {
	boom := errors.New("boom")
	h := NewHeadless("x", Geometry{})
	h.FailPresent(boom)
	h.FailReposition(boom)
	h.FailAffinity(boom)

	assert.ErrorIs(t, h.Reposition(Geometry{}), boom)
	assert.ErrorIs(t, h.SetCaptureVisibility(false), boom)
	assert.ErrorIs(t, h.Present(compositor.NewFrame(1, 1), Geometry{}), boom)
	assert.Zero(t, h.State().Presents)

	h.FailPresent(nil)
	assert.NoError(t, h.Present(compositor.NewFrame(1, 1), Geometry{}))
}

func TestNewOnUnsupportedPlatform(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("layered windows are supported here")
	}
	_, err := New("CrosshairOverlay_test", Geometry{Size: 15})
	assert.ErrorIs(t, err, ErrUnsupported)
}
