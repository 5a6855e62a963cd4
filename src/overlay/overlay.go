// Package overlay owns the topmost, click-through surface the crosshair is
// presented on.
package overlay

import (
	"errors"
	"image"

	"crosshair-overlay/src/compositor"
)

// ErrUnsupported is returned by New on platforms without a layered-window
// implementation.
var ErrUnsupported = errors.New("overlay surface not supported on this platform")

// Geometry is the square the surface occupies, in virtual-screen pixels.
type Geometry struct {
	X, Y int
	Size int
}

func (g Geometry) Rect() image.Rectangle {
	return image.Rect(g.X, g.Y, g.X+g.Size, g.Y+g.Size)
}

// CenteredGeometry places a size x size square on the centre of screen,
// shifted by the configured offset.
func CenteredGeometry(screen image.Rectangle, size, offsetX, offsetY int) Geometry {
	cx := screen.Min.X + screen.Dx()/2 + offsetX
	cy := screen.Min.Y + screen.Dy()/2 + offsetY
	return Geometry{X: cx - size/2, Y: cy - size/2, Size: size}
}

// Surface is a per-pixel-alpha render target. Every method must be called
// from the goroutine that created it; on Windows that goroutine is locked to
// the thread owning the window.
type Surface interface {
	// Drain dispatches pending platform messages without blocking.
	Drain()
	// Reposition moves and resizes without activating, changing z-order or
	// redrawing.
	Reposition(g Geometry) error
	// SetCaptureVisibility controls whether screen capture sees the surface.
	SetCaptureVisibility(visible bool) error
	// Present replaces the surface contents with f.
	Present(f *compositor.Frame, g Geometry) error
	// Destroy releases the surface. Calling it again is a no-op.
	Destroy() error
}

// Factory creates a surface registered under className. Creation errors are
// fatal to the caller; they are never retried.
type Factory func(className string, g Geometry) (Surface, error)
