// Package compositor turns a captured screen region, a mask and a colour
// policy into the premultiplied pixel buffer handed to the overlay surface.
package compositor

import (
	"image"

	"crosshair-overlay/src/colorpolicy"
	"crosshair-overlay/src/mask"
	"crosshair-overlay/src/settings"
)

// Order is the byte order of each Pix entry. Layered windows on Windows
// expect B, G, R, A.
const Order = "BGRA"

const bytesPerPixel = 4

// Frame is a top-down, premultiplied-alpha pixel buffer in native Order.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewFrame allocates a fully transparent frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Stride: width * bytesPerPixel,
		Pix:    make([]byte, width*height*bytesPerPixel),
	}
}

// At decodes the pixel at (x, y). Out-of-range reads are transparent.
func (f *Frame) At(x, y int) (r, g, b, a uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0, 0
	}
	i := y*f.Stride + x*bytesPerPixel
	return f.Pix[i+2], f.Pix[i+1], f.Pix[i], f.Pix[i+3]
}

func (f *Frame) set(x, y int, c settings.RGB, a uint8) {
	i := y*f.Stride + x*bytesPerPixel
	f.Pix[i] = c.B
	f.Pix[i+1] = c.G
	f.Pix[i+2] = c.R
	f.Pix[i+3] = a
}

// Composite builds one frame. Cells outside the mask stay (0,0,0,0) so the
// desktop shows through; cells inside carry the policy colour premultiplied
// by opacity, with alpha equal to opacity. src coordinates are relative to
// src.Rect.Min; pixels missing from src sample as black.
func Composite(src *image.RGBA, m *mask.Mask, policy colorpolicy.Func, cfg *settings.Config, opacity uint8) *Frame {
	size := m.Size()
	f := NewFrame(size, size)
	if policy == nil {
		policy = colorpolicy.Adaptive
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if !m.At(x, y) {
				continue
			}
			sx, sy := x, y
			if cfg.VisibleInScreenCapture {
				sx, sy = unmaskedNeighbour(m, x, y)
			}
			sample := pixel(src, sx, sy)
			f.set(x, y, premultiply(evaluate(policy, sample, cfg), opacity), opacity)
		}
	}
	return f
}

var neighbourOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// unmaskedNeighbour picks the first axis neighbour that is not part of the
// shape, so a capture that includes our own previous frame is not sampled
// back. Falls back to (x, y) when every neighbour is masked or off-grid.
func unmaskedNeighbour(m *mask.Mask, x, y int) (int, int) {
	size := m.Size()
	for _, d := range neighbourOffsets {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || ny < 0 || nx >= size || ny >= size {
			continue
		}
		if !m.At(nx, ny) {
			return nx, ny
		}
	}
	return x, y
}

func evaluate(policy colorpolicy.Func, sample settings.RGB, cfg *settings.Config) (out settings.RGB) {
	defer func() {
		if r := recover(); r != nil {
			out = colorpolicy.Invert(sample)
		}
	}()
	return policy(sample, cfg)
}

func pixel(src *image.RGBA, x, y int) settings.RGB {
	if src == nil {
		return settings.RGB{}
	}
	p := image.Pt(src.Rect.Min.X+x, src.Rect.Min.Y+y)
	if !p.In(src.Rect) {
		return settings.RGB{}
	}
	i := src.PixOffset(p.X, p.Y)
	return settings.RGB{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2]}
}

func premultiply(c settings.RGB, opacity uint8) settings.RGB {
	if opacity == 255 {
		return c
	}
	scale := func(v uint8) uint8 {
		return uint8(min(int(v)*int(opacity)/255, 255))
	}
	return settings.RGB{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}
