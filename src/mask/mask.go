// Package mask builds the square shape bitmaps that decide which overlay
// cells belong to the crosshair.
package mask

import (
	"math"

	"crosshair-overlay/src/settings"
)

// Mask is an immutable size x size bitmap, row-major.
type Mask struct {
	size  int
	cells []bool
}

// Build returns the mask for the given geometry. Inputs are expected to be
// normalized by the settings package; Build itself never fails.
func Build(shape settings.Shape, size, thickness, gap int) *Mask {
	if size < 1 {
		size = 1
	}
	m := &Mask{size: size, cells: make([]bool, size*size)}
	switch shape {
	case settings.ShapeDot:
		m.fillDot(thickness)
	case settings.ShapeCircle:
		m.fillCircle(thickness)
	default:
		m.fillCross(thickness, gap)
	}
	return m
}

func (m *Mask) fillCross(thickness, gap int) {
	c := m.size / 2
	lo := c - thickness/2
	hi := lo + thickness
	inGap := func(v int) bool { return gap > 0 && v >= c-gap && v <= c+gap }

	for y := 0; y < m.size; y++ {
		for x := 0; x < m.size; x++ {
			vertical := x >= lo && x < hi && !inGap(y)
			horizontal := y >= lo && y < hi && !inGap(x)
			if vertical || horizontal {
				m.cells[y*m.size+x] = true
			}
		}
	}
}

func (m *Mask) fillDot(thickness int) {
	t := max(1, thickness)
	lo := m.size/2 - t/2
	hi := lo + t
	for y := max(lo, 0); y < min(hi, m.size); y++ {
		for x := max(lo, 0); x < min(hi, m.size); x++ {
			m.cells[y*m.size+x] = true
		}
	}
}

func (m *Mask) fillCircle(thickness int) {
	center := float64(m.size)/2 - 0.5
	outer := center
	inner := math.Max(0, outer-float64(thickness))
	for y := 0; y < m.size; y++ {
		for x := 0; x < m.size; x++ {
			d := math.Hypot(float64(x)-center, float64(y)-center)
			if d >= inner && d <= outer {
				m.cells[y*m.size+x] = true
			}
		}
	}
}

// Size is the side length in cells.
func (m *Mask) Size() int { return m.size }

// At reports whether (x, y) is part of the shape. Out-of-range cells are
// never set.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.size || y >= m.size {
		return false
	}
	return m.cells[y*m.size+x]
}

// Count returns the number of set cells.
func (m *Mask) Count() int {
	n := 0
	for _, on := range m.cells {
		if on {
			n++
		}
	}
	return n
}
