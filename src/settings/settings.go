// Package settings defines the crosshair configuration shared between the
// host (tray, hotkeys, CLI) and the render engine, together with the JSON
// document it is persisted as.
package settings

import (
	"fmt"
	"strings"
)

// Shape selects the mask geometry.
type Shape int

const (
	ShapeCross Shape = iota
	ShapeDot
	ShapeCircle
)

var shapeNames = [...]string{
	ShapeCross:  "cross",
	ShapeDot:    "dot",
	ShapeCircle: "circle",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return shapeNames[ShapeCross]
	}
	return shapeNames[s]
}

// ParseShape reports false for unknown names.
func ParseShape(name string) (Shape, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), true
		}
	}
	return ShapeCross, false
}

func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText never fails: unknown names select the cross.
func (s *Shape) UnmarshalText(b []byte) error {
	*s, _ = ParseShape(string(b))
	return nil
}

// ColorMode selects the colour policy evaluated per pixel.
type ColorMode int

const (
	ModeAdaptive ColorMode = iota
	ModeMaxContrast
	ModeInvert
	ModeStatic

	numColorModes
)

var colorModeNames = [...]string{
	ModeAdaptive:    "Adaptive",
	ModeMaxContrast: "Max Contrast",
	ModeInvert:      "Invert",
	ModeStatic:      "Static",
}

// ColorModes lists every mode in menu order.
func ColorModes() []ColorMode {
	return []ColorMode{ModeAdaptive, ModeMaxContrast, ModeInvert, ModeStatic}
}

func (m ColorMode) String() string {
	if m < 0 || m >= numColorModes {
		return colorModeNames[ModeAdaptive]
	}
	return colorModeNames[m]
}

// ParseColorMode accepts display names case-insensitively, with or without
// separators ("Max Contrast", "max_contrast", "maxcontrast").
func ParseColorMode(name string) (ColorMode, bool) {
	key := compactName(name)
	for i, n := range colorModeNames {
		if compactName(n) == key {
			return ColorMode(i), true
		}
	}
	return ModeAdaptive, false
}

func compactName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func (m ColorMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText never fails: unknown names select Adaptive.
func (m *ColorMode) UnmarshalText(b []byte) error {
	*m, _ = ParseColorMode(string(b))
	return nil
}

// NextColorMode returns the mode after m in menu order, wrapping around.
func NextColorMode(m ColorMode) ColorMode {
	if m < 0 || m >= numColorModes {
		return ModeAdaptive
	}
	return (m + 1) % numColorModes
}

// RGB is an 8-bit colour triple.
type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Bounds applied by Normalize.
const (
	MinSize          = 3
	MaxSize          = 61
	MinLumaThreshold = 1
	MaxLumaThreshold = 254
	MinOpacity       = 1
	MaxOpacity       = 255
	MinRefreshMs     = 1
	MaxRefreshMs     = 1000
)

// Config is the full crosshair configuration. Values produced by Defaults,
// Normalize, Apply and Decode are always within bounds.
type Config struct {
	Shape                  Shape
	Size                   int
	Thickness              int
	Gap                    int
	ColorMode              ColorMode
	ColorOnDark            RGB
	ColorOnLight           RGB
	StaticColor            RGB
	LumaThreshold          int
	OffsetX                int
	OffsetY                int
	Opacity                int
	RefreshIntervalMs      int
	VisibleInScreenCapture bool
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		Shape:                  ShapeCross,
		Size:                   15,
		Thickness:              1,
		Gap:                    0,
		ColorMode:              ModeAdaptive,
		ColorOnDark:            RGB{0, 255, 0},
		ColorOnLight:           RGB{255, 0, 255},
		StaticColor:            RGB{0, 255, 0},
		LumaThreshold:          128,
		OffsetX:                1,
		OffsetY:                1,
		Opacity:                255,
		RefreshIntervalMs:      7,
		VisibleInScreenCapture: false,
	}
}

// Normalize clamps every field into range. Size is forced odd so the
// crosshair has a single centre cell.
func (c Config) Normalize() Config {
	if c.Shape < 0 || int(c.Shape) >= len(shapeNames) {
		c.Shape = ShapeCross
	}
	if c.ColorMode < 0 || c.ColorMode >= numColorModes {
		c.ColorMode = ModeAdaptive
	}
	c.Size = clamp(c.Size, MinSize, MaxSize)
	if c.Size%2 == 0 {
		c.Size++
	}
	c.Thickness = clamp(c.Thickness, 1, c.Size)
	c.Gap = clamp(c.Gap, 0, c.Size/2)
	c.LumaThreshold = clamp(c.LumaThreshold, MinLumaThreshold, MaxLumaThreshold)
	c.Opacity = clamp(c.Opacity, MinOpacity, MaxOpacity)
	c.RefreshIntervalMs = clamp(c.RefreshIntervalMs, MinRefreshMs, MaxRefreshMs)
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
