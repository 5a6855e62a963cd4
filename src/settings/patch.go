package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned by ParseAssignment for keys outside the document.
var ErrUnknownKey = errors.New("unknown settings key")

// Patch is a partial Config. Nil fields are left untouched by Apply. The
// JSON tags are the document keys, so decoding a document into a Patch
// leaves missing keys nil.
type Patch struct {
	Shape                  *Shape     `json:"shape,omitempty"`
	Size                   *int       `json:"size,omitempty"`
	Thickness              *int       `json:"thickness,omitempty"`
	Gap                    *int       `json:"gap,omitempty"`
	ColorMode              *ColorMode `json:"color_mode,omitempty"`
	ColorOnDark            *RGB       `json:"color_on_dark,omitempty"`
	ColorOnLight           *RGB       `json:"color_on_light,omitempty"`
	StaticColor            *RGB       `json:"static_color,omitempty"`
	LumaThreshold          *int       `json:"luma_threshold,omitempty"`
	OffsetX                *int       `json:"offset_x,omitempty"`
	OffsetY                *int       `json:"offset_y,omitempty"`
	Opacity                *int       `json:"opacity,omitempty"`
	RefreshIntervalMs      *int       `json:"refresh_ms,omitempty"`
	VisibleInScreenCapture *bool      `json:"show_in_capture,omitempty"`
}

// Apply merges p into c and normalizes the result.
func (c Config) Apply(p Patch) Config {
	if p.Shape != nil {
		c.Shape = *p.Shape
	}
	if p.Size != nil {
		c.Size = *p.Size
	}
	if p.Thickness != nil {
		c.Thickness = *p.Thickness
	}
	if p.Gap != nil {
		c.Gap = *p.Gap
	}
	if p.ColorMode != nil {
		c.ColorMode = *p.ColorMode
	}
	if p.ColorOnDark != nil {
		c.ColorOnDark = *p.ColorOnDark
	}
	if p.ColorOnLight != nil {
		c.ColorOnLight = *p.ColorOnLight
	}
	if p.StaticColor != nil {
		c.StaticColor = *p.StaticColor
	}
	if p.LumaThreshold != nil {
		c.LumaThreshold = *p.LumaThreshold
	}
	if p.OffsetX != nil {
		c.OffsetX = *p.OffsetX
	}
	if p.OffsetY != nil {
		c.OffsetY = *p.OffsetY
	}
	if p.Opacity != nil {
		c.Opacity = *p.Opacity
	}
	if p.RefreshIntervalMs != nil {
		c.RefreshIntervalMs = *p.RefreshIntervalMs
	}
	if p.VisibleInScreenCapture != nil {
		c.VisibleInScreenCapture = *p.VisibleInScreenCapture
	}
	return c.Normalize()
}

// Full returns a Patch that sets every field to the values in c.
func Full(c Config) Patch {
	return Patch{
		Shape:                  &c.Shape,
		Size:                   &c.Size,
		Thickness:              &c.Thickness,
		Gap:                    &c.Gap,
		ColorMode:              &c.ColorMode,
		ColorOnDark:            &c.ColorOnDark,
		ColorOnLight:           &c.ColorOnLight,
		StaticColor:            &c.StaticColor,
		LumaThreshold:          &c.LumaThreshold,
		OffsetX:                &c.OffsetX,
		OffsetY:                &c.OffsetY,
		Opacity:                &c.Opacity,
		RefreshIntervalMs:      &c.RefreshIntervalMs,
		VisibleInScreenCapture: &c.VisibleInScreenCapture,
	}
}

// ParseAssignment turns "key=value" into a single-field Patch. Keys are the
// document keys; colours accept "#rrggbb" or "r,g,b".
func ParseAssignment(s string) (Patch, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return Patch{}, fmt.Errorf("expected key=value, got %q", s)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	var p Patch
	switch key {
	case "shape":
		shape, ok := ParseShape(value)
		if !ok {
			return Patch{}, fmt.Errorf("invalid shape %q", value)
		}
		p.Shape = &shape
	case "color_mode":
		mode, ok := ParseColorMode(value)
		if !ok {
			return Patch{}, fmt.Errorf("invalid color mode %q", value)
		}
		p.ColorMode = &mode
	case "color_on_dark", "color_on_light", "static_color":
		c, err := parseColor(value)
		if err != nil {
			return Patch{}, err
		}
		switch key {
		case "color_on_dark":
			p.ColorOnDark = &c
		case "color_on_light":
			p.ColorOnLight = &c
		default:
			p.StaticColor = &c
		}
	case "show_in_capture":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Patch{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		p.VisibleInScreenCapture = &b
	default:
		target := intField(&p, key)
		if target == nil {
			return Patch{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return Patch{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = &n
	}
	return p, nil
}

func intField(p *Patch, key string) **int {
	switch key {
	case "size":
		return &p.Size
	case "thickness":
		return &p.Thickness
	case "gap":
		return &p.Gap
	case "luma_threshold":
		return &p.LumaThreshold
	case "offset_x":
		return &p.OffsetX
	case "offset_y":
		return &p.OffsetY
	case "opacity":
		return &p.Opacity
	case "refresh_ms":
		return &p.RefreshIntervalMs
	}
	return nil
}

func parseColor(s string) (RGB, error) {
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 {
			return RGB{}, fmt.Errorf("invalid colour %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("invalid colour %q", s)
	}
	var ch [3]uint8
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return RGB{}, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		ch[i] = uint8(clamp(n, 0, 255))
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}
