package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// document fixes the key order of encoded settings files.
type document struct {
	Size                   int       `json:"size"`
	Thickness              int       `json:"thickness"`
	Gap                    int       `json:"gap"`
	Shape                  Shape     `json:"shape"`
	ColorMode              ColorMode `json:"color_mode"`
	ColorOnDark            RGB       `json:"color_on_dark"`
	ColorOnLight           RGB       `json:"color_on_light"`
	LumaThreshold          int       `json:"luma_threshold"`
	StaticColor            RGB       `json:"static_color"`
	OffsetX                int       `json:"offset_x"`
	OffsetY                int       `json:"offset_y"`
	RefreshIntervalMs      int       `json:"refresh_ms"`
	Opacity                int       `json:"opacity"`
	VisibleInScreenCapture bool      `json:"show_in_capture"`
}

// Decode parses a settings document. Unknown keys are ignored and missing
// keys take their default; values are normalized.
func Decode(data []byte) (Config, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("decode settings: %w", err)
	}
	return Defaults().Apply(p), nil
}

// DecodePatch parses a partial document without applying defaults.
func DecodePatch(data []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return Patch{}, fmt.Errorf("decode settings patch: %w", err)
	}
	return p, nil
}

// Encode renders c as an indented document.
func Encode(c Config) ([]byte, error) {
	c = c.Normalize()
	doc := document{
		Size:                   c.Size,
		Thickness:              c.Thickness,
		Gap:                    c.Gap,
		Shape:                  c.Shape,
		ColorMode:              c.ColorMode,
		ColorOnDark:            c.ColorOnDark,
		ColorOnLight:           c.ColorOnLight,
		LumaThreshold:          c.LumaThreshold,
		StaticColor:            c.StaticColor,
		OffsetX:                c.OffsetX,
		OffsetY:                c.OffsetY,
		RefreshIntervalMs:      c.RefreshIntervalMs,
		Opacity:                c.Opacity,
		VisibleInScreenCapture: c.VisibleInScreenCapture,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Load reads the settings file at path. A missing file is not an error and
// yields Defaults. On a malformed file Defaults is returned with the error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), fmt.Errorf("read settings %s: %w", path, err)
	}
	return Decode(data)
}

// Save writes c to path through a temp file so a crash never leaves a
// truncated document behind.
func Save(path string, c Config) error {
	data, err := Encode(c)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".crosshair-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace settings %s: %w", path, err)
	}
	return nil
}

// MarshalJSON encodes the colour as [r, g, b].
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{int(c.R), int(c.G), int(c.B)})
}

// UnmarshalJSON accepts [r, g, b] (numbers clamped to 0..255) or "#rrggbb".
func (c *RGB) UnmarshalJSON(b []byte) error {
	if s := strings.TrimSpace(string(b)); strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		parsed, err := parseColor(str)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var ch []float64
	if err := json.Unmarshal(b, &ch); err != nil {
		return fmt.Errorf("colour must be [r,g,b]: %w", err)
	}
	if len(ch) != 3 {
		return fmt.Errorf("colour must have 3 channels, got %d", len(ch))
	}
	*c = RGB{R: channel(ch[0]), G: channel(ch[1]), B: channel(ch[2])}
	return nil
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
