package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, ShapeCross, d.Shape)
	assert.Equal(t, 15, d.Size)
	assert.Equal(t, 1, d.Thickness)
	assert.Equal(t, 0, d.Gap)
	assert.Equal(t, ModeAdaptive, d.ColorMode)
	assert.Equal(t, RGB{0, 255, 0}, d.ColorOnDark)
	assert.Equal(t, RGB{255, 0, 255}, d.ColorOnLight)
	assert.Equal(t, RGB{0, 255, 0}, d.StaticColor)
	assert.Equal(t, 128, d.LumaThreshold)
	assert.Equal(t, 1, d.OffsetX)
	assert.Equal(t, 1, d.OffsetY)
	assert.Equal(t, 7, d.RefreshIntervalMs)
	assert.Equal(t, 255, d.Opacity)
	assert.False(t, d.VisibleInScreenCapture)
	assert.Equal(t, d, d.Normalize(), "defaults must already be normalized")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want func(t *testing.T, c Config)
	}{
		{
			name: "even size is bumped to odd",
			in:   Config{Size: 16},
			want: func(t *testing.T, c Config) { assert.Equal(t, 17, c.Size) },
		},
		{
			name: "size clamps low",
			in:   Config{Size: 0},
			want: func(t *testing.T, c Config) { assert.Equal(t, MinSize, c.Size) },
		},
		{
			name: "size clamps high",
			in:   Config{Size: 500},
			want: func(t *testing.T, c Config) { assert.Equal(t, MaxSize, c.Size) },
		},
		{
			name: "thickness at least one",
			in:   Config{Size: 15, Thickness: 0},
			want: func(t *testing.T, c Config) { assert.Equal(t, 1, c.Thickness) },
		},
		{
			name: "gap never negative",
			in:   Config{Size: 15, Gap: -4},
			want: func(t *testing.T, c Config) { assert.Equal(t, 0, c.Gap) },
		},
		{
			name: "luma and opacity bounds",
			in:   Config{Size: 15, LumaThreshold: 0, Opacity: 999},
			want: func(t *testing.T, c Config) {
				assert.Equal(t, MinLumaThreshold, c.LumaThreshold)
				assert.Equal(t, MaxOpacity, c.Opacity)
			},
		},
		{
			name: "refresh interval at least one",
			in:   Config{Size: 15, RefreshIntervalMs: -1},
			want: func(t *testing.T, c Config) { assert.Equal(t, MinRefreshMs, c.RefreshIntervalMs) },
		},
		{
			name: "out of range enums reset",
			in:   Config{Size: 15, Shape: Shape(42), ColorMode: ColorMode(-3)},
			want: func(t *testing.T, c Config) {
				assert.Equal(t, ShapeCross, c.Shape)
				assert.Equal(t, ModeAdaptive, c.ColorMode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			tt.want(t, got)
			assert.Equal(t, got, got.Normalize(), "Normalize must be idempotent")
		})
	}
}

func TestApplyMergesOnlyGivenFields(t *testing.T) {
	size := 20
	mode := ModeInvert
	got := Defaults().Apply(Patch{Size: &size, ColorMode: &mode})

	want := Defaults()
	want.Size = 21
	want.ColorMode = ModeInvert
	assert.Equal(t, want, got)
}

func TestFullPatchReproducesConfig(t *testing.T) {
	c := Defaults()
	c.Shape = ShapeCircle
	c.Size = 31
	c.Thickness = 3
	c.ColorMode = ModeStatic
	c.StaticColor = RGB{1, 2, 3}
	c.VisibleInScreenCapture = true

	assert.Equal(t, c, Defaults().Apply(Full(c)))
}

func TestDecodeFillsMissingAndIgnoresUnknown(t *testing.T) {
	doc := []byte(`{
		"size": 22,
		"shape": "circle",
		"color_mode": "Max Contrast",
		"color_on_dark": [10, 300, -5],
		"favourite_food": "soup"
	}`)

	c, err := Decode(doc)
	require.NoError(t, err)

	assert.Equal(t, 23, c.Size)
	assert.Equal(t, ShapeCircle, c.Shape)
	assert.Equal(t, ModeMaxContrast, c.ColorMode)
	assert.Equal(t, RGB{10, 255, 0}, c.ColorOnDark)
	assert.Equal(t, Defaults().ColorOnLight, c.ColorOnLight)
	assert.Equal(t, Defaults().RefreshIntervalMs, c.RefreshIntervalMs)
}

func TestDecodeUnknownEnumFallsBack(t *testing.T) {
	c, err := Decode([]byte(`{"shape": "hexagon", "color_mode": "Rainbow"}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeCross, c.Shape)
	assert.Equal(t, ModeAdaptive, c.ColorMode)
}

func TestDecodeMalformed(t *testing.T) {
	c, err := Decode([]byte(`{"size": `))
	assert.Error(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestEncodeDecodeKeepsValues(t *testing.T) {
	c := Defaults()
	c.Shape = ShapeDot
	c.Thickness = 5
	c.OffsetX = -3
	c.ColorOnLight = RGB{12, 34, 56}

	data, err := Encode(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"color_on_light": [`)
	assert.Contains(t, string(data), `"shape": "dot"`)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crosshair_config.json")
	c := Defaults()
	c.Size = 25
	c.ColorMode = ModeInvert

	require.NoError(t, Save(path, c))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in    string
		check func(t *testing.T, p Patch)
	}{
		{"size=21", func(t *testing.T, p Patch) { require.NotNil(t, p.Size); assert.Equal(t, 21, *p.Size) }},
		{"shape = dot", func(t *testing.T, p Patch) { require.NotNil(t, p.Shape); assert.Equal(t, ShapeDot, *p.Shape) }},
		{"color_mode=max_contrast", func(t *testing.T, p Patch) {
			require.NotNil(t, p.ColorMode)
			assert.Equal(t, ModeMaxContrast, *p.ColorMode)
		}},
		{"static_color=#ff8000", func(t *testing.T, p Patch) {
			require.NotNil(t, p.StaticColor)
			assert.Equal(t, RGB{255, 128, 0}, *p.StaticColor)
		}},
		{"color_on_dark=1, 2, 3", func(t *testing.T, p Patch) {
			require.NotNil(t, p.ColorOnDark)
			assert.Equal(t, RGB{1, 2, 3}, *p.ColorOnDark)
		}},
		{"show_in_capture=true", func(t *testing.T, p Patch) {
			require.NotNil(t, p.VisibleInScreenCapture)
			assert.True(t, *p.VisibleInScreenCapture)
		}},
		{"refresh_ms=16", func(t *testing.T, p Patch) {
			require.NotNil(t, p.RefreshIntervalMs)
			assert.Equal(t, 16, *p.RefreshIntervalMs)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParseAssignment(tt.in)
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestParseAssignmentErrors(t *testing.T) {
	_, err := ParseAssignment("frobnicate=1")
	assert.ErrorIs(t, err, ErrUnknownKey)

	for _, in := range []string{"size", "size=big", "shape=hexagon", "static_color=#12", "show_in_capture=maybe"} {
		_, err := ParseAssignment(in)
		assert.Error(t, err, in)
	}
}

func TestNextColorModeCycles(t *testing.T) {
	m := ModeAdaptive
	seen := []ColorMode{}
	for range 4 {
		m = NextColorMode(m)
		seen = append(seen, m)
	}
	assert.Equal(t, []ColorMode{ModeMaxContrast, ModeInvert, ModeStatic, ModeAdaptive}, seen)
}
