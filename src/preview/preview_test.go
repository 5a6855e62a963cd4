package preview

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosshair-overlay/src/settings"
)

func TestCheckerboard(t *testing.T) {
	img := Checkerboard(16, 4)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
	assert.Equal(t, checkerDark, img.RGBAAt(0, 0))
	assert.Equal(t, checkerLight, img.RGBAAt(4, 0))
	assert.Equal(t, checkerDark, img.RGBAAt(4, 4))
	assert.Equal(t, checkerLight, img.RGBAAt(3, 5))
}

func TestRenderDrawsCrossOnCentre(t *testing.T) {
	cfg := settings.Defaults()
	cfg.ColorMode = settings.ModeStatic
	cfg.StaticColor = settings.RGB{R: 255}

	bg := Checkerboard(21, 3)
	img := Render(cfg, bg, 1)
	require.Equal(t, bg.Bounds(), img.Bounds())

	red := color.RGBA{R: 255, A: 255}
	assert.Equal(t, red, img.RGBAAt(10, 10), "centre")
	assert.Equal(t, red, img.RGBAAt(10, 3), "top of vertical bar")
	assert.Equal(t, red, img.RGBAAt(17, 10), "right of horizontal bar")
	assert.Equal(t, bg.RGBAAt(0, 0), img.RGBAAt(0, 0), "corner untouched")
	assert.Equal(t, bg.RGBAAt(11, 11), img.RGBAAt(11, 11), "off-axis untouched")
	assert.Equal(t, bg.RGBAAt(10, 2), img.RGBAAt(10, 2), "beyond bar end")
}

func TestRenderAdaptiveSamplesBackground(t *testing.T) {
	cfg := settings.Defaults()
	white := image.NewRGBA(image.Rect(0, 0, 15, 15))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	img := Render(cfg, white, 1)
	want := color.RGBA{R: cfg.ColorOnLight.R, G: cfg.ColorOnLight.G, B: cfg.ColorOnLight.B, A: 255}
	assert.Equal(t, want, img.RGBAAt(7, 7))
}

func TestRenderNilBackgroundUsesCheckerboard(t *testing.T) {
	cfg := settings.Defaults()
	img := Render(cfg, nil, 2)
	assert.Equal(t, image.Rect(0, 0, 2*(cfg.Size+8), 2*(cfg.Size+8)), img.Bounds())
}

func TestRenderScalesNearestNeighbour(t *testing.T) {
	cfg := settings.Defaults()
	cfg.ColorMode = settings.ModeStatic
	small := Render(cfg, Checkerboard(15, 5), 1)
	big := Render(cfg, Checkerboard(15, 5), 4)

	require.Equal(t, image.Rect(0, 0, 60, 60), big.Bounds())
	for _, p := range []image.Point{{7, 7}, {0, 0}, {7, 1}, {12, 3}} {
		for dy := 0; dy < 4; dy++ {
			for dx := 0; dx < 4; dx++ {
				assert.Equal(t, small.RGBAAt(p.X, p.Y), big.RGBAAt(p.X*4+dx, p.Y*4+dy), "cell %v", p)
			}
		}
	}
}

func TestRenderBlendsPartialOpacity(t *testing.T) {
	cfg := settings.Defaults()
	cfg.ColorMode = settings.ModeStatic
	cfg.StaticColor = settings.RGB{R: 255, G: 255, B: 255}
	cfg.Opacity = 128

	black := image.NewRGBA(image.Rect(0, 0, 15, 15))
	for i := 3; i < len(black.Pix); i += 4 {
		black.Pix[i] = 255
	}
	img := Render(cfg, black, 1)
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, img.RGBAAt(7, 7))
}

func TestIcon(t *testing.T) {
	for _, size := range []int{3, 15, 61} {
		cfg := settings.Defaults()
		cfg.Size = size
		data, err := Icon(cfg)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, IconSize, IconSize), img.Bounds())
		_, _, _, a := img.At(0, 0).RGBA()
		assert.Zero(t, a, "size %d corner must be transparent", size)
	}
}

func TestICOHeader(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	ico := ICO(payload, 32)
	require.Len(t, ico, 6+16+len(payload))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[2:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[4:]))
	assert.Equal(t, byte(32), ico[6])
	assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(ico[14:]))
	assert.Equal(t, uint32(22), binary.LittleEndian.Uint32(ico[18:]))
	assert.Equal(t, payload, ico[22:])
}
