// Package preview draws the crosshair off-screen: for the CLI preview
// command and for the tray icon.
package preview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"

	"crosshair-overlay/src/colorpolicy"
	"crosshair-overlay/src/compositor"
	"crosshair-overlay/src/mask"
	"crosshair-overlay/src/overlay"
	"crosshair-overlay/src/settings"
)

var (
	checkerDark  = color.RGBA{R: 0x1f, G: 0x1f, B: 0x1f, A: 0xff}
	checkerLight = color.RGBA{R: 0x2a, G: 0x2a, B: 0x2a, A: 0xff}
)

// Checkerboard returns a size x size board of cell x cell squares, the
// backdrop the settings window used to show transparency.
func Checkerboard(size, cell int) *image.RGBA {
	if cell < 1 {
		cell = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := checkerDark
			if (x/cell+y/cell)%2 == 1 {
				c = checkerLight
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Render composites the crosshair for cfg onto the centre of background
// exactly as a render tick would sample it, then enlarges the result by
// scale with nearest-neighbour so individual cells stay visible. Offsets
// are ignored; the preview is always centred.
func Render(cfg settings.Config, background image.Image, scale int) *image.RGBA {
	cfg = cfg.Normalize()
	if background == nil {
		background = Checkerboard(cfg.Size+8, 4)
	}
	b := background.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(canvas, canvas.Bounds(), background, b.Min, xdraw.Src)

	g := overlay.CenteredGeometry(canvas.Bounds(), cfg.Size, 0, 0)
	src := canvas.SubImage(g.Rect()).(*image.RGBA)
	m := mask.Build(cfg.Shape, cfg.Size, cfg.Thickness, cfg.Gap)
	frame := compositor.Composite(src, m, colorpolicy.For(cfg.ColorMode), &cfg, uint8(cfg.Opacity))
	blend(canvas, frame, g)

	if scale <= 1 {
		return canvas
	}
	out := image.NewRGBA(image.Rect(0, 0, canvas.Bounds().Dx()*scale, canvas.Bounds().Dy()*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	return out
}

// blend applies a premultiplied frame over dst at g, the same source-over
// operation the layered window performs on the desktop.
func blend(dst *image.RGBA, f *compositor.Frame, g overlay.Geometry) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, gr, b, a := f.At(x, y)
			if a == 0 {
				continue
			}
			p := image.Pt(g.X+x, g.Y+y)
			if !p.In(dst.Rect) {
				continue
			}
			i := dst.PixOffset(p.X, p.Y)
			inv := 255 - int(a)
			dst.Pix[i] = r + uint8(int(dst.Pix[i])*inv/255)
			dst.Pix[i+1] = gr + uint8(int(dst.Pix[i+1])*inv/255)
			dst.Pix[i+2] = b + uint8(int(dst.Pix[i+2])*inv/255)
			dst.Pix[i+3] = a + uint8(int(dst.Pix[i+3])*inv/255)
		}
	}
}

func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return nil
}

// IconSize is the side of the tray icon in pixels.
const IconSize = 32

// Icon renders cfg on a transparent IconSize square and returns it as PNG.
func Icon(cfg settings.Config) ([]byte, error) {
	cfg = cfg.Normalize()
	// The adaptive policy would sample the transparent backdrop as black.
	if cfg.ColorMode != settings.ModeStatic {
		cfg.StaticColor = cfg.ColorOnDark
		cfg.ColorMode = settings.ModeStatic
	}
	cfg.Opacity = settings.MaxOpacity

	small := Render(cfg, image.NewRGBA(image.Rect(0, 0, cfg.Size, cfg.Size)), 1)
	icon := image.NewRGBA(image.Rect(0, 0, IconSize, IconSize))
	scaler := xdraw.Interpolator(xdraw.NearestNeighbor)
	if cfg.Size > IconSize {
		scaler = xdraw.CatmullRom
	}
	scaler.Scale(icon, icon.Bounds(), small, small.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, icon); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ICO wraps one PNG image in an ICO container, which Windows accepts for
// notification area icons.
func ICO(pngData []byte, size int) []byte {
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	var buf bytes.Buffer
	header := struct {
		Reserved, Type, Count uint16
	}{0, 1, 1}
	entry := struct {
		Width, Height, Colors, Reserved byte
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{dim, dim, 0, 0, 1, 32, uint32(len(pngData)), 6 + 16}
	_ = binary.Write(&buf, binary.LittleEndian, header)
	_ = binary.Write(&buf, binary.LittleEndian, entry)
	buf.Write(pngData)
	return buf.Bytes()
}
