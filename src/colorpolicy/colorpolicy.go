// Package colorpolicy maps a sampled background colour to the crosshair
// colour drawn over it.
package colorpolicy

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"crosshair-overlay/src/settings"
)

// Func computes the foreground for one sampled background pixel. Policies
// are pure: the result depends only on the arguments.
type Func func(sample settings.RGB, cfg *settings.Config) settings.RGB

var policies = [...]Func{
	settings.ModeAdaptive:    Adaptive,
	settings.ModeMaxContrast: MaxContrast,
	settings.ModeInvert:      func(s settings.RGB, _ *settings.Config) settings.RGB { return Invert(s) },
	settings.ModeStatic:      Static,
}

// For returns the policy for mode. Values outside the enum get Adaptive.
func For(mode settings.ColorMode) Func {
	if mode < 0 || int(mode) >= len(policies) {
		return Adaptive
	}
	return policies[mode]
}

// Luma is the Rec. 601 perceptual brightness, truncated to an integer.
func Luma(c settings.RGB) int {
	return (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
}

// Adaptive picks ColorOnDark below the luma threshold, ColorOnLight at or
// above it.
func Adaptive(sample settings.RGB, cfg *settings.Config) settings.RGB {
	if Luma(sample) < cfg.LumaThreshold {
		return cfg.ColorOnDark
	}
	return cfg.ColorOnLight
}

// Invert is the channel-wise complement. The compositor also uses it as the
// fallback when a policy panics.
func Invert(sample settings.RGB) settings.RGB {
	return settings.RGB{R: 255 - sample.R, G: 255 - sample.G, B: 255 - sample.B}
}

// Static ignores the sample.
func Static(_ settings.RGB, cfg *settings.Config) settings.RGB {
	return cfg.StaticColor
}

// MaxContrast rotates the sample's hue by 180 degrees and forces full
// saturation and value, so the result is always a vivid colour on the far
// side of the hue wheel regardless of the background's lightness.
func MaxContrast(sample settings.RGB, _ *settings.Config) settings.RGB {
	c := colorful.Color{
		R: float64(sample.R) / 255,
		G: float64(sample.G) / 255,
		B: float64(sample.B) / 255,
	}
	h, _, _ := c.Hsv()
	out := colorful.Hsv(math.Mod(h+180, 360), 1, 1)
	return settings.RGB{R: truncate(out.R), G: truncate(out.G), B: truncate(out.B)}
}

func truncate(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v * 255)
	}
}
