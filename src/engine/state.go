package engine

import (
	"image"
	"time"

	"crosshair-overlay/src/colorpolicy"
	"crosshair-overlay/src/mask"
	"crosshair-overlay/src/overlay"
	"crosshair-overlay/src/settings"
)

// State is the lifecycle of the render loop.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// RenderState is everything one tick needs, derived from a single config
// snapshot. It is never modified after construction; a config change
// produces a new RenderState.
type RenderState struct {
	Config           settings.Config
	Screen           image.Rectangle
	Mask             *mask.Mask
	Geometry         overlay.Geometry
	Policy           colorpolicy.Func
	Opacity          uint8
	Interval         time.Duration
	VisibleInCapture bool
}

// NewRenderState derives a RenderState from cfg for a display with the
// given bounds.
func NewRenderState(cfg settings.Config, screen image.Rectangle) RenderState {
	cfg = cfg.Normalize()
	return RenderState{
		Config:           cfg,
		Screen:           screen,
		Mask:             mask.Build(cfg.Shape, cfg.Size, cfg.Thickness, cfg.Gap),
		Geometry:         overlay.CenteredGeometry(screen, cfg.Size, cfg.OffsetX, cfg.OffsetY),
		Policy:           colorpolicy.For(cfg.ColorMode),
		Opacity:          uint8(cfg.Opacity),
		Interval:         time.Duration(cfg.RefreshIntervalMs) * time.Millisecond,
		VisibleInCapture: cfg.VisibleInScreenCapture,
	}
}
