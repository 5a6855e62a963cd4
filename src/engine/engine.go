// Package engine runs the crosshair render loop: one goroutine, locked to
// its OS thread, that owns the overlay surface and repaints it from the
// pixels beneath every tick.
package engine

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"crosshair-overlay/src/compositor"
	"crosshair-overlay/src/overlay"
	"crosshair-overlay/src/screenshot"
	"crosshair-overlay/src/settings"
)

// ErrStartTimeout is returned by Start when the loop does not report its
// surface within Options.StartTimeout.
var ErrStartTimeout = errors.New("render loop did not start in time")

const (
	DefaultStopTimeout  = 3 * time.Second
	DefaultStartTimeout = 5 * time.Second
	classNamePrefix     = "CrosshairOverlay_"
)

// Options configures an Engine. Zero values select the real platform
// implementations.
type Options struct {
	Surfaces overlay.Factory
	Capture  func(image.Rectangle) (*image.RGBA, error)
	Screen   func() (image.Rectangle, error)
	Logger   *zap.Logger

	StopTimeout  time.Duration
	StartTimeout time.Duration

	// Called from the render goroutine after every rebuild and after every
	// successful present.
	OnRebuild func(RenderState)
	OnPresent func(*compositor.Frame)
}

// Engine is safe for concurrent use by the host.
type Engine struct {
	ch   *Channel
	opts Options
	log  *zap.Logger

	mu    sync.Mutex
	state State
	cur   *run
	seq   int

	painting sync.Mutex
}

func New(ch *Channel, opts Options) *Engine {
	if ch == nil {
		ch = NewChannel(settings.Defaults())
	}
	if opts.Surfaces == nil {
		opts.Surfaces = overlay.New
	}
	if opts.Capture == nil {
		opts.Capture = screenshot.CaptureRegion
	}
	if opts.Screen == nil {
		opts.Screen = screenshot.PrimaryBounds
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = DefaultStartTimeout
	}
	return &Engine{ch: ch, opts: opts, log: opts.Logger.Named("engine")}
}

// Start launches the render loop and waits until its surface exists. It
// does nothing when the loop is already starting or running. A surface
// creation failure is returned and leaves the engine stopped.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state == StateRunning || e.state == StateStarting {
		e.mu.Unlock()
		return nil
	}
	if e.cur != nil {
		// A previous loop overran its stop timeout; it keeps its own class
		// name and cleans up on its own.
		e.log.Warn("starting while previous render loop is still stopping", zap.String("class", e.cur.className))
	}
	e.seq++
	r := newRun(fmt.Sprintf("%s%d", classNamePrefix, e.seq))
	e.cur = r
	e.state = StateStarting
	e.mu.Unlock()

	ready := make(chan error, 1)
	go e.loop(r, ready)

	timer := time.NewTimer(e.opts.StartTimeout)
	defer timer.Stop()
	select {
	case err := <-ready:
		if err != nil {
			e.log.Error("render loop failed to start", zap.Error(err))
			return err
		}
		e.log.Info("render loop started", zap.String("class", r.className))
		return nil
	case <-timer.C:
		r.requestStop()
		e.finish(r)
		return ErrStartTimeout
	}
}

// Stop asks the loop to exit and waits up to StopTimeout for it. It does
// nothing when the loop is not running. An overrun is logged; the loop
// still releases its surface when it eventually exits.
func (e *Engine) Stop() {
	e.mu.Lock()
	r := e.cur
	if r == nil || (e.state != StateRunning && e.state != StateStarting) {
		e.mu.Unlock()
		return
	}
	e.state = StateStopping
	e.mu.Unlock()

	r.requestStop()
	timer := time.NewTimer(e.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
		e.log.Info("render loop stopped", zap.String("class", r.className))
	case <-timer.C:
		e.log.Warn("render loop did not stop in time", zap.String("class", r.className),
			zap.Duration("timeout", e.opts.StopTimeout))
	}
}

// Toggle stops a running loop or starts a stopped one and reports whether
// the loop is running afterwards.
func (e *Engine) Toggle() (bool, error) {
	if e.IsRunning() {
		e.Stop()
		return false, nil
	}
	err := e.Start()
	return e.IsRunning(), err
}

func (e *Engine) IsRunning() bool {
	return e.State() == StateRunning
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Update merges p into the shared config. The loop picks it up at its next
// tick boundary.
func (e *Engine) Update(p settings.Patch) { e.ch.Update(p) }

// Replace swaps the whole shared config.
func (e *Engine) Replace(cfg settings.Config) { e.ch.Replace(cfg) }

func (e *Engine) Snapshot() settings.Config { return e.ch.Snapshot() }

func (e *Engine) Channel() *Channel { return e.ch }

// transition moves r from one state to another if r is still the current
// run and the engine is in from.
func (e *Engine) transition(r *run, from, to State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur != r || e.state != from {
		return false
	}
	e.state = to
	return true
}

// finish marks the engine stopped if r is still the current run.
func (e *Engine) finish(r *run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == r {
		e.cur = nil
		e.state = StateStopped
	}
}
