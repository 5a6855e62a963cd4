package engine

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"crosshair-overlay/src/compositor"
	"crosshair-overlay/src/overlay"
	"crosshair-overlay/src/settings"
)

// run is one Start..Stop cycle. Each run owns its stop signal so a slow
// previous loop can never be revived or stopped by a later one.
type run struct {
	className string
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}

	// Consecutive failed ticks, touched only by the loop goroutine.
	failures int
}

func newRun(className string) *run {
	return &run{className: className, stop: make(chan struct{}), done: make(chan struct{})}
}

func (r *run) requestStop() { r.stopOnce.Do(func() { close(r.stop) }) }

func (r *run) stopping() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// sleep waits d or until stop is requested, reporting false on stop.
func (r *run) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.stop:
		return false
	}
}

func (e *Engine) loop(r *run, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	surface, rs, err := e.setup(r)
	if err != nil {
		e.finish(r)
		ready <- err
		return
	}
	defer e.finish(r)
	defer e.teardown(r, surface)

	e.transition(r, StateStarting, StateRunning)
	ready <- nil

	for !r.stopping() {
		next, ok := e.tick(r, surface, rs)
		if !ok {
			return
		}
		rs = next
		if !r.sleep(rs.Interval) {
			return
		}
	}
}

// setup creates the surface from a fresh config snapshot. Any failure here,
// including a panic in the factory, is fatal to the run.
func (e *Engine) setup(r *run) (s overlay.Surface, rs RenderState, err error) {
	defer func() {
		if p := recover(); p != nil {
			if s != nil {
				_ = s.Destroy()
			}
			s, err = nil, fmt.Errorf("overlay setup panicked: %v", p)
		}
	}()

	screen, err := e.opts.Screen()
	if err != nil {
		return nil, rs, fmt.Errorf("failed to get display bounds: %w", err)
	}
	cfg, _ := e.ch.take()
	rs = NewRenderState(cfg, screen)

	s, err = e.opts.Surfaces(r.className, rs.Geometry)
	if err != nil {
		return nil, rs, fmt.Errorf("failed to create overlay surface: %w", err)
	}
	if err := s.SetCaptureVisibility(rs.VisibleInCapture); err != nil {
		e.log.Warn("failed to set capture visibility", zap.Error(err))
	}
	e.rebuilt(rs)
	return s, rs, nil
}

func (e *Engine) teardown(r *run, s overlay.Surface) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Error("overlay destroy panicked", zap.Any("panic", p))
		}
	}()
	if err := s.Destroy(); err != nil {
		e.log.Warn("failed to destroy overlay surface", zap.String("class", r.className), zap.Error(err))
	}
}

// tick runs one iteration. A panic anywhere inside is logged and ends the
// loop; the deferred teardown still destroys the surface.
func (e *Engine) tick(r *run, s overlay.Surface, rs RenderState) (next RenderState, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Error("render tick panicked, stopping loop", zap.Any("panic", p), zap.Stack("stack"))
			next, ok = rs, false
		}
	}()

	s.Drain()

	if cfg, dirty := e.ch.take(); dirty {
		rs = e.rebuild(cfg, rs)
		if err := s.Reposition(rs.Geometry); err != nil {
			e.log.Warn("failed to reposition overlay", zap.Error(err))
		}
		if err := s.SetCaptureVisibility(rs.VisibleInCapture); err != nil {
			e.log.Warn("failed to set capture visibility", zap.Error(err))
		}
	}

	e.paint(r, s, rs)
	return rs, true
}

// rebuild derives the state for cfg. The display bounds are re-read so a
// resolution change moves the crosshair; if they cannot be read the
// previous bounds are kept.
func (e *Engine) rebuild(cfg settings.Config, prev RenderState) RenderState {
	screen, err := e.opts.Screen()
	if err != nil {
		e.log.Warn("failed to get display bounds, keeping previous", zap.Error(err))
		screen = prev.Screen
	}
	rs := NewRenderState(cfg, screen)
	e.rebuilt(rs)
	return rs
}

func (e *Engine) rebuilt(rs RenderState) {
	e.log.Debug("render state rebuilt",
		zap.Stringer("shape", rs.Config.Shape),
		zap.Int("size", rs.Config.Size),
		zap.Stringer("mode", rs.Config.ColorMode),
		zap.Int("x", rs.Geometry.X), zap.Int("y", rs.Geometry.Y),
		zap.Duration("interval", rs.Interval))
	if e.opts.OnRebuild != nil {
		e.opts.OnRebuild(rs)
	}
}

// paint captures, composites and presents one frame. It skips the frame
// when another present has not returned yet.
func (e *Engine) paint(r *run, s overlay.Surface, rs RenderState) {
	if !e.painting.TryLock() {
		e.log.Debug("present in flight, skipping frame")
		return
	}
	defer e.painting.Unlock()

	src, err := e.opts.Capture(rs.Geometry.Rect())
	if err != nil {
		e.tickFailed(r, "capture", err)
		return
	}
	frame := compositor.Composite(src, rs.Mask, rs.Policy, &rs.Config, rs.Opacity)
	if err := s.Present(frame, rs.Geometry); err != nil {
		e.tickFailed(r, "present", err)
		return
	}
	if r.failures > 0 {
		e.log.Info("render loop recovered", zap.Int("failed_ticks", r.failures))
		r.failures = 0
	}
	if e.opts.OnPresent != nil {
		e.opts.OnPresent(frame)
	}
}

// tickFailed logs the first of a run of consecutive failures at warn level
// and the rest at debug, so a persistent fault cannot flood the log at the
// refresh rate.
func (e *Engine) tickFailed(r *run, step string, err error) {
	r.failures++
	if r.failures == 1 {
		e.log.Warn("render tick skipped", zap.String("step", step), zap.Error(err))
		return
	}
	e.log.Debug("render tick skipped", zap.String("step", step), zap.Int("consecutive", r.failures), zap.Error(err))
}
