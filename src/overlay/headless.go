package overlay

import (
	"errors"
	"sync"

	"crosshair-overlay/src/compositor"
)

// HeadlessState is what a Headless surface has been asked to do so far.
type HeadlessState struct {
	ClassName string
	Geometry  Geometry
	Visible   bool
	Last      *compositor.Frame
	Presents  int
	Drains    int
	Destroyed bool
}

// Headless is an in-memory Surface. It records what the render loop asked
// of it and can be told to fail, which makes it the surface of choice for
// tests and off-screen previews.
type Headless struct {
	mu    sync.Mutex
	state HeadlessState

	presentErr    error
	repositionErr error
	affinityErr   error
}

var errHeadlessDestroyed = errors.New("headless surface destroyed")

// NewHeadless returns an empty Headless surface.
func NewHeadless(className string, g Geometry) *Headless {
	return &Headless{state: HeadlessState{ClassName: className, Geometry: g}}
}

// HeadlessFactory adapts NewHeadless to Factory and hands every created
// surface to created, if set.
func HeadlessFactory(created func(*Headless)) Factory {
	return func(className string, g Geometry) (Surface, error) {
		h := NewHeadless(className, g)
		if created != nil {
			created(h)
		}
		return h, nil
	}
}

func (h *Headless) Drain() {
	h.mu.Lock()
	h.state.Drains++
	h.mu.Unlock()
}

func (h *Headless) Reposition(g Geometry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Destroyed {
		return errHeadlessDestroyed
	}
	if h.repositionErr != nil {
		return h.repositionErr
	}
	h.state.Geometry = g
	return nil
}

func (h *Headless) SetCaptureVisibility(visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Destroyed {
		return errHeadlessDestroyed
	}
	if h.affinityErr != nil {
		return h.affinityErr
	}
	h.state.Visible = visible
	return nil
}

func (h *Headless) Present(f *compositor.Frame, g Geometry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Destroyed {
		return errHeadlessDestroyed
	}
	if h.presentErr != nil {
		return h.presentErr
	}
	h.state.Last = f
	h.state.Geometry = g
	h.state.Presents++
	return nil
}

func (h *Headless) Destroy() error {
	h.mu.Lock()
	h.state.Destroyed = true
	h.mu.Unlock()
	return nil
}

// State returns a copy of the recorded state.
func (h *Headless) State() HeadlessState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// FailPresent makes every following Present return err; nil clears it.
func (h *Headless) FailPresent(err error) {
	h.mu.Lock()
	h.presentErr = err
	h.mu.Unlock()
}

// FailReposition makes every following Reposition return err.
func (h *Headless) FailReposition(err error) {
	h.mu.Lock()
	h.repositionErr = err
	h.mu.Unlock()
}

// FailAffinity makes every following SetCaptureVisibility return err.
func (h *Headless) FailAffinity(err error) {
	h.mu.Lock()
	h.affinityErr = err
	h.mu.Unlock()
}
