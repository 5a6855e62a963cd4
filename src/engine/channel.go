package engine

import (
	"sync"

	"crosshair-overlay/src/settings"
)

// Channel is the only shared mutable state between the host and the render
// loop. Writers merge or replace the config and mark it dirty; the loop
// takes a snapshot and clears the flag in one step, so it never sees half
// of an update.
type Channel struct {
	mu    sync.Mutex
	cfg   settings.Config
	dirty bool
}

// NewChannel starts dirty so the first tick builds its state from cfg.
func NewChannel(cfg settings.Config) *Channel {
	return &Channel{cfg: cfg.Normalize(), dirty: true}
}

// Update merges the fields set in p.
func (c *Channel) Update(p settings.Patch) {
	c.mu.Lock()
	c.cfg = c.cfg.Apply(p)
	c.dirty = true
	c.mu.Unlock()
}

// Replace swaps in a whole config.
func (c *Channel) Replace(cfg settings.Config) {
	cfg = cfg.Normalize()
	c.mu.Lock()
	c.cfg = cfg
	c.dirty = true
	c.mu.Unlock()
}

// Snapshot returns a copy of the current config.
func (c *Channel) Snapshot() settings.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Dirty reports whether a change is waiting for the render loop.
func (c *Channel) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *Channel) take() (settings.Config, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dirty := c.dirty
	c.dirty = false
	return c.cfg, dirty
}
