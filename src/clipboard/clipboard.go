// Package clipboard copies the crosshair settings document to the system
// clipboard so it can be pasted into a bug report or another machine.
package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

// ErrNotInitialized is returned by Write before a successful Init.
var ErrNotInitialized = errors.New("clipboard not initialized")

var (
	mu    sync.Mutex
	ready bool
)

// Init prepares the platform clipboard. It is safe to call more than once.
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		return err
	}
	ready = true
	return nil
}

// Write replaces the clipboard with text. Writes are serialized.
func Write(text string) error {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return ErrNotInitialized
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Read returns the current text content, or nil when there is none.
func Read() ([]byte, error) {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return nil, ErrNotInitialized
	}
	return clipboard.Read(clipboard.FmtText), nil
}
