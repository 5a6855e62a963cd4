// Package hotkey watches global key combinations through gohook.
package hotkey

import (
	"fmt"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// rawcodes maps normalized key names to Windows virtual key codes. Modifiers
// carry both their left and right codes.
var rawcodes = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"esc":       {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"insert":    {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pagedown":  {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

var aliases = map[string]string{
	"control": "ctrl",
	"win":     "cmd",
	"super":   "cmd",
	"return":  "enter",
	"escape":  "esc",
	"del":     "delete",
	"ins":     "insert",
	"pgup":    "pageup",
	"pgdn":    "pagedown",
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		rawcodes[string(c)] = []uint16{uint16(c - 'a' + 65)}
	}
	for c := '0'; c <= '9'; c++ {
		rawcodes[string(c)] = []uint16{uint16(c - '0' + 48)}
	}
	for n := 1; n <= 24; n++ {
		rawcodes[fmt.Sprintf("f%d", n)] = []uint16{uint16(111 + n)} // VK_F1 is 112
	}
}

func normalizeKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[name]; ok {
		return a
	}
	return name
}

// keyNameToRawcodes returns nil for names it does not know.
func keyNameToRawcodes(keyName string) []uint16 {
	return rawcodes[normalizeKey(keyName)]
}

// Parse converts a combination like "Ctrl+Alt+X" to normalized key names.
// Every key must be known.
func Parse(combo string) ([]string, error) {
	if strings.TrimSpace(combo) == "" {
		return nil, fmt.Errorf("empty hotkey")
	}
	var keys []string
	for _, part := range strings.Split(combo, "+") {
		key := normalizeKey(part)
		if _, ok := rawcodes[key]; !ok {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", combo, strings.TrimSpace(part))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

type binding struct {
	combo    string
	keys     []keyState
	callback func()
}

// Listener dispatches any number of combinations from the single process-wide
// gohook event stream.
type Listener struct {
	mu       sync.Mutex
	bindings []*binding
	log      *zap.Logger
	started  bool
}

func NewListener(log *zap.Logger) *Listener {
	if log == nil {
		log = zap.L()
	}
	return &Listener{log: log.Named("hotkey")}
}

// Register adds a combination. It may be called before or after Start.
func (l *Listener) Register(combo string, callback func()) error {
	keys, err := Parse(combo)
	if err != nil {
		return err
	}
	b := &binding{combo: combo, callback: callback}
	for _, k := range keys {
		b.keys = append(b.keys, keyState{name: k, rawcodes: rawcodes[k]})
	}

	l.mu.Lock()
	l.bindings = append(l.bindings, b)
	l.mu.Unlock()
	l.log.Info("hotkey registered", zap.String("combo", combo), zap.Strings("keys", keys))
	return nil
}

// Start begins consuming gohook events on a new goroutine.
func (l *Listener) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.log.Error("panic in hotkey goroutine", zap.Any("panic", r))
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			l.log.Error("gohook.Start() returned nil channel")
			return
		}
		for ev := range evChan {
			l.handle(ev)
		}
		l.log.Info("hotkey event channel closed")
	}()
}

// Stop ends the gohook event stream.
func (l *Listener) Stop() {
	l.mu.Lock()
	started := l.started
	l.started = false
	l.mu.Unlock()
	if started {
		gohook.End()
	}
}

// handle updates key state for one event and collects the callbacks of
// every combination it completes. Callbacks run after the lock is released.
func (l *Listener) handle(ev gohook.Event) {
	if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
		return
	}
	down := ev.Kind == gohook.KeyDown

	var fire []*binding
	l.mu.Lock()
	for _, b := range l.bindings {
		for i := range b.keys {
			if contains(b.keys[i].rawcodes, ev.Rawcode) {
				b.keys[i].pressed = down
			}
		}
		if down && allPressed(b.keys) {
			for i := range b.keys {
				b.keys[i].pressed = false
			}
			fire = append(fire, b)
		}
	}
	l.mu.Unlock()

	for _, b := range fire {
		l.log.Debug("hotkey combination detected", zap.String("combo", b.combo))
		if b.callback != nil {
			b.callback()
		}
	}
}

func contains(codes []uint16, code uint16) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func allPressed(keys []keyState) bool {
	for _, k := range keys {
		if !k.pressed {
			return false
		}
	}
	return len(keys) > 0
}
