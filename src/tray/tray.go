// Package tray shows the notification-area icon and menu of the resident
// process. Clicks become eventloop events; the loop reports state back
// through Update.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"crosshair-overlay/src/eventloop"
	"crosshair-overlay/src/preview"
	"crosshair-overlay/src/settings"
)

type Config struct {
	Title   string
	Hotkeys string // shown in the tooltip, e.g. "Ctrl+Alt+X"
	// Post delivers a menu action to the coordinator.
	Post   func(eventloop.Event) bool
	OnExit func()
	Logger *zap.Logger
}

type Tray struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	ready   bool
	pending *menuState
	lastIco string

	enable *systray.MenuItem
	modes  map[settings.ColorMode]*systray.MenuItem
}

// menuState is what the menu shows for one engine state.
type menuState struct {
	running bool
	mode    settings.ColorMode
	tooltip string
	icon    settings.Config
}

func New(cfg Config) *Tray {
	if cfg.Title == "" {
		cfg.Title = "Crosshair Overlay"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	return &Tray{cfg: cfg, log: cfg.Logger.Named("tray")}
}

// Run blocks in the platform tray loop until Quit. Call it from the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) Quit() {
	systray.Quit()
}

// Update refreshes the checkbox, the mode radio items, the tooltip and the
// icon. Calls before the tray is ready are kept and applied on ready.
func (t *Tray) Update(running bool, cfg settings.Config) {
	st := stateFor(t.cfg.Title, t.cfg.Hotkeys, running, cfg)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		t.pending = &st
		return
	}
	t.apply(st)
}

func (t *Tray) onReady() {
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Title)

	enable := systray.AddMenuItemCheckbox("Enabled", "Show or hide the crosshair", false)
	systray.AddSeparator()
	modeMenu := systray.AddMenuItem("Colour mode", "How the crosshair colour is chosen")
	modes := make(map[settings.ColorMode]*systray.MenuItem)
	for _, m := range settings.ColorModes() {
		modes[m] = modeMenu.AddSubMenuItemCheckbox(m.String(), "", false)
	}
	cycle := systray.AddMenuItem("Next colour mode", "Cycle to the next colour mode")
	systray.AddSeparator()
	reload := systray.AddMenuItem("Reload settings", "Re-read the settings file")
	copySettings := systray.AddMenuItem("Copy settings", "Copy the settings document to the clipboard")
	systray.AddSeparator()
	about := systray.AddMenuItem("About", "Show hotkeys")
	quit := systray.AddMenuItem("Quit", "Quit the application")

	t.mu.Lock()
	t.enable, t.modes = enable, modes
	t.ready = true
	if t.pending != nil {
		t.apply(*t.pending)
		t.pending = nil
	}
	t.mu.Unlock()

	for m, item := range modes {
		go func(m settings.ColorMode, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.post(eventloop.Event{Action: eventloop.ActionSetMode, Mode: m})
			}
		}(m, item)
	}

	go func() {
		for {
			select {
			case <-enable.ClickedCh:
				t.post(eventloop.Event{Action: eventloop.ActionToggle})
			case <-cycle.ClickedCh:
				t.post(eventloop.Event{Action: eventloop.ActionCycleMode})
			case <-reload.ClickedCh:
				t.post(eventloop.Event{Action: eventloop.ActionReload})
			case <-copySettings.ClickedCh:
				t.post(eventloop.Event{Action: eventloop.ActionCopySettings})
			case <-about.ClickedCh:
				// MessageBox blocks; keep the menu responsive.
				go ShowMessage(t.cfg.Title, aboutText(t.cfg.Hotkeys), false)
			case <-quit.ClickedCh:
				t.post(eventloop.Event{Action: eventloop.ActionQuit})
				return
			}
		}
	}()
	t.log.Debug("tray ready")
}

func (t *Tray) onExit() {
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}

func (t *Tray) post(ev eventloop.Event) {
	if t.cfg.Post == nil || !t.cfg.Post(ev) {
		t.log.Warn("menu action dropped", zap.Stringer("action", ev.Action))
	}
}

// apply must be called with t.mu held.
func (t *Tray) apply(st menuState) {
	if st.running {
		t.enable.Check()
	} else {
		t.enable.Uncheck()
	}
	for m, item := range t.modes {
		if m == st.mode {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	systray.SetTooltip(st.tooltip)

	icon, err := iconBytes(st.icon)
	if err != nil {
		t.log.Warn("failed to render tray icon", zap.Error(err))
		return
	}
	if key := string(icon); key != t.lastIco {
		systray.SetIcon(icon)
		t.lastIco = key
	}
}

func stateFor(title, hotkeys string, running bool, cfg settings.Config) menuState {
	state := "off"
	if running {
		state = "on"
	}
	tooltip := fmt.Sprintf("%s (%s) - %s", title, state, cfg.ColorMode)
	if hotkeys != "" {
		tooltip += " - " + hotkeys
	}
	return menuState{running: running, mode: cfg.ColorMode, tooltip: tooltip, icon: cfg}
}

func aboutText(hotkeys string) string {
	if hotkeys == "" {
		return "Adaptive crosshair overlay."
	}
	return "Adaptive crosshair overlay.\n\nHotkeys: " + hotkeys
}

// iconBytes renders the crosshair as the tray expects it on this platform.
func iconBytes(cfg settings.Config) ([]byte, error) {
	png, err := preview.Icon(cfg)
	if err != nil {
		return nil, err
	}
	return encodeIcon(png), nil
}
