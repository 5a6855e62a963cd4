// Package eventloop routes hotkeys, tray clicks and control requests to the
// render engine and persists the resulting settings.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"crosshair-overlay/src/settings"
	"crosshair-overlay/src/singleinstance"
)

// Controller is the part of the render engine the loop drives.
type Controller interface {
	Start() error
	Stop()
	IsRunning() bool
	Update(settings.Patch)
	Replace(settings.Config)
	Snapshot() settings.Config
}

// Action is a host-level request coming from a hotkey, the tray or IPC.
type Action int

const (
	ActionToggle Action = iota
	ActionStart
	ActionStop
	ActionStatus
	ActionCycleMode
	ActionSetMode
	ActionReload
	ActionSet
	ActionCopySettings
	ActionQuit
)

var actionNames = [...]string{
	ActionToggle:       "toggle",
	ActionStart:        "start",
	ActionStop:         "stop",
	ActionStatus:       "status",
	ActionCycleMode:    "cycle",
	ActionSetMode:      "set-mode",
	ActionReload:       "reload",
	ActionSet:          "set",
	ActionCopySettings: "copy-settings",
	ActionQuit:         "quit",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Event is one action with its argument, if any.
type Event struct {
	Action Action
	Mode   settings.ColorMode // ActionSetMode
	Arg    string             // ActionSet, "key=value"
}

type Options struct {
	Engine       Controller
	SettingsPath string
	// Clipboard receives the settings document on ActionCopySettings.
	Clipboard func(text string) error
	// OnChange runs on the loop goroutine after every handled event.
	OnChange func(running bool, cfg settings.Config)
	Logger   *zap.Logger
}

// Loop serializes every control path onto one goroutine.
type Loop struct {
	opts    Options
	events  chan Event
	log     *zap.Logger
	stopped chan struct{}
}

var errQuit = errors.New("quit requested")

func New(opts Options) *Loop {
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &Loop{
		opts:    opts,
		events:  make(chan Event, 8),
		log:     opts.Logger.Named("eventloop"),
		stopped: make(chan struct{}),
	}
}

// Post queues ev without blocking. It reports false when the queue is full.
func (l *Loop) Post(ev Event) bool {
	select {
	case l.events <- ev:
		return true
	default:
		l.log.Warn("event queue full, dropping", zap.Stringer("action", ev.Action))
		return false
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.stopped }

// Run processes posted events and IPC requests until ctx ends or a quit
// action arrives. requests may be nil when no control endpoint is open.
func (l *Loop) Run(ctx context.Context, requests <-chan *singleinstance.Conn) error {
	defer close(l.stopped)
	defer l.opts.Engine.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			if _, err := l.dispatch(ev); errors.Is(err, errQuit) {
				return nil
			}
		case conn, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			l.handleConn(conn)
		}
	}
}

func (l *Loop) handleConn(conn *singleinstance.Conn) {
	req := conn.Request()
	ev, err := eventFor(req)
	if err == nil {
		var text string
		if text, err = l.dispatch(ev); err == nil {
			if rerr := conn.Respond(text); rerr != nil {
				l.log.Warn("failed to reply", zap.Stringer("request", req), zap.Error(rerr))
			}
			return
		}
	}
	if rerr := conn.RespondError(err.Error()); rerr != nil {
		l.log.Warn("failed to reply", zap.Stringer("request", req), zap.Error(rerr))
	}
}

func eventFor(req singleinstance.Request) (Event, error) {
	switch req.Command {
	case singleinstance.CmdToggle:
		return Event{Action: ActionToggle}, nil
	case singleinstance.CmdStart:
		return Event{Action: ActionStart}, nil
	case singleinstance.CmdStop:
		return Event{Action: ActionStop}, nil
	case singleinstance.CmdStatus:
		return Event{Action: ActionStatus}, nil
	case singleinstance.CmdCycle:
		return Event{Action: ActionCycleMode}, nil
	case singleinstance.CmdReload:
		return Event{Action: ActionReload}, nil
	case singleinstance.CmdSet:
		return Event{Action: ActionSet, Arg: req.Arg}, nil
	default:
		return Event{}, fmt.Errorf("unsupported command %q", req.Command)
	}
}

// dispatch handles one event and returns the text reported back to IPC
// clients.
func (l *Loop) dispatch(ev Event) (string, error) {
	l.log.Debug("handling", zap.Stringer("action", ev.Action))
	text, err := l.handle(ev)
	if err != nil && !errors.Is(err, errQuit) {
		l.log.Warn("action failed", zap.Stringer("action", ev.Action), zap.Error(err))
	}
	if l.opts.OnChange != nil && !errors.Is(err, errQuit) {
		l.opts.OnChange(l.opts.Engine.IsRunning(), l.opts.Engine.Snapshot())
	}
	return text, err
}

func (l *Loop) handle(ev Event) (string, error) {
	eng := l.opts.Engine
	switch ev.Action {
	case ActionToggle:
		if eng.IsRunning() {
			eng.Stop()
			return l.status(), nil
		}
		if err := eng.Start(); err != nil {
			return "", fmt.Errorf("failed to start overlay: %w", err)
		}
		return l.status(), nil

	case ActionStart:
		if err := eng.Start(); err != nil {
			return "", fmt.Errorf("failed to start overlay: %w", err)
		}
		return l.status(), nil

	case ActionStop:
		eng.Stop()
		return l.status(), nil

	case ActionStatus:
		return l.status(), nil

	case ActionCycleMode:
		next := settings.NextColorMode(eng.Snapshot().ColorMode)
		eng.Update(settings.Patch{ColorMode: &next})
		l.save()
		return next.String(), nil

	case ActionSetMode:
		mode := ev.Mode
		eng.Update(settings.Patch{ColorMode: &mode})
		l.save()
		return mode.String(), nil

	case ActionReload:
		if l.opts.SettingsPath == "" {
			return "", errors.New("no settings file configured")
		}
		cfg, err := settings.Load(l.opts.SettingsPath)
		if err != nil {
			return "", err
		}
		eng.Replace(cfg)
		return "reloaded " + l.opts.SettingsPath, nil

	case ActionSet:
		p, err := settings.ParseAssignment(ev.Arg)
		if err != nil {
			return "", err
		}
		eng.Update(p)
		l.save()
		return describe(eng.Snapshot()), nil

	case ActionCopySettings:
		if l.opts.Clipboard == nil {
			return "", errors.New("clipboard unavailable")
		}
		data, err := settings.Encode(eng.Snapshot())
		if err != nil {
			return "", err
		}
		if err := l.opts.Clipboard(string(data)); err != nil {
			return "", fmt.Errorf("failed to write clipboard: %w", err)
		}
		return "copied", nil

	case ActionQuit:
		return "", errQuit

	default:
		return "", fmt.Errorf("unknown action %d", ev.Action)
	}
}

func (l *Loop) status() string {
	state := "stopped"
	if l.opts.Engine.IsRunning() {
		state = "running"
	}
	return state + " " + describe(l.opts.Engine.Snapshot())
}

func describe(cfg settings.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "shape=%s size=%d thickness=%d gap=%d ", cfg.Shape, cfg.Size, cfg.Thickness, cfg.Gap)
	fmt.Fprintf(&b, "mode=%q opacity=%d refresh_ms=%d", cfg.ColorMode, cfg.Opacity, cfg.RefreshIntervalMs)
	return b.String()
}

// save persists the current config. Failures are logged; the in-memory
// change still applies.
func (l *Loop) save() {
	if l.opts.SettingsPath == "" {
		return
	}
	if err := settings.Save(l.opts.SettingsPath, l.opts.Engine.Snapshot()); err != nil {
		l.log.Warn("failed to save settings", zap.String("path", l.opts.SettingsPath), zap.Error(err))
	}
}
