package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crosshair-overlay/src/clipboard"
	"crosshair-overlay/src/config"
	"crosshair-overlay/src/engine"
	"crosshair-overlay/src/eventloop"
	"crosshair-overlay/src/hotkey"
	"crosshair-overlay/src/logutil"
	"crosshair-overlay/src/screenshot"
	"crosshair-overlay/src/settings"
	"crosshair-overlay/src/singleinstance"
	"crosshair-overlay/src/tray"
)

const appTitle = "Crosshair Overlay"

// errAlreadyRunning is returned when another resident answers PING.
var errAlreadyRunning = errors.New("crosshair overlay is already running")

type mainOptions struct {
	settingsPath string
	noAutostart  bool
	verbose      bool
}

func main() {
	// systray and the tray message pump must stay on the main thread.
	runtime.LockOSThread()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"crosshair-overlay"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts, runResident)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions, run func(mainOptions) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crosshair-overlay",
		Short:         "Show an adaptive crosshair at the centre of the screen",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*opts)
		},
	}
	cmd.Flags().StringVar(&opts.settingsPath, "settings", "", "Path to the crosshair settings file")
	cmd.Flags().BoolVar(&opts.noAutostart, "no-autostart", false, "Start with the crosshair hidden")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Human-readable debug logging")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to the double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"settings", "no-autostart", "verbose"} {
			flag := "-" + name
			switch {
			case arg == flag:
				normalized[i] = "-" + flag
			case strings.HasPrefix(arg, flag+"="):
				normalized[i] = "-" + arg
			}
		}
	}
	return normalized
}

// residentProber is the part of singleinstance.Client used before startup.
type residentProber interface {
	Detect(ctx context.Context) bool
}

func refuseIfResident(ctx context.Context, p residentProber) error {
	if p.Detect(ctx) {
		return errAlreadyRunning
	}
	return nil
}

func loadOptionsFor(opts mainOptions) config.LoadOptions {
	lo := config.LoadOptions{SettingsPathOverride: opts.settingsPath}
	if opts.noAutostart {
		off := false
		lo.AutostartOverride = &off
	}
	return lo
}

func runResident(opts mainOptions) error {
	cfg, err := config.LoadWithOptions(loadOptionsFor(opts))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logutil.Setup(logutil.Options{
		EnableFileLogging: cfg.EnableFileLogging,
		Level:             cfg.LogLevel,
		Verbose:           opts.verbose,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Before any window or metric query.
	enableDPIAwareness()

	endpoint := singleinstance.EndpointForPort(cfg.ControlPort)
	if err := refuseIfResident(context.Background(), singleinstance.NewClient(endpoint)); err != nil {
		logger.Info("resident detected, exiting", zap.Stringer("endpoint", endpoint))
		tray.ShowMessage(appTitle, "Crosshair Overlay is already running.", true)
		return err
	}

	logDisplays(logger)

	initial, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		logger.Warn("settings file unreadable, using defaults", zap.String("path", cfg.SettingsPath), zap.Error(err))
	}
	logger.Info("crosshair overlay initialized",
		zap.String("settings", cfg.SettingsPath),
		zap.String("toggle_hotkey", cfg.ToggleHotkey),
		zap.String("cycle_hotkey", cfg.CycleHotkey),
		zap.Bool("autostart", cfg.Autostart))

	var copyText func(string) error
	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable", zap.Error(err))
	} else {
		copyText = clipboard.Write
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(engine.NewChannel(initial), engine.Options{
		Logger:      logger,
		StopTimeout: cfg.StopTimeout,
	})

	var loop *eventloop.Loop
	trayIcon := tray.New(tray.Config{
		Title:   appTitle,
		Hotkeys: hotkeySummary(cfg),
		Post:    func(ev eventloop.Event) bool { return loop.Post(ev) },
		OnExit:  cancel,
		Logger:  logger,
	})
	loop = eventloop.New(eventloop.Options{
		Engine:       eng,
		SettingsPath: cfg.SettingsPath,
		Clipboard:    copyText,
		OnChange:     trayIcon.Update,
		Logger:       logger,
	})
	trayIcon.Update(false, eng.Snapshot())

	keys := hotkey.NewListener(logger)
	bindHotkeys(logger, keys, cfg, loop.Post)
	keys.Start()
	defer keys.Stop()

	srv := singleinstance.NewServer(endpoint, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to open control endpoint: %w", err)
	}
	defer srv.Close()

	if cfg.Autostart {
		loop.Post(eventloop.Event{Action: eventloop.ActionStart})
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		if err := loop.Run(ctx, srv.Requests(ctx)); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event loop stopped", zap.Error(err))
		}
		trayIcon.Quit()
	}()

	// Blocks until the tray quits, either from the loop or the platform.
	trayIcon.Run()
	cancel()

	select {
	case <-loop.Done():
	case <-time.After(cfg.StopTimeout + time.Second):
		logger.Warn("event loop did not exit in time")
	}
	logger.Info("crosshair overlay exiting")
	return nil
}

func bindHotkeys(logger *zap.Logger, keys *hotkey.Listener, cfg *config.Config, post func(eventloop.Event) bool) {
	bind := func(combo string, action eventloop.Action) {
		if combo == "" {
			return
		}
		err := keys.Register(combo, func() { post(eventloop.Event{Action: action}) })
		if err != nil {
			logger.Warn("invalid hotkey, ignoring", zap.String("combo", combo), zap.Stringer("action", action), zap.Error(err))
		}
	}
	bind(cfg.ToggleHotkey, eventloop.ActionToggle)
	bind(cfg.CycleHotkey, eventloop.ActionCycleMode)
}

func hotkeySummary(cfg *config.Config) string {
	var parts []string
	if cfg.ToggleHotkey != "" {
		parts = append(parts, cfg.ToggleHotkey+" toggle")
	}
	if cfg.CycleHotkey != "" {
		parts = append(parts, cfg.CycleHotkey+" cycle")
	}
	return strings.Join(parts, ", ")
}

func logDisplays(logger *zap.Logger) {
	primary, err := screenshot.PrimaryBounds()
	if err != nil {
		logger.Warn("no display detected", zap.Error(err))
		return
	}
	virtual, _ := screenshot.VirtualBounds()
	logger.Info("displays",
		zap.Stringer("primary", primary),
		zap.Stringer("virtual", virtual))
}
