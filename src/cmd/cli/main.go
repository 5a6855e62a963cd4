// Command crosshairctl controls a running crosshair overlay and renders
// previews of a settings document.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crosshair-overlay/src/config"
	"crosshair-overlay/src/logutil"
	"crosshair-overlay/src/preview"
	"crosshair-overlay/src/screenshot"
	"crosshair-overlay/src/settings"
	"crosshair-overlay/src/singleinstance"
)

const requestTimeout = 5 * time.Second

type cliOptions struct {
	verbose      bool
	settingsPath string

	out        string
	scale      int
	fromScreen bool
}

// sender is the part of singleinstance.Client the control commands use.
type sender interface {
	Send(ctx context.Context, line string) (string, error)
}

// cliEnv carries the process-level dependencies so tests can swap them.
type cliEnv struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient func(*config.Config) sender
	capture   func(image.Rectangle) (*image.RGBA, error)
	screen    func() (image.Rectangle, error)
}

func defaultEnv() cliEnv {
	return cliEnv{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newClient: func(cfg *config.Config) sender {
			return singleinstance.NewClient(singleinstance.EndpointForPort(cfg.ControlPort))
		},
		capture: screenshot.CaptureRegion,
		screen:  screenshot.PrimaryBounds,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(os.Args, defaultEnv())
}

func runWithArgs(args []string, env cliEnv) error {
	if len(args) == 0 {
		args = []string{"crosshairctl"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts, env)
	cmd.SetArgs(args[1:])
	cmd.SetOut(env.stdout)
	cmd.SetErr(env.stderr)
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, env cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crosshairctl",
		Short:         "Control the crosshair overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.verbose, env.stderr)
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "Path to the crosshair settings file")

	for _, c := range []struct {
		use, short, command string
	}{
		{"toggle", "Show or hide the crosshair", singleinstance.CmdToggle},
		{"start", "Show the crosshair", singleinstance.CmdStart},
		{"stop", "Hide the crosshair", singleinstance.CmdStop},
		{"status", "Print the resident state", singleinstance.CmdStatus},
		{"cycle", "Switch to the next colour mode", singleinstance.CmdCycle},
		{"reload", "Re-read the settings file", singleinstance.CmdReload},
	} {
		command := c.command
		cmd.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return sendCommand(cmd, *opts, env, command)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Change settings on the running overlay",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate everything before touching the resident.
			for _, a := range args {
				if _, err := settings.ParseAssignment(a); err != nil {
					return err
				}
			}
			for _, a := range args {
				if err := sendCommand(cmd, *opts, env, singleinstance.CmdSet+" "+a); err != nil {
					return err
				}
			}
			return nil
		},
	})

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the crosshair to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(*opts, env)
		},
	}
	previewCmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output PNG path ('-' for stdout)")
	previewCmd.Flags().IntVar(&opts.scale, "scale", 8, "Integer zoom factor")
	previewCmd.Flags().BoolVar(&opts.fromScreen, "from-screen", false, "Composite over the pixels at the screen centre")
	_ = previewCmd.MarkFlagRequired("out")
	cmd.AddCommand(previewCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: "Print the default settings document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printDocument(env.stdout, settings.Defaults())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings file as the overlay will read it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadSettings(*opts)
			if err != nil {
				return err
			}
			return printDocument(env.stdout, cfg)
		},
	})

	return cmd
}

func setupLogging(verbose bool, stderr io.Writer) error {
	if !verbose {
		zap.ReplaceGlobals(zap.NewNop())
		return nil
	}
	_, err := logutil.Setup(logutil.Options{Verbose: true, Console: stderr})
	return err
}

func sendCommand(cmd *cobra.Command, opts cliOptions, env cliEnv, line string) error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{SettingsPathOverride: opts.settingsPath})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	zap.L().Debug("sending", zap.String("command", line))
	reply, err := env.newClient(cfg).Send(ctx, line)
	if err != nil {
		if errors.Is(err, singleinstance.ErrNoResident) {
			return fmt.Errorf("crosshair overlay is not running: %w", err)
		}
		return err
	}
	fmt.Fprintln(env.stdout, reply)
	return nil
}

// loadSettings reads --settings, falling back to the configured settings
// file.
func loadSettings(opts cliOptions) (settings.Config, string, error) {
	path := opts.settingsPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return settings.Config{}, "", fmt.Errorf("failed to load configuration: %w", err)
		}
		path = cfg.SettingsPath
	}
	s, err := settings.Load(path)
	if err != nil {
		return settings.Config{}, path, err
	}
	return s, path, nil
}

func runPreview(opts cliOptions, env cliEnv) error {
	if opts.scale < 1 {
		return fmt.Errorf("scale must be at least 1, got %d", opts.scale)
	}
	cfg, path, err := loadSettings(opts)
	if err != nil {
		return err
	}
	zap.L().Debug("rendering preview", zap.String("settings", path), zap.Int("scale", opts.scale))

	var background image.Image
	if opts.fromScreen {
		background, err = screenBackground(env, cfg)
		if err != nil {
			return err
		}
	}
	img := preview.Render(cfg, background, opts.scale)

	if opts.out == "-" {
		return preview.EncodePNG(env.stdout, img)
	}
	var buf bytes.Buffer
	if err := preview.EncodePNG(&buf, img); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}
	fmt.Fprintf(env.stderr, "wrote %s (%dx%d)\n", opts.out, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

// screenBackground captures a square around where the overlay would sit,
// with a margin so the crosshair is framed.
func screenBackground(env cliEnv, cfg settings.Config) (image.Image, error) {
	screen, err := env.screen()
	if err != nil {
		return nil, fmt.Errorf("failed to get display bounds: %w", err)
	}
	side := cfg.Size + 8
	c := image.Pt(screen.Min.X+screen.Dx()/2+cfg.OffsetX, screen.Min.Y+screen.Dy()/2+cfg.OffsetY)
	rect := image.Rect(c.X-side/2, c.Y-side/2, c.X-side/2+side, c.Y-side/2+side)
	src, err := env.capture(rect)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return src, nil
}

func printDocument(w io.Writer, cfg settings.Config) error {
	data, err := settings.Encode(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimSpace(string(data)))
	return err
}
