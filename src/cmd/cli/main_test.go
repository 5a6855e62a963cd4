package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosshair-overlay/src/config"
	"crosshair-overlay/src/settings"
	"crosshair-overlay/src/singleinstance"
)

type fakeSender struct {
	lines []string
	reply func(line string) (string, error)
}

func (f *fakeSender) Send(_ context.Context, line string) (string, error) {
	f.lines = append(f.lines, line)
	if f.reply != nil {
		return f.reply(line)
	}
	return "ok " + strings.ToLower(line), nil
}

func testEnv(client *fakeSender) (cliEnv, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := cliEnv{
		stdout:    &stdout,
		stderr:    &stderr,
		newClient: func(*config.Config) sender { return client },
		capture: func(r image.Rectangle) (*image.RGBA, error) {
			img := image.NewRGBA(r)
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
				}
			}
			return img, nil
		},
		screen: func() (image.Rectangle, error) { return image.Rect(0, 0, 800, 600), nil },
	}
	return env, &stdout, &stderr
}

func TestControlCommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"toggle"}, singleinstance.CmdToggle},
		{[]string{"start"}, singleinstance.CmdStart},
		{[]string{"stop"}, singleinstance.CmdStop},
		{[]string{"status"}, singleinstance.CmdStatus},
		{[]string{"cycle"}, singleinstance.CmdCycle},
		{[]string{"reload"}, singleinstance.CmdReload},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			client := &fakeSender{}
			env, stdout, _ := testEnv(client)
			require.NoError(t, runWithArgs(append([]string{"crosshairctl"}, tt.args...), env))
			assert.Equal(t, []string{tt.want}, client.lines)
			assert.Equal(t, "ok "+strings.ToLower(tt.want)+"\n", stdout.String())
		})
	}
}

func TestControlCommandRejectsArgs(t *testing.T) {
	client := &fakeSender{}
	env, _, _ := testEnv(client)
	assert.Error(t, runWithArgs([]string{"crosshairctl", "toggle", "now"}, env))
	assert.Empty(t, client.lines)
}

func TestSetSendsEachAssignment(t *testing.T) {
	client := &fakeSender{}
	env, _, _ := testEnv(client)
	require.NoError(t, runWithArgs([]string{"crosshairctl", "set", "size=21", "color_mode=invert"}, env))
	assert.Equal(t, []string{"SET size=21", "SET color_mode=invert"}, client.lines)
}

func TestSetValidatesBeforeSending(t *testing.T) {
	client := &fakeSender{}
	env, _, _ := testEnv(client)
	err := runWithArgs([]string{"crosshairctl", "set", "size=21", "bogus=1"}, env)
	assert.ErrorIs(t, err, settings.ErrUnknownKey)
	assert.Empty(t, client.lines)
}

func TestNoResident(t *testing.T) {
	client := &fakeSender{reply: func(string) (string, error) {
		return "", fmt.Errorf("%w (test)", singleinstance.ErrNoResident)
	}}
	env, _, _ := testEnv(client)
	err := runWithArgs([]string{"crosshairctl", "status"}, env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, singleinstance.ErrNoResident))
	assert.Contains(t, err.Error(), "not running")
}

func TestRemoteErrorPassesThrough(t *testing.T) {
	client := &fakeSender{reply: func(string) (string, error) {
		return "", &singleinstance.RemoteError{Msg: "failed to start overlay"}
	}}
	env, stdout, _ := testEnv(client)
	err := runWithArgs([]string{"crosshairctl", "start"}, env)
	var remote *singleinstance.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Empty(t, stdout.String())
}

func TestDefaultsPrintsDocument(t *testing.T) {
	env, stdout, _ := testEnv(&fakeSender{})
	require.NoError(t, runWithArgs([]string{"crosshairctl", "defaults"}, env))

	cfg, err := settings.Decode(stdout.Bytes())
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), cfg)
}

func TestShowNormalizesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"size": 500, "shape": "dot"}`), 0o644))

	env, stdout, _ := testEnv(&fakeSender{})
	require.NoError(t, runWithArgs([]string{"crosshairctl", "show", "--settings", path}, env))

	cfg, err := settings.Decode(stdout.Bytes())
	require.NoError(t, err)
	assert.Equal(t, settings.MaxSize, cfg.Size)
	assert.Equal(t, settings.ShapeDot, cfg.Shape)
}

func TestPreviewWritesPNG(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "c.json")
	cfg := settings.Defaults()
	cfg.Size = 9
	require.NoError(t, settings.Save(settingsPath, cfg))
	out := filepath.Join(dir, "preview.png")

	env, _, stderr := testEnv(&fakeSender{})
	require.NoError(t, runWithArgs([]string{"crosshairctl", "preview", "--settings", settingsPath, "--out", out, "--scale", "2"}, env))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	// Checkerboard of Size+8, doubled.
	assert.Equal(t, image.Rect(0, 0, 34, 34), img.Bounds())
	assert.Contains(t, stderr.String(), "wrote "+out)
}

func TestPreviewFromScreenToStdout(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, settings.Save(settingsPath, settings.Defaults()))

	env, stdout, _ := testEnv(&fakeSender{})
	require.NoError(t, runWithArgs([]string{"crosshairctl", "preview", "--settings", settingsPath, "--out", "-", "--scale", "1", "--from-screen"}, env))

	img, err := png.Decode(stdout)
	require.NoError(t, err)
	side := settings.Defaults().Size + 8
	require.Equal(t, image.Rect(0, 0, side, side), img.Bounds())

	// Adaptive over white paints the centre with the light-background colour.
	r, g, b, _ := img.At(side/2, side/2).RGBA()
	light := settings.Defaults().ColorOnLight
	assert.Equal(t, []uint32{uint32(light.R), uint32(light.G), uint32(light.B)}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestPreviewRequiresOut(t *testing.T) {
	env, _, _ := testEnv(&fakeSender{})
	assert.Error(t, runWithArgs([]string{"crosshairctl", "preview"}, env))
}

func TestPreviewRejectsBadScale(t *testing.T) {
	env, _, _ := testEnv(&fakeSender{})
	err := runWithArgs([]string{"crosshairctl", "preview", "--out", "-", "--scale", "0"}, env)
	assert.ErrorContains(t, err, "scale")
}
