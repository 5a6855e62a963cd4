//go:build !windows

package tray

func encodeIcon(png []byte) []byte { return png }
