//go:build windows

package tray

import "crosshair-overlay/src/preview"

// The Windows tray only loads ICO data.
func encodeIcon(png []byte) []byte { return preview.ICO(png, preview.IconSize) }
