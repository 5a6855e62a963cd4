// Package screenshot reads screen pixels for the render loop and for
// previews taken from the live desktop.
package screenshot

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ErrNoDisplay is returned when the OS reports no active display.
var ErrNoDisplay = errors.New("no active displays found")

// CaptureRegion copies rect, in virtual-screen coordinates, into a new
// image whose bounds equal rect. All device contexts and bitmaps the
// capture needs are released before it returns.
func CaptureRegion(rect image.Rectangle) (*image.RGBA, error) {
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", rect.Dx(), rect.Dy())
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}

// PrimaryBounds returns the bounds of display 0.
func PrimaryBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	return screenshot.GetDisplayBounds(0), nil
}

// VirtualBounds is the union of every active display.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}
