//go:build windows

package overlay

import (
	"os"
	"runtime"
	"testing"

	"crosshair-overlay/src/compositor"
)

func TestWindowSurfaceLifecycle(t *testing.T) {
	if os.Getenv("CROSSHAIR_INTERACTIVE_TESTS") != "1" {
		t.Skip("set CROSSHAIR_INTERACTIVE_TESTS=1 to create a real overlay window")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	g := Geometry{X: 100, Y: 100, Size: 15}
	for i := 0; i < 2; i++ {
		s, err := New("CrosshairOverlay_test", g)
		if err != nil {
			t.Fatalf("New failed on run %d: %v", i, err)
		}
		s.Drain()
		if err := s.SetCaptureVisibility(false); err != nil {
			t.Logf("SetCaptureVisibility: %v (older Windows builds lack WDA_EXCLUDEFROMCAPTURE)", err)
		}
		if err := s.Reposition(Geometry{X: 120, Y: 120, Size: 21}); err != nil {
			t.Errorf("Reposition: %v", err)
		}
		if err := s.Present(compositor.NewFrame(21, 21), Geometry{X: 120, Y: 120, Size: 21}); err != nil {
			t.Errorf("Present: %v", err)
		}
		if err := s.Destroy(); err != nil {
			t.Errorf("Destroy: %v", err)
		}
		if err := s.Destroy(); err != nil {
			t.Errorf("second Destroy should be a no-op, got %v", err)
		}
	}
}
