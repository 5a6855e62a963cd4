//go:build windows

package overlay

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"crosshair-overlay/src/compositor"
)

const (
	htTransparent      = ^uintptr(0) // HTTRANSPARENT (-1)
	maNoActivateAndEat = 4
	wsExNoActivate     = 0x08000000
	swpNoSendChanging  = 0x0400
	ulwAlpha           = 0x00000002
	acSrcOver          = 0x00
	acSrcAlpha         = 0x01

	wdaNone               = 0x00000000
	wdaExcludeFromCapture = 0x00000011

	exStyle   = win.WS_EX_TOPMOST | win.WS_EX_TRANSPARENT | win.WS_EX_LAYERED | win.WS_EX_TOOLWINDOW | wsExNoActivate
	style     = win.WS_POPUP | win.WS_VISIBLE
	moveFlags = win.SWP_NOACTIVATE | win.SWP_NOZORDER | win.SWP_NOREDRAW | swpNoSendChanging
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procUpdateLayeredWindow      = user32.NewProc("UpdateLayeredWindow")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
)

type blendFunction struct {
	BlendOp             byte
	BlendFlags          byte
	SourceConstantAlpha byte
	AlphaFormat         byte
}

// syscall.NewCallback slots are never freed, so every surface shares one.
var (
	wndProcOnce sync.Once
	wndProcPtr  uintptr
)

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_NCHITTEST:
		return htTransparent
	case win.WM_MOUSEACTIVATE:
		return maNoActivateAndEat
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

type windowSurface struct {
	hwnd      win.HWND
	className *uint16
	instance  win.HINSTANCE
	log       *zap.Logger
	destroyed bool
}

// New registers className (replacing a stale registration left by an
// earlier run) and creates the layered popup at g.
func New(className string, g Geometry) (Surface, error) {
	log := zap.L().Named("overlay")
	wndProcOnce.Do(func() { wndProcPtr = syscall.NewCallback(overlayWndProc) })

	name, err := syscall.UTF16PtrFromString(className)
	if err != nil {
		return nil, fmt.Errorf("invalid class name %q: %w", className, err)
	}
	instance := win.GetModuleHandle(nil)

	win.UnregisterClass(name)
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   wndProcPtr,
		HInstance:     instance,
		LpszClassName: name,
	}
	if atom := win.RegisterClassEx(&wc); atom == 0 {
		return nil, fmt.Errorf("failed to register window class %s: %w", className, windows.GetLastError())
	}

	hwnd := win.CreateWindowEx(exStyle, name, name, style,
		int32(g.X), int32(g.Y), int32(g.Size), int32(g.Size),
		0, 0, instance, nil)
	if hwnd == 0 {
		err := windows.GetLastError()
		win.UnregisterClass(name)
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}
	log.Debug("window created", zap.String("class", className), zap.Uintptr("hwnd", uintptr(hwnd)),
		zap.Int("x", g.X), zap.Int("y", g.Y), zap.Int("size", g.Size))

	return &windowSurface{hwnd: hwnd, className: name, instance: instance, log: log}, nil
}

func (s *windowSurface) Drain() {
	var msg win.MSG
	for win.PeekMessage(&msg, 0, 0, 0, win.PM_REMOVE) {
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func (s *windowSurface) Reposition(g Geometry) error {
	if s.destroyed {
		return errors.New("surface destroyed")
	}
	if !win.SetWindowPos(s.hwnd, 0, int32(g.X), int32(g.Y), int32(g.Size), int32(g.Size), moveFlags) {
		return fmt.Errorf("SetWindowPos: %w", windows.GetLastError())
	}
	return nil
}

func (s *windowSurface) SetCaptureVisibility(visible bool) error {
	if s.destroyed {
		return errors.New("surface destroyed")
	}
	affinity := uintptr(wdaExcludeFromCapture)
	if visible {
		affinity = wdaNone
	}
	if r, _, err := procSetWindowDisplayAffinity.Call(uintptr(s.hwnd), affinity); r == 0 {
		return fmt.Errorf("SetWindowDisplayAffinity: %w", err)
	}
	return nil
}

func (s *windowSurface) Present(f *compositor.Frame, g Geometry) error {
	if s.destroyed {
		return errors.New("surface destroyed")
	}
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return errors.New("empty frame")
	}

	scope := &gdiScope{}
	defer scope.Release()

	screenDC := win.GetDC(0)
	if screenDC == 0 {
		return errors.New("GetDC failed")
	}
	scope.add(func() { win.ReleaseDC(0, screenDC) })

	memDC := win.CreateCompatibleDC(screenDC)
	if memDC == 0 {
		return errors.New("CreateCompatibleDC failed")
	}
	scope.add(func() { win.DeleteDC(memDC) })

	header := win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(f.Width),
		BiHeight:      -int32(f.Height), // Negative for top-down
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}
	var bits unsafe.Pointer
	bitmap := win.CreateDIBSection(memDC, &header, win.DIB_RGB_COLORS, &bits, 0, 0)
	if bitmap == 0 || bits == nil {
		return errors.New("CreateDIBSection failed")
	}
	scope.add(func() { win.DeleteObject(win.HGDIOBJ(bitmap)) })

	previous := win.SelectObject(memDC, win.HGDIOBJ(bitmap))
	scope.add(func() { win.SelectObject(memDC, previous) })

	// 32bpp DIB rows are already DWORD aligned.
	copy(unsafe.Slice((*byte)(bits), f.Width*4*f.Height), f.Pix)

	dst := win.POINT{X: int32(g.X), Y: int32(g.Y)}
	size := win.SIZE{CX: int32(f.Width), CY: int32(f.Height)}
	src := win.POINT{}
	blend := blendFunction{BlendOp: acSrcOver, SourceConstantAlpha: 255, AlphaFormat: acSrcAlpha}
	r, _, err := procUpdateLayeredWindow.Call(
		uintptr(s.hwnd),
		uintptr(screenDC),
		uintptr(unsafe.Pointer(&dst)),
		uintptr(unsafe.Pointer(&size)),
		uintptr(memDC),
		uintptr(unsafe.Pointer(&src)),
		0,
		uintptr(unsafe.Pointer(&blend)),
		ulwAlpha,
	)
	if r == 0 {
		return fmt.Errorf("UpdateLayeredWindow: %w", err)
	}
	return nil
}

func (s *windowSurface) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true

	var errs []error
	if !win.DestroyWindow(s.hwnd) {
		errs = append(errs, fmt.Errorf("DestroyWindow: %w", windows.GetLastError()))
	}
	// Drop any WM_DESTROY/WM_NCDESTROY still queued for this thread.
	s.Drain()
	if !win.UnregisterClass(s.className) {
		errs = append(errs, fmt.Errorf("UnregisterClass: %w", windows.GetLastError()))
	}
	s.log.Debug("window destroyed", zap.Uintptr("hwnd", uintptr(s.hwnd)))
	return errors.Join(errs...)
}
