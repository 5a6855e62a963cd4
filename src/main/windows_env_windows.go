//go:build windows

package main

import (
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const processPerMonitorDPIAware = 2

// enableDPIAwareness makes the process per-monitor DPI aware so the overlay
// is placed in physical pixels.
func enableDPIAwareness() {
	log := zap.L().Named("dpi")

	shcore := windows.NewLazySystemDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			log.Debug("per-monitor DPI awareness set")
		} else {
			log.Warn("failed to set per-monitor DPI awareness", zap.Uintptr("hresult", ret))
		}
		return
	}

	user32 := windows.NewLazySystemDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		log.Warn("no DPI awareness API available")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
		log.Warn("failed to set system DPI awareness")
	}
}
