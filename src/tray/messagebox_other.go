//go:build !windows

package tray

import "go.uber.org/zap"

// ShowMessage logs the message; there is no portable message box.
func ShowMessage(title, message string, warning bool) {
	log := zap.L().Named("tray")
	if warning {
		log.Warn(message, zap.String("title", title))
		return
	}
	log.Info(message, zap.String("title", title))
}
