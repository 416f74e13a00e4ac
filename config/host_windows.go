//go:build windows

package config

import (
	"os"

	"golang.org/x/sys/windows"
)

// MachineName returns the NetBIOS computer name, matching what Windows users see in system settings
func MachineName() string {
	if name, err := windows.ComputerName(); err == nil && name != "" {
		return name
	}
	hostname, _ := os.Hostname()
	return hostname
}
