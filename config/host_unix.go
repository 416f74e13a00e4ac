//go:build unix

package config

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// MachineName returns the short name of the local machine, as used in host-scoped section names
func MachineName() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err == nil {
		if name := unix.ByteSliceToString(utsname.Nodename[:]); name != "" {
			return strings.Split(name, ".")[0]
		}
	}

	// Fallback to the hostname reported by the OS
	hostname, _ := os.Hostname()
	return strings.Split(hostname, ".")[0]
}
