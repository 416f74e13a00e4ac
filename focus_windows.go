//go:build windows

package launcher

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const swShowNormal = 1

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
)

// focusProcessWindow shows and activates the first visible top-level window owned by pid
func focusProcessWindow(pid int) error {
	var found uintptr
	callback := windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		var owner uint32
		_, _, _ = procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&owner)))
		if int(owner) != pid {
			return 1
		}
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1
		}
		found = hwnd
		return 0
	})
	_, _, _ = procEnumWindows.Call(callback, 0)

	if found == 0 {
		return fmt.Errorf("no window found for process %d", pid)
	}
	_, _, _ = procShowWindow.Call(found, swShowNormal)
	if ok, _, err := procSetForegroundWindow.Call(found); ok == 0 {
		return fmt.Errorf("failed to focus window of process %d: %w", pid, err)
	}
	return nil
}
