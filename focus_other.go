//go:build !windows

package launcher

import "errors"

// focusProcessWindow is only supported on Windows, where servers run in their own console window
func focusProcessWindow(int) error {
	return errors.New("focus is only supported on Windows")
}
