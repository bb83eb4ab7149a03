//go:build windows

package supervisor

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
}

// probeExit is not implemented on Windows: the Matlab launcher there exits
// on its own after spawning the real process, so an early exit is expected.
func probeExit(int) (Result, bool) {
	return Result{}, false
}
