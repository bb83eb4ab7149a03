//go:build unix

package supervisor

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// detachAttr puts the child in its own session so it outlives us and never
// receives signals aimed at our process group.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// probeExit reaps pid without blocking and classifies how it ended.
func probeExit(pid int) (Result, bool) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return Result{Outcome: OutcomeUnknown, Err: fmt.Errorf("supervisor: wait4: %w", err)}, true
	}
	if wpid == 0 {
		return Result{}, false
	}
	switch {
	case ws.Exited():
		return Result{Outcome: OutcomeExitedWithCode, ExitCode: ws.ExitStatus()}, true
	case ws.Signaled() && ws.Signal() == unix.SIGKILL:
		return Result{Outcome: OutcomeKilledByParent, Err: fmt.Errorf("supervisor: %v", ws.Signal())}, true
	case ws.Signaled():
		return Result{Outcome: OutcomeAbnormalTermination, Err: fmt.Errorf("supervisor: %v", ws.Signal())}, true
	default:
		return Result{Outcome: OutcomeUnknown, Err: fmt.Errorf("supervisor: wait status %#x", uint32(ws))}, true
	}
}
