//go:build unix

package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/PerkLab/SlicerMatlabBridge/internal/testutil/testlog"
)

func writeFakeMatlab(t *testing.T, body string) (exe, script, dir string) {
	t.Helper()
	dir = t.TempDir()
	exe = filepath.Join(dir, "matlab")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write fake matlab: %v", err)
	}
	script = filepath.Join(dir, "cli_commandserver.m")
	if err := os.WriteFile(script, []byte("% server"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return exe, script, dir
}

func TestLaunchDetachesLongRunningProcess(t *testing.T) {
	testlog.Start(t)
	exe, script, dir := writeFakeMatlab(t, `printf '%s\n' "$@" > "$(dirname "$0")/argv.txt"; exec sleep 30`)

	sup := &Supervisor{SettleDelay: 150 * time.Millisecond, PollInterval: 10 * time.Millisecond}
	res := sup.Launch(context.Background(), LaunchSpec{ExecutablePath: exe, ScriptPath: script, Platform: PlatformPOSIX})
	if !res.OK() {
		t.Fatalf("expected detached, got %s", res)
	}
	if res.PID <= 0 {
		t.Fatalf("missing pid: %+v", res)
	}
	t.Cleanup(func() { _ = syscall.Kill(-res.PID, syscall.SIGKILL) })

	argvPath := filepath.Join(dir, "argv.txt")
	var data []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, err := os.ReadFile(argvPath)
		if err == nil && len(b) > 0 {
			data = b
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"-automation", `-r "run('` + script + `');"`}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected argv\nwant: %q\ngot:  %q", want, got)
	}
}

func TestLaunchReportsImmediateExit(t *testing.T) {
	testlog.Start(t)
	exe, script, _ := writeFakeMatlab(t, "exit 3")

	sup := &Supervisor{SettleDelay: 2 * time.Second, PollInterval: 10 * time.Millisecond}
	res := sup.Launch(context.Background(), LaunchSpec{ExecutablePath: exe, ScriptPath: script, Platform: PlatformPOSIX})
	if res.Outcome != OutcomeExitedWithCode || res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %s", res)
	}
}

func TestLaunchReportsSignalledExit(t *testing.T) {
	testlog.Start(t)
	sup := &Supervisor{SettleDelay: 2 * time.Second, PollInterval: 10 * time.Millisecond}

	exe, script, _ := writeFakeMatlab(t, "kill -TERM $$")
	res := sup.Launch(context.Background(), LaunchSpec{ExecutablePath: exe, ScriptPath: script})
	if res.Outcome != OutcomeAbnormalTermination {
		t.Fatalf("SIGTERM: expected abnormal termination, got %s", res)
	}

	exe, script, _ = writeFakeMatlab(t, "kill -KILL $$")
	res = sup.Launch(context.Background(), LaunchSpec{ExecutablePath: exe, ScriptPath: script})
	if res.Outcome != OutcomeKilledByParent {
		t.Fatalf("SIGKILL: expected killed, got %s", res)
	}
}

func TestLaunchSettleHonoursContext(t *testing.T) {
	testlog.Start(t)
	exe, script, _ := writeFakeMatlab(t, "exec sleep 30")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sup := &Supervisor{SettleDelay: 5 * time.Second, PollInterval: 10 * time.Millisecond}
	res := sup.Launch(ctx, LaunchSpec{ExecutablePath: exe, ScriptPath: script})
	if res.Outcome != OutcomeTimedOutKilled {
		t.Fatalf("expected timed out kill, got %s", res)
	}
}

func TestLaunchWithoutSettleIsDetached(t *testing.T) {
	testlog.Start(t)
	exe, script, _ := writeFakeMatlab(t, "exit 0")
	res := New().Launch(context.Background(), LaunchSpec{ExecutablePath: exe, ScriptPath: script})
	if !res.OK() {
		t.Fatalf("expected detached without settle probe, got %s", res)
	}
}
