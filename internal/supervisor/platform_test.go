package supervisor

import (
	"reflect"
	"testing"
)

func TestStrategyArgs(t *testing.T) {
	exe, script := "/opt/matlab/bin/matlab", "/srv/commandserver/cli_commandserver.m"

	win := StrategyFor(PlatformWindows)
	wantWin := []string{exe, "-automation", "-r", "run('/srv/commandserver/cli_commandserver.m');"}
	if got := win.Args(exe, script); !reflect.DeepEqual(got, wantWin) {
		t.Fatalf("windows args\nwant: %q\ngot:  %q", wantWin, got)
	}
	if win.RedirectOutput() {
		t.Fatalf("windows launch must keep inherited output")
	}

	posix := StrategyFor(PlatformPOSIX)
	wantPosix := []string{exe, "-automation", `-r "run('/srv/commandserver/cli_commandserver.m');"`}
	if got := posix.Args(exe, script); !reflect.DeepEqual(got, wantPosix) {
		t.Fatalf("posix args\nwant: %q\ngot:  %q", wantPosix, got)
	}
	if !posix.RedirectOutput() {
		t.Fatalf("posix launch must redirect output to the null device")
	}
}

func TestParsePlatform(t *testing.T) {
	cases := map[string]Platform{
		"":        PlatformAuto,
		"AUTO":    PlatformAuto,
		"windows": PlatformWindows,
		"linux":   PlatformPOSIX,
		"darwin":  PlatformPOSIX,
		"posix":   PlatformPOSIX,
	}
	for raw, want := range cases {
		got, err := ParsePlatform(raw)
		if err != nil || got != want {
			t.Fatalf("ParsePlatform(%q)=%q,%v want %q", raw, got, err, want)
		}
	}
	if _, err := ParsePlatform("beos"); err == nil {
		t.Fatalf("expected error for unknown platform")
	}
	if PlatformAuto.Resolve() != HostPlatform() {
		t.Fatalf("auto should resolve to host platform")
	}
}

func TestOutcomeStrings(t *testing.T) {
	if OutcomeDetached.String() != "detached" || Outcome(99).String() != "outcome(99)" {
		t.Fatalf("unexpected outcome names")
	}
	r := Result{Outcome: OutcomeExitedWithCode, ExitCode: 2}
	if r.OK() || r.String() != "exited with code 2" {
		t.Fatalf("unexpected result rendering %q", r.String())
	}
	if !(Result{Outcome: OutcomeDetached}).OK() {
		t.Fatalf("detached must be OK")
	}
}
