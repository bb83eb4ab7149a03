package supervisor

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform selects how the run-on-startup instruction is passed to Matlab.
type Platform string

const (
	PlatformAuto    Platform = "auto"
	PlatformWindows Platform = "windows"
	PlatformPOSIX   Platform = "posix"
)

func HostPlatform() Platform {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformPOSIX
}

func ParsePlatform(raw string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PlatformAuto:
		return PlatformAuto, nil
	case PlatformWindows:
		return PlatformWindows, nil
	case PlatformPOSIX, "linux", "darwin", "unix":
		return PlatformPOSIX, nil
	default:
		return "", fmt.Errorf("supervisor: unknown platform %q", raw)
	}
}

// Resolve maps PlatformAuto to the host platform.
func (p Platform) Resolve() Platform {
	if p == "" || p == PlatformAuto {
		return HostPlatform()
	}
	return p
}

// ArgStrategy composes the server command line for one platform convention.
type ArgStrategy interface {
	Args(executable, script string) []string
	// RedirectOutput reports whether stdout/stderr must go to the null device.
	// Matlab exits right after start on Linux and macOS when they inherit a console.
	RedirectOutput() bool
}

func StrategyFor(p Platform) ArgStrategy {
	if p.Resolve() == PlatformWindows {
		return windowsArgs{}
	}
	return posixArgs{}
}

// RunInstruction is the Matlab statement that runs the startup script.
func RunInstruction(script string) string {
	return "run('" + script + "');"
}

// -automation starts Matlab minimised with a text console only. The -sd
// option does not combine with it, hence the explicit run() of the full path.
const automationFlag = "-automation"

type windowsArgs struct{}

func (windowsArgs) Args(executable, script string) []string {
	return []string{executable, automationFlag, "-r", RunInstruction(script)}
}

func (windowsArgs) RedirectOutput() bool { return false }

type posixArgs struct{}

func (posixArgs) Args(executable, script string) []string {
	return []string{executable, automationFlag, `-r "` + RunInstruction(script) + `"`}
}

func (posixArgs) RedirectOutput() bool { return true }
