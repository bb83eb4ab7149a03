package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrExecutablePathRequired = errors.New("supervisor: executable path required")
	ErrExecutableNotFound     = errors.New("supervisor: executable not found")
	ErrScriptPathRequired     = errors.New("supervisor: startup script path required")
	ErrScriptNotFound         = errors.New("supervisor: startup script not found")
)

// LaunchSpec names what to start.
type LaunchSpec struct {
	ExecutablePath string
	ScriptPath     string
	Platform       Platform
}

func (s LaunchSpec) Validate() error {
	exe := strings.TrimSpace(s.ExecutablePath)
	if exe == "" {
		return ErrExecutablePathRequired
	}
	info, err := os.Stat(exe)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExecutableNotFound, exe, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrExecutableNotFound, exe)
	}
	script := strings.TrimSpace(s.ScriptPath)
	if script == "" {
		return ErrScriptPathRequired
	}
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrScriptNotFound, script, err)
	}
	return nil
}

// Supervisor launches detached server processes.
type Supervisor struct {
	// SettleDelay keeps watching the child for this long after start so an
	// immediate crash is reported instead of Detached. Zero disables it.
	SettleDelay  time.Duration
	PollInterval time.Duration
}

func New() *Supervisor {
	return &Supervisor{PollInterval: 20 * time.Millisecond}
}

// Launch starts the server and disowns it. It never retries.
func (s *Supervisor) Launch(ctx context.Context, spec LaunchSpec) Result {
	if err := spec.Validate(); err != nil {
		log.Error().Err(err).Msg("supervisor: launch precondition failed")
		return Result{Outcome: OutcomeLaunchError, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeLaunchError, Err: err}
	}

	strategy := StrategyFor(spec.Platform)
	argv := strategy.Args(spec.ExecutablePath, spec.ScriptPath)
	log.Info().
		Str("executable", spec.ExecutablePath).
		Strs("argv", argv[1:]).
		Str("platform", string(spec.Platform.Resolve())).
		Msg("supervisor: starting matlab server")

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = detachAttr()

	var sink *os.File
	if strategy.RedirectOutput() {
		f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return Result{Outcome: OutcomeLaunchError, Err: fmt.Errorf("supervisor: open null sink: %w", err)}
		}
		sink = f
		cmd.Stdout = sink
		cmd.Stderr = sink
	}

	err := cmd.Start()
	if sink != nil {
		_ = sink.Close()
	}
	if err != nil {
		log.Error().Err(err).Str("executable", spec.ExecutablePath).Msg("supervisor: start failed")
		return Result{Outcome: OutcomeLaunchError, Err: err}
	}
	if cmd.Process == nil {
		return Result{Outcome: OutcomeStillStarting, Err: errors.New("supervisor: no process handle after start")}
	}
	pid := cmd.Process.Pid

	if s.SettleDelay > 0 {
		if res, exited := s.settle(ctx, cmd.Process); exited {
			res.PID = pid
			log.Error().Str("outcome", res.String()).Int("pid", pid).Msg("supervisor: matlab server did not stay up")
			_ = cmd.Process.Release()
			return res
		}
	}

	if err := cmd.Process.Release(); err != nil {
		return Result{Outcome: OutcomeStillExecuting, PID: pid, Err: err}
	}
	log.Info().Int("pid", pid).Msg("supervisor: detached from matlab server process")
	return Result{Outcome: OutcomeDetached, PID: pid}
}

// settle polls the child until SettleDelay passes. It reports exited=true when
// the child is gone (or was killed because ctx ended) within the window.
func (s *Supervisor) settle(ctx context.Context, proc *os.Process) (Result, bool) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	timer := time.NewTimer(s.SettleDelay)
	defer timer.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if res, exited := probeExit(proc.Pid); exited {
			return res, true
		}
		select {
		case <-ctx.Done():
			_ = proc.Kill()
			return Result{Outcome: OutcomeTimedOutKilled, Err: ctx.Err()}, true
		case <-timer.C:
			return Result{}, false
		case <-ticker.C:
		}
	}
}
