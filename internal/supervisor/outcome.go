package supervisor

import "fmt"

// Outcome classifies one launch attempt. Only OutcomeDetached is success.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeDetached
	OutcomeLaunchError
	OutcomeStillStarting
	OutcomeStillExecuting
	OutcomeTimedOutKilled
	OutcomeExitedWithCode
	OutcomeKilledByParent
	OutcomeAbnormalTermination
)

var outcomeNames = map[Outcome]string{
	OutcomeUnknown:             "unknown",
	OutcomeDetached:            "detached",
	OutcomeLaunchError:         "launch_error",
	OutcomeStillStarting:       "still_starting",
	OutcomeStillExecuting:      "still_executing",
	OutcomeTimedOutKilled:      "timed_out_killed",
	OutcomeExitedWithCode:      "exited",
	OutcomeKilledByParent:      "killed",
	OutcomeAbnormalTermination: "abnormal_termination",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the outcome of Launch plus whatever detail the OS gave us.
type Result struct {
	Outcome  Outcome
	PID      int
	ExitCode int
	Err      error
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeDetached
}

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeDetached:
		return fmt.Sprintf("detached pid=%d", r.PID)
	case OutcomeExitedWithCode:
		return fmt.Sprintf("exited with code %d", r.ExitCode)
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	}
	return r.Outcome.String()
}
