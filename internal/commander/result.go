package commander

import "strings"

// ErrorPrefix marks a reply whose command failed on the server. A legitimate
// reply that happens to start with it is indistinguishable from a failure.
const ErrorPrefix = "ERROR:"

const (
	ReplyCannotConnect = "Cannot connect to the server"
	ReplyNoReply       = "No reply"
	ReplyBadReply      = "Bad reply"
	ReplySendFailed    = "Failed to send command to the server"
	replyUnsupported   = "Receiving unsupported message type: "
)

type Status int

const (
	StatusFailed Status = iota
	StatusSuccess
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failed"
}

// Result is what a caller gets back for one command. Reply is always
// displayable, including for transport failures.
type Result struct {
	Status Status
	Reply  string
	CallID string
	State  State
	Err    error
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Classify maps a raw server reply to a result. The reply is never modified.
func Classify(raw string) Result {
	if len(raw) > len(ErrorPrefix) && strings.HasPrefix(raw, ErrorPrefix) {
		return Result{Status: StatusFailed, Reply: raw}
	}
	return Result{Status: StatusSuccess, Reply: raw}
}

func failed(reply string, err error) Result {
	return Result{Status: StatusFailed, Reply: reply, Err: err}
}
