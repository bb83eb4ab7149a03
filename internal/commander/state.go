package commander

type State string

const (
	StateIdle          State = "idle"
	StateConnecting    State = "connecting"
	StateRetrying      State = "retrying"
	StateConnectFailed State = "connect_failed"
	StateConnected     State = "connected"
	StateSending       State = "sending"
	StateAwaitingReply State = "awaiting_reply"
	StateReplied       State = "replied"
	StateReceiveFailed State = "receive_failed"
	StateClosed        State = "closed"
)

// tracker records the current state of one call and forwards transitions to an observer.
type tracker struct {
	state    State
	observer func(State)
}

func (t *tracker) enter(s State) {
	t.state = s
	if t.observer != nil {
		t.observer(s)
	}
}
