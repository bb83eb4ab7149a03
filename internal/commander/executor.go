package commander

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/PerkLab/SlicerMatlabBridge/internal/observability"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/frame"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
	"github.com/PerkLab/SlicerMatlabBridge/internal/supervisor"
)

var (
	ErrLaunchFailed      = errors.New("commander: server launch failed")
	ErrServerUnavailable = errors.New("commander: server unavailable")
	ErrUnsupportedReply  = errors.New("commander: unsupported reply type")
)

// Launcher starts the command server when nothing answers on the endpoint.
type Launcher interface {
	Launch(ctx context.Context, spec supervisor.LaunchSpec) supervisor.Result
}

type Option func(*Executor)

func WithLauncher(l Launcher) Option {
	return func(e *Executor) {
		if l != nil {
			e.launcher = l
		}
	}
}

// WithStateObserver is called on every state transition of every call.
func WithStateObserver(fn func(callID string, s State)) Option {
	return func(e *Executor) { e.observe = fn }
}

// Request is one command for one endpoint. A zero Endpoint uses the
// executor's configured endpoint; a zero ReceiveTimeout uses Config.Session.
type Request struct {
	Endpoint       session.Endpoint
	Command        string
	ReceiveTimeout time.Duration
}

// Executor runs one command per call. It holds configuration only, so a
// single Executor may serve sequential calls; callers serialise concurrent use.
type Executor struct {
	cfg      Config
	launcher Launcher
	observe  func(callID string, s State)
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	cfg = cfg.WithDefaults()
	sup := supervisor.New()
	sup.SettleDelay = cfg.SettleDelay
	e := &Executor{cfg: cfg, launcher: sup}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Config() Config {
	return e.cfg
}

// Execute sends req.Command and waits for the reply. It never panics and
// always returns a displayable Result; the session is closed on every path.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	started := time.Now()
	callID := uuid.NewString()
	tr := &tracker{}
	if e.observe != nil {
		tr.observer = func(s State) { e.observe(callID, s) }
	}
	ep := req.Endpoint
	if ep == (session.Endpoint{}) {
		ep = e.cfg.Endpoint
	}
	ep = ep.WithDefaults()
	logger := log.With().Str("call_id", callID).Str("addr", ep.Address()).Logger()

	res := e.execute(ctx, tr, ep, req)
	res.CallID = callID
	res.State = tr.state
	observability.RecordCommand(res.Status.String(), time.Since(started))

	ev := logger.Info()
	if !res.OK() {
		ev = logger.Warn().Err(res.Err)
	}
	ev.Str("status", res.Status.String()).Str("state", string(res.State)).
		Dur("elapsed", time.Since(started)).Msg("commander: command finished")
	return res
}

func (e *Executor) execute(ctx context.Context, tr *tracker, ep session.Endpoint, req Request) Result {
	tr.enter(StateIdle)
	if err := ep.Validate(); err != nil {
		tr.enter(StateConnectFailed)
		return failed(ReplyCannotConnect, err)
	}
	sess, err := e.connect(ctx, tr, ep)
	if err != nil {
		tr.enter(StateConnectFailed)
		return failed(ReplyCannotConnect, err)
	}
	defer func() {
		_ = sess.Close()
		tr.enter(StateClosed)
	}()
	tr.enter(StateConnected)

	wire, err := frame.Encode(frame.DeviceCmd, req.Command)
	if err != nil {
		return failed(ReplySendFailed, err)
	}
	tr.enter(StateSending)
	if err := sess.Send(wire, e.cfg.Session.SendTimeout); err != nil {
		return failed(ReplySendFailed, err)
	}

	timeout := req.ReceiveTimeout
	if timeout <= 0 {
		timeout = e.cfg.Session.ReceiveTimeout
	}
	tr.enter(StateAwaitingReply)
	raw, res, ok := receiveReply(sess, timeout)
	if !ok {
		tr.enter(StateReceiveFailed)
		return res
	}
	tr.enter(StateReplied)
	return Classify(raw)
}

// receiveReply reads one framed reply. ok is false when res already carries
// the synthetic failure text.
func receiveReply(sess *session.Session, timeout time.Duration) (string, Result, bool) {
	h, err := sess.ReceiveHeader(timeout)
	if err != nil {
		if errors.Is(err, session.ErrNoReply) {
			return "", failed(ReplyNoReply, err), false
		}
		return "", failed(ReplyBadReply, err), false
	}
	if err := h.ExpectType(frame.TypeString); err != nil {
		if skipErr := sess.Skip(h.BodySize, timeout); skipErr != nil {
			log.Debug().Err(skipErr).Str("type", h.Type).Msg("commander: drain unsupported reply body failed")
		}
		return "", failed(replyUnsupported+h.Type, fmt.Errorf("%w: %s", ErrUnsupportedReply, h.Type)), false
	}
	body, err := sess.ReceiveBody(h.BodySize, timeout)
	if err != nil {
		return "", failed(ReplyBadReply, err), false
	}
	raw, err := frame.DecodeString(h, body)
	if err != nil {
		return "", failed(ReplyBadReply, err), false
	}
	return raw, Result{}, true
}

// connect tries the endpoint once. When nothing answers it launches the server
// a single time and, if the launch detached, keeps trying at RetryInterval
// for up to RetryAttempts more connects.
func (e *Executor) connect(ctx context.Context, tr *tracker, ep session.Endpoint) (*session.Session, error) {
	logger := log.With().Str("addr", ep.Address()).Logger()

	tr.enter(StateConnecting)
	sess, err := e.dial(ctx, ep)
	if err == nil {
		return sess, nil
	}
	logger.Info().Err(err).Msg("commander: server not reachable, starting it")

	launch := e.launcher.Launch(ctx, e.cfg.launchSpec())
	observability.RecordLaunch(launch.Outcome.String())
	if !launch.OK() {
		logger.Error().Err(launch.Err).Str("outcome", launch.String()).Msg("commander: server launch failed")
		if launch.Err == nil {
			return nil, fmt.Errorf("%w: %s", ErrLaunchFailed, launch.Outcome)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunchFailed, launch.Outcome, launch.Err)
	}

	limiter := rate.NewLimiter(rate.Every(e.cfg.RetryInterval), 1)
	for attempt := 1; attempt <= e.cfg.RetryAttempts; attempt++ {
		tr.enter(StateRetrying)
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrServerUnavailable, err)
		}
		tr.enter(StateConnecting)
		sess, err = e.dial(ctx, ep)
		if err == nil {
			logger.Info().Int("attempt", attempt).Msg("commander: connected after launch")
			return sess, nil
		}
		logger.Debug().Err(err).Int("attempt", attempt).Msg("commander: server not ready")
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrServerUnavailable, e.cfg.RetryAttempts, err)
}

func (e *Executor) dial(ctx context.Context, ep session.Endpoint) (*session.Session, error) {
	sess, err := session.Dial(ctx, ep, e.cfg.Session)
	observability.RecordConnectAttempt(err == nil)
	return sess, err
}
