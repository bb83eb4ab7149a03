package commander

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/frame"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
)

// ExitCommand asks the server to terminate.
const ExitCommand = "exit"

// RequestExit asks a running server to shut down. A server that is not
// running is left alone: no launch, no retry, no error.
func (e *Executor) RequestExit(ctx context.Context, ep session.Endpoint) error {
	if ep == (session.Endpoint{}) {
		ep = e.cfg.Endpoint
	}
	ep = ep.WithDefaults()
	if err := ep.Validate(); err != nil {
		return fmt.Errorf("commander: exit request: %w", err)
	}
	sess, err := e.dial(ctx, ep)
	if err != nil {
		log.Info().Str("addr", ep.Address()).Msg("commander: server not running, nothing to stop")
		return nil
	}
	defer sess.Close()

	wire, err := frame.Encode(frame.DeviceCmd, ExitCommand)
	if err != nil {
		return err
	}
	if err := sess.Send(wire, e.cfg.Session.SendTimeout); err != nil {
		return fmt.Errorf("commander: send exit to %s: %w", ep.Address(), err)
	}
	log.Info().Str("addr", ep.Address()).Msg("commander: exit requested")
	return nil
}
