package call

import (
	"context"
	"fmt"

	"dispatch/internal/types"
)

type SetStatusCommand struct {
	CallID types.ID
	Status string
	// ActorType defaults to ActorSystem.
	ActorType string
	ActorID   *types.ID
}

// SetStatus moves a call along the state machine. Acceptance is not reachable
// here because it must attach a driver; use Accept.
func (s *Service) SetStatus(ctx context.Context, cmd SetStatusCommand) (*Call, error) {
	target, err := ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	if target == StatusAccepted {
		return nil, fmt.Errorf("%w: acceptance requires a driver", ErrInvalidState)
	}
	c, err := s.Get(ctx, cmd.CallID)
	if err != nil {
		return nil, err
	}
	to, err := Transition(c.Status, target)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := c.clone()
	next.Status = to
	switch to {
	case StatusCompleted:
		next.CompletedAt = &now
	case StatusCancelled:
		next.CancelledAt = &now
	}

	ok, err := s.store.Update(ctx, next, c.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: call %s changed status concurrently", ErrConflict, c.ID)
	}

	if Terminal(to) {
		if err := s.tracker.Untrack(ctx, c.ID); err != nil {
			s.log.Warn().Err(err).Str("call_id", string(c.ID)).Msg("untrack vehicle")
		}
	}

	actor := cmd.ActorType
	if actor == "" {
		actor = ActorSystem
	}
	s.record(ctx, next, c.Status, actor, cmd.ActorID, topicFor(to))
	s.log.Info().
		Str("call_id", string(c.ID)).
		Str("from", string(c.Status)).
		Str("to", string(to)).
		Msg("call status changed")
	return next, nil
}
