package call

import (
	"context"
	"errors"
	"fmt"

	"dispatch/internal/metrics"
	"dispatch/internal/types"
)

type AcceptCommand struct {
	CallID   types.ID
	DriverID types.ID
}

// Accept assigns a pending call to a driver. The write is a compare-and-swap
// on the pending status: when several drivers race, exactly one succeeds and
// the others get ErrConflict.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Call, error) {
	c, err := s.accept(ctx, cmd)
	switch {
	case err == nil:
		metrics.AcceptAttempt(metrics.OutcomeAccepted)
	case errors.Is(err, ErrConflict):
		metrics.AcceptAttempt(metrics.OutcomeConflict)
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrBadRequest):
		metrics.AcceptAttempt(metrics.OutcomeInvalid)
	case errors.Is(err, ErrNotFound):
		metrics.AcceptAttempt(metrics.OutcomeNotFound)
	default:
		metrics.AcceptAttempt(metrics.OutcomeError)
	}
	return c, err
}

func (s *Service) accept(ctx context.Context, cmd AcceptCommand) (*Call, error) {
	if cmd.CallID == "" || cmd.DriverID == "" {
		return nil, fmt.Errorf("%w: call id and driver id are required", ErrBadRequest)
	}
	c, err := s.store.Get(ctx, cmd.CallID)
	if err != nil {
		return nil, err
	}
	ok, err := s.drivers.DriverExists(ctx, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: driver %s", ErrNotFound, cmd.DriverID)
	}

	if c.Status != StatusPending {
		if c.DriverID != nil {
			return nil, fmt.Errorf("%w: call %s", ErrConflict, c.ID)
		}
		_, err := Transition(c.Status, StatusAccepted)
		return nil, err
	}

	vehicleID, err := s.drivers.VehicleOf(ctx, cmd.DriverID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	driverID := cmd.DriverID
	next := c.clone()
	next.Status = StatusAccepted
	next.DriverID = &driverID
	next.VehicleID = vehicleID
	next.AcceptedAt = &now

	ok, err = s.store.Update(ctx, next, StatusPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: call %s", ErrConflict, c.ID)
	}

	metrics.AcceptLatency(now.Sub(c.CreatedAt).Seconds())
	s.record(ctx, next, StatusPending, ActorDriver, &driverID, topicFor(StatusAccepted))

	ev := s.log.Info().Str("call_id", string(next.ID)).Str("driver_id", string(driverID))
	if vehicleID != nil {
		ev = ev.Str("vehicle_id", string(*vehicleID))
	}
	ev.Msg("call accepted")
	return next, nil
}
