package call

import (
	"context"
	"fmt"

	"dispatch/internal/metrics"
	"dispatch/internal/types"
)

type PositionCommand struct {
	CallID   types.ID
	Position types.Point
}

// UpdateVehiclePosition overwrites the ambulance coordinates on a call. It has
// no status precondition and never changes status; the last report to arrive
// wins, even when the network delivered it out of order.
func (s *Service) UpdateVehiclePosition(ctx context.Context, cmd PositionCommand) (*Call, error) {
	if cmd.CallID == "" {
		return nil, fmt.Errorf("%w: missing call id", ErrBadRequest)
	}
	if !cmd.Position.Valid() {
		return nil, fmt.Errorf("%w: vehicle coordinates out of range", ErrBadRequest)
	}
	c, err := s.store.UpdatePosition(ctx, cmd.CallID, cmd.Position)
	if err != nil {
		return nil, err
	}
	metrics.PositionUpdate()

	if !Terminal(c.Status) {
		if err := s.tracker.Track(ctx, c.ID, c.VehicleID, cmd.Position); err != nil {
			s.log.Warn().Err(err).Str("call_id", string(c.ID)).Msg("mirror vehicle position")
		}
	}
	s.publish(ctx, TopicPosition, c)
	return c, nil
}
