// README: Dispatch façade; creation, queries, and lifecycle bookkeeping shared by the mutating operations.
package call

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dispatch/internal/metrics"
	"dispatch/internal/types"
)

type ClientDirectory interface {
	ClientExists(ctx context.Context, id types.ID) (bool, error)
}

type DriverDirectory interface {
	DriverExists(ctx context.Context, id types.ID) (bool, error)
	// VehicleOf returns the ambulance currently associated with the driver, or nil.
	VehicleOf(ctx context.Context, driverID types.ID) (*types.ID, error)
}

// Notifier fans lifecycle notifications out to listeners (driver apps, client apps).
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// PositionMirror keeps a fast-read copy of live ambulance positions.
type PositionMirror interface {
	Track(ctx context.Context, callID types.ID, vehicleID *types.ID, pos types.Point) error
	Untrack(ctx context.Context, callID types.ID) error
}

// Notification is the payload published for every lifecycle change.
type Notification struct {
	Topic string    `json:"topic"`
	Call  *Call     `json:"call"`
	At    time.Time `json:"at"`
}

const (
	TopicCreated  = "call.created"
	TopicPosition = "call.position"
)

func topicFor(s Status) string {
	return "call." + string(s)
}

type Deps struct {
	Store    Store
	Clients  ClientDirectory
	Drivers  DriverDirectory
	Notifier Notifier
	Tracker  PositionMirror
	Logger   zerolog.Logger
}

type Service struct {
	store    Store
	clients  ClientDirectory
	drivers  DriverDirectory
	notifier Notifier
	tracker  PositionMirror
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(deps Deps) *Service {
	s := &Service{
		store:    deps.Store,
		clients:  deps.Clients,
		drivers:  deps.Drivers,
		notifier: deps.Notifier,
		tracker:  deps.Tracker,
		log:      deps.Logger.With().Str("module", "call").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.tracker == nil {
		s.tracker = nopMirror{}
	}
	return s
}

type CreateCommand struct {
	ClientID    types.ID
	Position    types.Point
	Priority    string
	Description string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Call, error) {
	if cmd.ClientID == "" || strings.TrimSpace(cmd.Priority) == "" {
		return nil, fmt.Errorf("%w: client_id and priority are required", ErrBadRequest)
	}
	if !cmd.Position.Valid() {
		return nil, fmt.Errorf("%w: client coordinates out of range", ErrBadRequest)
	}
	ok, err := s.clients.ClientExists(ctx, cmd.ClientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: client %s", ErrNotFound, cmd.ClientID)
	}

	c := &Call{
		ID:             types.NewID(),
		ClientID:       cmd.ClientID,
		Status:         StatusPending,
		ClientPosition: cmd.Position,
		Priority:       cmd.Priority,
		Description:    cmd.Description,
		CreatedAt:      s.now(),
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	metrics.CallCreated()
	s.record(ctx, c, StatusNone, ActorClient, &cmd.ClientID, TopicCreated)
	s.log.Info().
		Str("call_id", string(c.ID)).
		Str("client_id", string(c.ClientID)).
		Str("priority", c.Priority).
		Msg("call created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Call, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing call id", ErrBadRequest)
	}
	return s.store.Get(ctx, id)
}

// ListPending returns calls waiting for a driver, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*Call, error) {
	return s.store.ListByStatus(ctx, StatusPending)
}

// ActiveForDriver returns the call the driver is working on. A driver holds at
// most one active call; more than one is a data-integrity defect and is logged.
func (s *Service) ActiveForDriver(ctx context.Context, driverID types.ID) (*Call, error) {
	if driverID == "" {
		return nil, fmt.Errorf("%w: missing driver id", ErrBadRequest)
	}
	calls, err := s.store.ListActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("%w: no active call for driver %s", ErrNotFound, driverID)
	}
	if len(calls) > 1 {
		s.log.Error().
			Str("driver_id", string(driverID)).
			Int("active_calls", len(calls)).
			Msg("driver holds more than one active call")
	}
	return calls[0], nil
}

// ListByClient returns the client's call history, most recent first.
func (s *Service) ListByClient(ctx context.Context, clientID types.ID) ([]*Call, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client id", ErrBadRequest)
	}
	return s.store.ListByClient(ctx, clientID)
}

// ActiveForClient returns the client's non-terminal calls, most recent first.
func (s *Service) ActiveForClient(ctx context.Context, clientID types.ID) ([]*Call, error) {
	calls, err := s.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]*Call, 0, len(calls))
	for _, c := range calls {
		if !Terminal(c.Status) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Events(ctx context.Context, callID types.ID) ([]Event, error) {
	if _, err := s.Get(ctx, callID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, callID)
}

// record appends the lifecycle event and publishes the notification. Both are
// side channels: failures are logged and never undo the stored transition.
func (s *Service) record(ctx context.Context, c *Call, from Status, actorType string, actorID *types.ID, topic string) {
	now := s.now()
	if err := s.store.AppendEvent(ctx, &Event{
		CallID:     c.ID,
		FromStatus: from,
		ToStatus:   c.Status,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  now,
	}); err != nil {
		s.log.Warn().Err(err).Str("call_id", string(c.ID)).Msg("append call event")
	}
	if from != StatusNone {
		metrics.Transition(string(from), string(c.Status))
	}
	s.publish(ctx, topic, c)
}

func (s *Service) publish(ctx context.Context, topic string, c *Call) {
	if err := s.notifier.Publish(ctx, topic, Notification{Topic: topic, Call: c, At: s.now()}); err != nil {
		s.log.Warn().Err(err).Str("call_id", string(c.ID)).Str("topic", topic).Msg("publish notification")
	}
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, any) error { return nil }

type nopMirror struct{}

func (nopMirror) Track(context.Context, types.ID, *types.ID, types.Point) error { return nil }
func (nopMirror) Untrack(context.Context, types.ID) error                       { return nil }
