// README: Call aggregate, status definitions, and lifecycle events.
package call

import (
	"time"

	"dispatch/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusEnRoute   Status = "en_route"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Call is an emergency transport request. Client, driver and ambulance are
// referenced by identity only; their records live outside this module.
type Call struct {
	ID              types.ID     `json:"id"`
	ClientID        types.ID     `json:"client_id"`
	DriverID        *types.ID    `json:"driver_id,omitempty"`
	VehicleID       *types.ID    `json:"vehicle_id,omitempty"`
	Status          Status       `json:"status"`
	ClientPosition  types.Point  `json:"client_position"`
	VehiclePosition *types.Point `json:"vehicle_position,omitempty"`
	Priority        string       `json:"priority"`
	Description     string       `json:"description"`
	CreatedAt       time.Time    `json:"created_at"`
	AcceptedAt      *time.Time   `json:"accepted_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
}

// Active reports whether a driver is currently working the call.
func (c *Call) Active() bool {
	return c.Status == StatusAccepted || c.Status == StatusEnRoute
}

func (c *Call) clone() *Call {
	out := *c
	if c.DriverID != nil {
		v := *c.DriverID
		out.DriverID = &v
	}
	if c.VehicleID != nil {
		v := *c.VehicleID
		out.VehicleID = &v
	}
	if c.VehiclePosition != nil {
		v := *c.VehiclePosition
		out.VehiclePosition = &v
	}
	out.AcceptedAt = cloneTime(c.AcceptedAt)
	out.CompletedAt = cloneTime(c.CompletedAt)
	out.CancelledAt = cloneTime(c.CancelledAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

const (
	ActorClient = "client"
	ActorDriver = "driver"
	ActorSystem = "system"
)

// Event is one entry of a call's lifecycle log.
type Event struct {
	ID         int64     `json:"id"`
	CallID     types.ID  `json:"call_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorType  string    `json:"actor_type"`
	ActorID    *types.ID `json:"actor_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
