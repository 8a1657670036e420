// README: Call store contract shared by the in-memory and PostgreSQL implementations.
package call

import (
	"context"

	"dispatch/internal/types"
)

// Store is durable keyed storage of calls with status, driver and client views.
//
// Update is a compare-and-swap on status: the record is replaced only when the
// stored status still equals from, and ok=false reports a lost race. Vehicle
// coordinates are owned by UpdatePosition and are never written by Update, so a
// transition can not clobber a position report that landed in between.
type Store interface {
	Create(ctx context.Context, c *Call) error
	Get(ctx context.Context, id types.ID) (*Call, error)
	ListByStatus(ctx context.Context, status Status) ([]*Call, error)
	ListActiveByDriver(ctx context.Context, driverID types.ID) ([]*Call, error)
	ListByClient(ctx context.Context, clientID types.ID) ([]*Call, error)
	Update(ctx context.Context, c *Call, from Status) (ok bool, err error)
	UpdatePosition(ctx context.Context, id types.ID, pos types.Point) (*Call, error)

	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, callID types.ID) ([]Event, error)
}
