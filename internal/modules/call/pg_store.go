// README: Call store backed by PostgreSQL; status CAS is a conditional UPDATE.
package call

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const callColumns = `
	id, client_id, driver_id, vehicle_id, status,
	client_lat, client_lng, vehicle_lat, vehicle_lng,
	priority, description,
	created_at, accepted_at, completed_at, cancelled_at`

func (s *PGStore) Create(ctx context.Context, c *Call) error {
	var vLat, vLng *float64
	if c.VehiclePosition != nil {
		vLat, vLng = &c.VehiclePosition.Lat, &c.VehiclePosition.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO calls (`+callColumns+`
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14, $15
		)`,
		string(c.ID),
		string(c.ClientID),
		toStringPtr(c.DriverID),
		toStringPtr(c.VehicleID),
		string(c.Status),
		c.ClientPosition.Lat, c.ClientPosition.Lng,
		vLat, vLng,
		c.Priority,
		c.Description,
		c.CreatedAt,
		c.AcceptedAt,
		c.CompletedAt,
		c.CancelledAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Call, error) {
	row := s.db.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1`, string(id))
	c, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PGStore) ListByStatus(ctx context.Context, status Status) ([]*Call, error) {
	return s.query(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE status = $1
		ORDER BY created_at ASC`, string(status))
}

func (s *PGStore) ListActiveByDriver(ctx context.Context, driverID types.ID) ([]*Call, error) {
	return s.query(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE driver_id = $1
		  AND status IN ('accepted','en_route')
		ORDER BY accepted_at DESC`, string(driverID))
}

func (s *PGStore) ListByClient(ctx context.Context, clientID types.ID) ([]*Call, error) {
	return s.query(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE client_id = $1
		ORDER BY created_at DESC`, string(clientID))
}

// Update writes every mutable column except the vehicle coordinates, guarded
// by the status read by the caller.
func (s *PGStore) Update(ctx context.Context, c *Call, from Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE calls
		SET status = $2,
		    driver_id = $3,
		    vehicle_id = $4,
		    accepted_at = $5,
		    completed_at = $6,
		    cancelled_at = $7
		WHERE id = $1 AND status = $8`,
		string(c.ID),
		string(c.Status),
		toStringPtr(c.DriverID),
		toStringPtr(c.VehicleID),
		c.AcceptedAt,
		c.CompletedAt,
		c.CancelledAt,
		string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpdatePosition(ctx context.Context, id types.ID, pos types.Point) (*Call, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE calls
		SET vehicle_lat = $2, vehicle_lng = $3
		WHERE id = $1
		RETURNING `+callColumns, string(id), pos.Lat, pos.Lng)
	c, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PGStore) AppendEvent(ctx context.Context, e *Event) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO call_events (
			call_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		string(e.CallID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	).Scan(&e.ID)
}

func (s *PGStore) ListEvents(ctx context.Context, callID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, call_id, from_status, to_status, actor_type, actor_id, created_at
		FROM call_events
		WHERE call_id = $1
		ORDER BY id ASC`, string(callID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var actorID sql.NullString
		if err := rows.Scan(&e.ID, &e.CallID, &e.FromStatus, &e.ToStatus, &e.ActorType, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorID = toIDPtr(actorID)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) query(ctx context.Context, q string, args ...any) ([]*Call, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCall(row pgx.Row) (*Call, error) {
	var c Call
	var driverID, vehicleID sql.NullString
	var vLat, vLng sql.NullFloat64
	var acceptedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.ClientID, &driverID, &vehicleID, &c.Status,
		&c.ClientPosition.Lat, &c.ClientPosition.Lng, &vLat, &vLng,
		&c.Priority, &c.Description,
		&c.CreatedAt, &acceptedAt, &completedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	c.DriverID = toIDPtr(driverID)
	c.VehicleID = toIDPtr(vehicleID)
	if vLat.Valid && vLng.Valid {
		c.VehiclePosition = &types.Point{Lat: vLat.Float64, Lng: vLng.Float64}
	}
	c.AcceptedAt = toTimePtr(acceptedAt)
	c.CompletedAt = toTimePtr(completedAt)
	c.CancelledAt = toTimePtr(cancelledAt)
	return &c, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v sql.NullString) *types.ID {
	if !v.Valid {
		return nil
	}
	id := types.ID(v.String)
	return &id
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
