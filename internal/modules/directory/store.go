// README: Read-only lookups of client, driver and ambulance identities owned by the profile services.
package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ClientExists(ctx context.Context, id types.ID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id)
}

func (s *Store) DriverExists(ctx context.Context, id types.ID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, id)
}

// VehicleOf returns the ambulance assigned to the driver, or nil when the
// driver has none.
func (s *Store) VehicleOf(ctx context.Context, driverID types.ID) (*types.ID, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		SELECT id FROM ambulances
		WHERE driver_id = $1
		ORDER BY id
		LIMIT 1`, string(driverID),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := types.ID(id)
	return &v, nil
}

func (s *Store) exists(ctx context.Context, q string, id types.ID) (bool, error) {
	var ok bool
	if err := s.db.QueryRow(ctx, q, string(id)).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
