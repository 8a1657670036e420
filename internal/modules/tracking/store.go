// README: Live ambulance positions per active call, mirrored into Redis GEO and hashes.
package tracking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/types"
)

const (
	vehicleGeoKey  = "tracking:vehicles"
	callKeyPattern = "tracking:call:%s"
	// Entries of calls that stop reporting expire on their own.
	keyTTL = 6 * time.Hour
)

// Position is the last reported ambulance location for a call.
type Position struct {
	CallID    types.ID    `json:"call_id"`
	VehicleID *types.ID   `json:"vehicle_id,omitempty"`
	Point     types.Point `json:"position"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Store struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis, now: func() time.Time { return time.Now().UTC() }}
}

// Track overwrites the mirrored position of the call's ambulance.
func (s *Store) Track(ctx context.Context, callID types.ID, vehicleID *types.ID, pos types.Point) error {
	fields := map[string]any{
		"lat":        strconv.FormatFloat(pos.Lat, 'f', -1, 64),
		"lng":        strconv.FormatFloat(pos.Lng, 'f', -1, 64),
		"updated_at": s.now().Format(time.RFC3339Nano),
	}
	if vehicleID != nil {
		fields["vehicle_id"] = string(*vehicleID)
	}

	pipe := s.redis.TxPipeline()
	pipe.GeoAdd(ctx, vehicleGeoKey, &redis.GeoLocation{
		Name:      string(callID),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	})
	pipe.HSet(ctx, callKey(callID), fields)
	pipe.Expire(ctx, callKey(callID), keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Untrack drops the call from the live view once it reaches a terminal status.
func (s *Store) Untrack(ctx context.Context, callID types.ID) error {
	pipe := s.redis.TxPipeline()
	pipe.ZRem(ctx, vehicleGeoKey, string(callID))
	pipe.Del(ctx, callKey(callID))
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns the mirrored position and whether one exists.
func (s *Store) Get(ctx context.Context, callID types.ID) (*Position, bool, error) {
	vals, err := s.redis.HGetAll(ctx, callKey(callID)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(vals) == 0 {
		return nil, false, nil
	}
	lat, err := strconv.ParseFloat(vals["lat"], 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(vals["lng"], 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse lng: %w", err)
	}
	p := &Position{CallID: callID, Point: types.Point{Lat: lat, Lng: lng}}
	if v, ok := vals["vehicle_id"]; ok && v != "" {
		id := types.ID(v)
		p.VehicleID = &id
	}
	if t, err := time.Parse(time.RFC3339Nano, vals["updated_at"]); err == nil {
		p.UpdatedAt = t
	}
	return p, true, nil
}

func callKey(callID types.ID) string {
	return fmt.Sprintf(callKeyPattern, string(callID))
}
