// README: Shared identifier and coordinate value objects.
package types

import "github.com/google/uuid"

// ID is an opaque record identity (calls, clients, drivers, ambulances).
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

// Point is a WGS84 latitude/longitude pair.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
