// README: Sentinel errors returned by the dispatch operations.
package call

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("call already taken")
	ErrBadRequest   = errors.New("bad request")
)

// IsRejected reports whether err is one of the two rejection kinds:
// an illegal transition or a lost acceptance race.
func IsRejected(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrConflict)
}
