// README: Call lifecycle transitions and status parsing.
package call

import "fmt"

// AllowedTransitions is the call lifecycle as code. Terminal statuses have no entry.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusEnRoute, StatusCancelled},
	StatusEnRoute:  {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns the status reached by moving from current to requested,
// or ErrInvalidState when the edge is not in the table.
func Transition(current, requested Status) (Status, error) {
	if !CanTransition(current, requested) {
		return current, fmt.Errorf("%w: %s -> %s", ErrInvalidState, current, requested)
	}
	return requested, nil
}

// Terminal reports whether no further transition is possible from s.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus matches v exactly (case-sensitive) against the known literals.
func ParseStatus(v string) (Status, error) {
	switch s := Status(v); s {
	case StatusPending, StatusAccepted, StatusEnRoute, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrBadRequest, v)
}
