package session

// State is the authentication state of a Manager.
type State int

const (
	// StateLoading holds until the first storage check completes
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Logout reasons, reported in logs and metrics.
const (
	ReasonUser        = "user"
	ReasonSweep       = "sweep"
	ReasonAccessCheck = "access_check"
	ReasonDiscard     = "discard"
)
