package domain

// State is the lifecycle position of a session store.
type State int

const (
	// StateUnknown holds until the persisted record has been read.
	StateUnknown State = iota
	// StateUnauthenticated means no usable session exists.
	StateUnauthenticated
	// StateAuthenticated means a token and identity are held and an active role is set.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the session state handed to readers and observers.
type Snapshot struct {
	State      State
	Loading    bool
	Token      string // empty when unauthenticated
	Identity   *Identity
	ActiveRole Role // empty when unauthenticated
	Roles      []Role
}

// IsAuthenticated reports whether a token is held.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// Result is the outcome of Login and Register. Error is a human-readable message when
// Success is false.
type Result struct {
	Success  bool
	Identity *Identity
	Error    string
}
