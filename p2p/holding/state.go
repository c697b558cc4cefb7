package holding

import "strconv"

// State tags a held entry. Codes up to MaxDomainState belong to the embedding
// protocol; the two codes above it are reserved by the pool.
type State uint8

const (
	// MaxDomainState is the highest code callers may assign their own meaning.
	MaxDomainState State = 253

	// Unverified is the default state of freshly added data.
	Unverified State = 254

	// NotFound is returned by lookups for absent indexes. It is never stored.
	NotFound State = 255
)

// DomainState converts a caller-defined code to a State, rejecting the
// reserved values.
func DomainState(code uint8) (State, bool) {
	s := State(code)
	if s.IsReserved() {
		return NotFound, false
	}
	return s, true
}

// IsReserved reports whether the state is one of the pool's system codes.
func (s State) IsReserved() bool {
	return s > MaxDomainState
}

// IsDomain reports whether the state is open for protocol-defined meaning.
func (s State) IsDomain() bool {
	return s <= MaxDomainState
}

func (s State) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case NotFound:
		return "notfound"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Entry is the record held per index.
type Entry[V any] struct {
	Timestamp uint64 // seconds, set on creation and on every state change
	State     State
	Object    V
}

// Cloner is implemented by payloads that hold references and must be deep
// copied when entering or leaving a pool.
type Cloner[V any] interface {
	Clone() V
}

func copyOf[V any](v V) V {
	if c, ok := any(v).(Cloner[V]); ok {
		return c.Clone()
	}
	return v
}
