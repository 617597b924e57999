package pool

import "github.com/google/uuid"

// Handle is a stable, opaque identifier for a connection the pool has
// created. Unlike a map keyed on the connection's pointer identity, a
// Handle survives being logged, compared across Stats snapshots, or handed
// to an external metrics system without leaking implementation details
// about the concrete Conn type.
type Handle string

func newHandle() Handle {
	return Handle(uuid.NewString())
}
