// Package capability decides, per tunable, whether and how it can currently
// be controlled. Results are derived from live system state and are never
// patched in place; a refresh builds a new snapshot.
package capability

import (
	"codeberg.org/mutker/tweakctl/internal/tunable"
)

// Capability is a point-in-time judgment about one tunable.
type Capability struct {
	Tunable   tunable.Tunable
	Available bool
	// Active is the control point a write would go through. Nil when
	// unavailable.
	Active *tunable.ControlPoint
	// Current is the value read from the system, if any source reports it.
	Current *int
	// Bounds are the accepted values, nil when unconstrained.
	Bounds *tunable.Bounds
	// NeedsElevation is set when a control point exists but every present
	// one requires privileges the session does not hold.
	NeedsElevation bool
}

// Snapshot maps every tunable to its capability.
type Snapshot map[tunable.Tunable]Capability

// Clone returns a shallow copy. Capabilities are never mutated after
// construction, so sharing their pointers is safe.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}

	return out
}

// Available lists the tunables that can currently be written, in enum order.
func (s Snapshot) Available() []tunable.Tunable {
	var out []tunable.Tunable
	for _, t := range tunable.All() {
		if s[t].Available {
			out = append(out, t)
		}
	}

	return out
}

func intPtr(v int) *int {
	return &v
}

func boundsPtr(b tunable.Bounds) *tunable.Bounds {
	return &b
}
