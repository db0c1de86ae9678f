// Package lockstate holds the controller's single shared lock flag.
//
// A Register is created once at startup and handed by pointer to every
// component that reads or writes the lock state. It is the only mutable
// state shared between the connectivity supervisor and the serving
// workers. Loads and stores are single atomic operations; concurrent
// writers resolve last-writer-wins.
package lockstate

import "sync/atomic"

// State is the binary security posture of the controlled device.
type State bool

const (
	// Unlocked means the device is open.
	Unlocked State = false
	// Locked means the device is secured. It is the power-on state.
	Locked State = true
)

// String returns "locked" or "unlocked".
func (s State) String() string {
	if s == Locked {
		return "locked"
	}
	return "unlocked"
}

// Register is a thread-safe single-value cell holding the lock state.
// The zero value is not ready for use; call New.
type Register struct {
	locked atomic.Bool
}

// New returns a Register in the Locked state.
func New() *Register {
	r := &Register{}
	r.locked.Store(bool(Locked))
	return r
}

// Load returns the current state.
func (r *Register) Load() State {
	return State(r.locked.Load())
}

// Store replaces the current state and returns the previous one.
func (r *Register) Store(s State) State {
	return State(r.locked.Swap(bool(s)))
}
