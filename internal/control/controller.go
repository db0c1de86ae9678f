package control

import (
	"crypto/subtle"
	"strings"

	"github.com/muurk/smartlock/internal/lockstate"
)

// Action is the control intent carried by a request line.
type Action int

const (
	// ActionNone means the line matched neither control token.
	ActionNone Action = iota
	// ActionLock requests the Locked state.
	ActionLock
	// ActionUnlock requests the Unlocked state.
	ActionUnlock
)

func (a Action) String() string {
	switch a {
	case ActionLock:
		return "lock"
	case ActionUnlock:
		return "unlock"
	default:
		return "none"
	}
}

// Outcome describes what Handle did with a request line.
type Outcome struct {
	Action Action
	// BadCredential is set when a control token was present but the
	// submitted credential was wrong or could not be extracted.
	BadCredential bool
	Previous      lockstate.State
	Current       lockstate.State
}

// Changed reports whether the request flipped the lock state.
func (o Outcome) Changed() bool {
	return o.Previous != o.Current
}

// Controller verifies credentials and updates the lock register.
type Controller struct {
	secret   []byte
	register *lockstate.Register
}

// NewController returns a Controller that accepts secret and writes to register.
func NewController(secret string, register *lockstate.Register) *Controller {
	return &Controller{
		secret:   []byte(secret),
		register: register,
	}
}

// Handle applies the lock token and then the unlock token found in line.
// When both are present the later one decides the outcome. Previous is the
// value the register held immediately before this request's first store, so
// concurrent callers each report the transition they made.
func (c *Controller) Handle(line string) Outcome {
	current := c.register.Load()
	out := Outcome{Previous: current, Current: current}
	stored := false

	if strings.Contains(line, LockToken) {
		c.apply(line, LockToken, lockstate.Locked, ActionLock, &out, &stored)
	}
	if strings.Contains(line, UnlockToken) {
		c.apply(line, UnlockToken, lockstate.Unlocked, ActionUnlock, &out, &stored)
	}

	return out
}

func (c *Controller) apply(line, token string, target lockstate.State, action Action, out *Outcome, stored *bool) {
	out.Action = action

	credential, err := ExtractCredential(line, token)
	if err != nil || !c.verify(credential) {
		out.BadCredential = true
		return
	}

	previous := c.register.Store(target)
	if !*stored {
		out.Previous = previous
		*stored = true
	}
	out.BadCredential = false
	out.Current = target
}

func (c *Controller) verify(credential string) bool {
	return subtle.ConstantTimeCompare([]byte(credential), c.secret) == 1
}
