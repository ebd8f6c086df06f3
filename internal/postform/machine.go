// Package postform drives a post form submission through
// Idle -> Validating -> Submitting -> Succeeded | Failed. A failed form goes
// back to Idle with its error kept; a second submission of the same form is
// blocked while one is in flight.
package postform

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int

const (
	Idle State = iota
	Validating
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrBusy is returned when the same form is already being submitted.
	ErrBusy = errors.New("this form is already being submitted")
	// ErrCompleted is returned by Run after a successful submission until Reset.
	ErrCompleted = errors.New("form already submitted")
)

// DefaultLockTTL bounds how long a crashed submission can block its form.
const DefaultLockTTL = 30 * time.Second

// Machine is the state of one form. A Guard, when set, extends the busy
// check to every Machine sharing the same key.
type Machine struct {
	mu       sync.Mutex
	state    State
	err      error
	observer func(from, to State)

	guard Guard
	key   string
	ttl   time.Duration
}

// New returns an idle machine. guard may be nil.
func New(guard Guard, key string) *Machine {
	return &Machine{guard: guard, key: key, ttl: DefaultLockTTL}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe registers fn to be called on every state change. fn must not call
// back into the machine.
func (m *Machine) Observe(fn func(from, to State)) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

// Err is the error of the last failed run. It is kept until the next Run.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Reset returns a succeeded machine to Idle and clears the last error. It
// has no effect while a submission is in flight.
func (m *Machine) Reset() {
	m.mu.Lock()
	if m.state != Validating && m.state != Submitting {
		m.transition(Idle)
		m.err = nil
	}
	m.mu.Unlock()
}

// transition must be called with mu held.
func (m *Machine) transition(s State) {
	from := m.state
	m.state = s
	if m.observer != nil && from != s {
		m.observer(from, s)
	}
}

func (m *Machine) set(s State) {
	m.mu.Lock()
	m.transition(s)
	m.mu.Unlock()
}

// fail records err and passes through Failed back to Idle, so the form can
// be corrected and submitted again.
func (m *Machine) fail(err error) error {
	m.mu.Lock()
	m.err = err
	m.transition(Failed)
	m.transition(Idle)
	m.mu.Unlock()
	return err
}

// Run validates and submits the form.
func (m *Machine) Run(ctx context.Context, validate func() error, submit func(context.Context) error) error {
	m.mu.Lock()
	switch m.state {
	case Validating, Submitting:
		m.mu.Unlock()
		return ErrBusy
	case Succeeded:
		m.mu.Unlock()
		return ErrCompleted
	}
	m.err = nil
	m.transition(Validating)
	m.mu.Unlock()

	if validate != nil {
		if err := validate(); err != nil {
			return m.fail(err)
		}
	}

	if m.guard != nil {
		token, ok, err := m.guard.Acquire(ctx, m.key, m.ttl)
		if err != nil {
			return m.fail(err)
		}
		if !ok {
			m.set(Idle)
			return ErrBusy
		}
		// release with a fresh context so a cancelled request still unlocks
		defer func() {
			_ = m.guard.Release(context.WithoutCancel(ctx), m.key, token)
		}()
	}

	m.set(Submitting)
	if err := submit(ctx); err != nil {
		return m.fail(err)
	}
	m.set(Succeeded)
	return nil
}
