// ABOUTME: Session lifecycle state machine: paused, running, completed, terminated.
// ABOUTME: Worker exits settle into the explicitly requested state, if any.
package export

import "fmt"

// State is the lifecycle state of an export session.
type State int

const (
	StatePaused State = iota
	StateRunning
	StateCompleted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// lifecycle is not safe for concurrent use; Session guards it with its mutex.
type lifecycle struct {
	state State

	// requested is the state a running worker must settle into once it
	// observes cancellation. Only StatePaused and StateTerminated are valid.
	requested    State
	hasRequested bool
}

// begin moves a paused or completed session to running.
func (l *lifecycle) begin() error {
	switch l.state {
	case StateRunning:
		return ErrAlreadyRunning
	case StateTerminated:
		return ErrTerminated
	}
	l.set(StateRunning)
	l.hasRequested = false
	return nil
}

// request records the state the worker should settle into. It reports
// whether the worker needs to be cancelled.
func (l *lifecycle) request(target State) bool {
	if target != StatePaused && target != StateTerminated {
		panic(fmt.Sprintf("export: cannot request transition to %s", target))
	}
	if l.state != StateRunning {
		return false
	}
	// Termination wins over a pause that is still winding down.
	if l.hasRequested && l.requested == StateTerminated {
		return true
	}
	l.requested = target
	l.hasRequested = true
	return true
}

// terminating reports whether the session is or will be terminated.
func (l *lifecycle) terminating() bool {
	return l.state == StateTerminated || (l.hasRequested && l.requested == StateTerminated)
}

// settle is called by the worker on exit. drained is true when no
// unscheduled batches remain.
func (l *lifecycle) settle(drained bool) State {
	next := StatePaused
	switch {
	case l.hasRequested:
		next = l.requested
	case drained:
		next = StateCompleted
	}
	l.hasRequested = false
	l.set(next)
	return next
}

// terminate forces the terminated state.
func (l *lifecycle) terminate() {
	l.hasRequested = false
	l.set(StateTerminated)
}

func (l *lifecycle) set(s State) {
	if l.state == StateTerminated && s != StateTerminated {
		panic(fmt.Sprintf("export: illegal transition from terminated to %s", s))
	}
	l.state = s
}
