// Package state defines the dispatcher lifecycle state machine.
package state

import "fmt"

// Phase represents the lifecycle phase of a dispatcher.
type Phase int

const (
	// PhaseConfiguring is the initial phase; handlers may be registered.
	PhaseConfiguring Phase = iota
	// PhaseServing indicates the handler table is frozen and traffic is flowing.
	PhaseServing
	// PhaseClosed indicates the dispatcher has been shut down.
	PhaseClosed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseConfiguring:
		return "Configuring"
	case PhaseServing:
		return "Serving"
	case PhaseClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// validTransitions defines the allowed phase transitions.
// Key is the current phase, value is a list of valid target phases.
var validTransitions = map[Phase][]Phase{
	PhaseConfiguring: {PhaseServing, PhaseClosed},
	PhaseServing:     {PhaseClosed},
	PhaseClosed:      {}, // Terminal phase, no transitions allowed
}

// CanTransitionTo checks if moving from the current phase to target is valid.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, t := range validTransitions[p] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the list of valid target phases from the current phase.
func (p Phase) ValidTransitions() []Phase {
	return validTransitions[p]
}

// IsTerminal returns true if no further transitions are possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseClosed
}

// CanRegisterHandlers returns true while the handler table may still change.
func (p Phase) CanRegisterHandlers() bool {
	return p == PhaseConfiguring
}

// CanInvoke returns true if requests are accepted in this phase.
func (p Phase) CanInvoke() bool {
	return p == PhaseConfiguring || p == PhaseServing
}

// TransitionError represents an invalid phase transition attempt.
type TransitionError struct {
	From   Phase
	To     Phase
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid phase transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid phase transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to Phase, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
