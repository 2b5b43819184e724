// Package trace provides state-transition recording for scheduling analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// TransitionRecord captures a single process state transition.
// States are the lower-case names used by sim.ProcessState.
type TransitionRecord struct {
	Clock  int64
	PID    int
	From   string
	To     string
	Reason string
}

// OutputRecord captures one line of process output.
type OutputRecord struct {
	Clock int64
	PID   int
	Text  string
}
