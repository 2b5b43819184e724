// Tracks simulation-wide scheduling counters such as context switches,
// idle cycles, quantum expiries and resource blocking.

package sim

import (
	"fmt"
	"io"
)

// Metrics aggregates statistics about the simulation
// for final reporting. Useful for comparing scheduling policies.
type Metrics struct {
	Cycles          int64 // Number of executed cycles (clock advances)
	IdleCycles      int64 // Cycles in which no instruction ran
	Instructions    int64 // Instructions executed (including ones that blocked)
	Dispatches      int   // Number of Ready → Running transitions
	QuantumExpiries int   // Preemptions caused by quantum expiry
	Demotions       int   // MLFQ expiries that moved a process to a lower level
	Blocks          int   // semWait calls that blocked
	Unblocks        int   // Processes woken by semSignal
	Terminations    int   // Processes that reached Terminated
	FatalErrors     int   // Terminations caused by an error
	Outputs         int   // Lines emitted by print/printFromTo
}

// Print writes aggregated metrics at the end of the simulation.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Cycles               : %d\n", m.Cycles)
	fmt.Fprintf(w, "Instructions         : %d\n", m.Instructions)
	if m.Cycles > 0 {
		fmt.Fprintf(w, "CPU Utilization      : %.2f%%\n", 100*float64(m.Cycles-m.IdleCycles)/float64(m.Cycles))
	}
	fmt.Fprintf(w, "Dispatches           : %d\n", m.Dispatches)
	fmt.Fprintf(w, "Quantum Expiries     : %d\n", m.QuantumExpiries)
	fmt.Fprintf(w, "MLFQ Demotions       : %d\n", m.Demotions)
	fmt.Fprintf(w, "Blocks / Unblocks    : %d / %d\n", m.Blocks, m.Unblocks)
	fmt.Fprintf(w, "Terminated Processes : %d (%d by error)\n", m.Terminations, m.FatalErrors)
	fmt.Fprintf(w, "Output Lines         : %d\n", m.Outputs)
}
