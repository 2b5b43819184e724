// Defines the Process struct (the PCB) that models one loaded program in the simulation.
// Tracks scheduling state, memory region, program counter and resource-block status.

package sim

import (
	"fmt"
)

// ProcessState represents the lifecycle state of a process.
type ProcessState string

const (
	StateNew        ProcessState = "new"
	StateReady      ProcessState = "ready"
	StateRunning    ProcessState = "running"
	StateBlocked    ProcessState = "blocked"
	StateTerminated ProcessState = "terminated"
)

// NoProcess is the process ID meaning "none" (idle CPU, free lock, no pending input).
const NoProcess = -1

// allowedTransitions is the PCB state machine. Terminated is absorbing.
var allowedTransitions = map[ProcessState]map[ProcessState]bool{
	StateNew:        {StateReady: true, StateTerminated: true},
	StateReady:      {StateRunning: true, StateTerminated: true},
	StateRunning:    {StateReady: true, StateBlocked: true, StateTerminated: true},
	StateBlocked:    {StateReady: true, StateTerminated: true},
	StateTerminated: {},
}

// CanTransition reports whether the state machine permits from → to.
func CanTransition(from, to ProcessState) bool {
	return allowedTransitions[from][to]
}

// variable is one slot of a process's variable zone.
type variable struct {
	name  string
	value string
	bound bool
}

// Process is the process control block.
type Process struct {
	ID            int          // index in the process table
	ProgramNumber int          // human-facing program number (P<n> in logs)
	Name          string       // program name as given to the loader
	State         ProcessState // new, ready, running, blocked, terminated

	Priority         int      // wait-queue tie-break; lower = more urgent
	PC               int      // index of the next instruction
	Region           Region   // arena words owned by this process
	ArrivalTime      int64    // clock value at which the process becomes eligible
	BlockedOn        Resource // resource the process waits for, or ResourceNone
	QuantumRemaining int      // cycles left before preemption (RR/MLFQ only)
	Level            int      // current MLFQ level, 0 is highest

	instructions []string
	vars         [NumVariables]variable
}

// Label returns the name used for the process in log lines.
func (p *Process) Label() string {
	return fmt.Sprintf("P%d", p.ProgramNumber)
}

// InstructionCount returns the number of instructions in the program.
func (p *Process) InstructionCount() int {
	return len(p.instructions)
}

// Instruction returns the instruction line at index i.
func (p *Process) Instruction(i int) (string, bool) {
	if i < 0 || i >= len(p.instructions) {
		return "", false
	}
	return p.instructions[i], true
}

// varBase is the arena index of the first variable slot.
func (p *Process) varBase() int {
	return p.Region.Lower + len(p.instructions)
}

// placeholderBase is the arena index of the first reserved PCB slot.
func (p *Process) placeholderBase() int {
	return p.varBase() + NumVariables
}

func (p *Process) String() string {
	return fmt.Sprintf("Process: (ID: %d, Program: %d, State: %s, PC: %d/%d, Level: %d, Arrival: %d)",
		p.ID, p.ProgramNumber, p.State, p.PC, len(p.instructions), p.Level, p.ArrivalTime)
}

// ProcessTable is the fixed-capacity table of PCBs, indexed by process ID.
type ProcessTable struct {
	procs []*Process
}

// Get returns the process with the given ID, or nil.
func (t *ProcessTable) Get(pid int) *Process {
	if pid < 0 || pid >= len(t.procs) {
		return nil
	}
	return t.procs[pid]
}

// Len returns the number of loaded processes.
func (t *ProcessTable) Len() int {
	return len(t.procs)
}

// Full reports whether another process can be loaded.
func (t *ProcessTable) Full() bool {
	return len(t.procs) >= MaxProcesses
}

// All returns the loaded processes in ID order.
// The returned slice is the table's internal storage and MUST NOT be modified.
func (t *ProcessTable) All() []*Process {
	return t.procs
}

func (t *ProcessTable) add(p *Process) {
	t.procs = append(t.procs, p)
}
