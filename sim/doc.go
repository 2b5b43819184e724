// Package sim provides the core discrete-time engine of the OS simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - process.go: Process lifecycle (new → ready → running → blocked/terminated) and state machine
//   - scheduler.go: Ready-queue policies (FCFS, Round-Robin, MLFQ)
//   - simulator.go: The step driver that admits arrivals, dispatches and executes one instruction per cycle
//
// # Architecture
//
// One System value owns all simulation state: the memory arena (memory.go),
// the process table (process.go, loader.go), the resource manager
// (resource.go), the scheduler and the instruction interpreter
// (interpreter.go). Nothing is package-global; a run is constructed with
// New and stepped until IsComplete.
//
// The core performs no terminal I/O. Everything observable leaves through
// the Collaborator interface (collaborator.go):
//   - LogMessage: trace and diagnostic lines
//   - ProcessOutput: results of print and printFromTo
//   - RequestInput: a process executed "assign x input"; the front end must call ProvideInput
//   - StateUpdate: a deep Snapshot after every observable mutation
//
// Sub-packages:
//   - sim/trace/: pure-data transition and output records, per-process summaries
//   - sim/tracedb/: SQLite persistence of trace records
//   - sim/monitor/: HTTP front end implementing Collaborator
package sim
