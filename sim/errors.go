package sim

import "errors"

// Load-time errors. A failed load creates no process.
var (
	ErrProcessTableFull = errors.New("process table full")
	ErrOutOfMemory      = errors.New("out of memory")
)

// Capacity errors. The affected process is terminated.
var (
	ErrReadyQueueFull = errors.New("ready queue full")
	ErrWaitQueueFull  = errors.New("wait queue full")
)

// Per-process fatal errors raised while interpreting an instruction.
var (
	ErrVariableNotFound = errors.New("variable not found")
	ErrNoFreeSlot       = errors.New("no free variable slot")
	ErrEmptyName        = errors.New("empty variable name")
	ErrReservedName     = errors.New("reserved variable name")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformed        = errors.New("malformed instruction")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrIllegalSignal    = errors.New("illegal semSignal")
	ErrNotNumeric       = errors.New("value is not numeric")
)

// ErrCycleLimit is returned by Run when the simulation did not complete
// within the allowed number of cycles.
var ErrCycleLimit = errors.New("cycle limit reached")

// Driver errors returned by ProvideInput and Run.
var (
	ErrNoInputPending   = errors.New("no input pending")
	ErrInputUnavailable = errors.New("input requested but no input source")
	ErrDeadlock         = errors.New("all live processes are blocked")
)
