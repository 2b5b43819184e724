package sim

import (
	"fmt"

	"github.com/inference-sim/ossim/sim/trace"
)

// Capacity limits. They are part of the observable behavior: exceeding a
// queue capacity terminates the process instead of blocking the driver.
const (
	MemorySize       = 60  // words in the arena
	MaxProgramLines  = 50  // instruction lines kept per program
	NumVariables     = 3   // variable slots per process
	PCBSlots         = 5   // reserved placeholder words per process
	MaxProcesses     = 10  // process table capacity
	MaxQueueSize     = 10  // capacity of each ready queue and each resource wait queue
	MLFQLevels       = 4   // MLFQ priority levels, 0 is highest
	FileContentLimit = 499 // bytes kept by readFile
	OutputLimit      = 511 // bytes kept by printFromTo
)

// DefaultMLFQQuanta are the per-level quanta used when none are configured.
var DefaultMLFQQuanta = [MLFQLevels]int{1, 2, 4, 8}

// Policy names a CPU scheduling policy.
type Policy string

const (
	PolicyFCFS       Policy = "fcfs"
	PolicyRoundRobin Policy = "rr"
	PolicyMLFQ       Policy = "mlfq"
)

// validPolicies maps accepted policy spellings to their canonical value.
// Empty string defaults to FCFS (for CLI flag default compatibility).
var validPolicies = map[string]Policy{
	"":            PolicyFCFS,
	"fcfs":        PolicyFCFS,
	"rr":          PolicyRoundRobin,
	"round-robin": PolicyRoundRobin,
	"mlfq":        PolicyMLFQ,
}

// IsValidPolicy returns true if name is a recognized scheduling policy.
func IsValidPolicy(name string) bool {
	_, ok := validPolicies[name]
	return ok
}

// ParsePolicy resolves a policy name to its canonical Policy.
func ParsePolicy(name string) (Policy, error) {
	p, ok := validPolicies[name]
	if !ok {
		return "", fmt.Errorf("unknown scheduling policy %q", name)
	}
	return p, nil
}

// Label returns the short upper-case name used in log lines.
func (p Policy) Label() string {
	switch p {
	case PolicyRoundRobin:
		return "RR"
	case PolicyMLFQ:
		return "MLFQ"
	default:
		return "FCFS"
	}
}

// Config groups everything needed to initialize a System.
type Config struct {
	Policy     Policy          // scheduling policy, fixed for the whole run
	Quantum    int             // round-robin quantum; 0 means 1
	MLFQQuanta [MLFQLevels]int // per-level quanta; zero value means DefaultMLFQQuanta
	Trace      trace.Config    // decision tracing (off by default)
	Files      FileSystem      // backing store for readFile/writeFile; nil means the host file system
}

// DefaultConfig returns an FCFS configuration with default MLFQ quanta.
func DefaultConfig() Config {
	return Config{
		Policy:     PolicyFCFS,
		Quantum:    1,
		MLFQQuanta: DefaultMLFQQuanta,
		Trace:      trace.Config{Level: trace.LevelNone},
	}
}

// Validate checks policy names and quantum ranges.
func (c Config) Validate() error {
	if !IsValidPolicy(string(c.Policy)) {
		return fmt.Errorf("unknown scheduling policy %q", c.Policy)
	}
	if c.Quantum < 0 {
		return fmt.Errorf("quantum must be non-negative, got %d", c.Quantum)
	}
	if c.MLFQQuanta != ([MLFQLevels]int{}) {
		for lvl, q := range c.MLFQQuanta {
			if q < 1 {
				return fmt.Errorf("mlfq quantum for level %d must be positive, got %d", lvl, q)
			}
		}
	}
	if !trace.IsValidLevel(string(c.Trace.Level)) {
		return fmt.Errorf("unknown trace level %q", c.Trace.Level)
	}
	return nil
}

// normalized fills defaults without changing explicit values.
func (c Config) normalized() Config {
	if p, err := ParsePolicy(string(c.Policy)); err == nil {
		c.Policy = p
	}
	if c.Quantum < 1 {
		c.Quantum = 1
	}
	if c.MLFQQuanta == ([MLFQLevels]int{}) {
		c.MLFQQuanta = DefaultMLFQQuanta
	}
	if c.Files == nil {
		c.Files = OSFileSystem{}
	}
	return c
}
