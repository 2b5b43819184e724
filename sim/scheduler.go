package sim

import (
	"fmt"
)

// Scheduler owns the ready queues of one scheduling policy.
//
// Admit only enqueues; the step driver moves the process to Ready on
// success and terminates it on failure. Next pops from the head and
// silently discards entries whose process is no longer Ready.
type Scheduler interface {
	Policy() Policy
	// Admit enqueues p at the tail of the queue for level (ignored by single-queue policies).
	Admit(p *Process, level int) error
	// Next returns the next Ready process, or nil when every queue is empty.
	Next(table *ProcessTable) *Process
	// Quantum returns the number of cycles p may run once dispatched; 0 means unlimited.
	Quantum(p *Process) int
	// Expire re-enqueues p after its quantum ran out.
	Expire(p *Process) error
	// Queues returns the queue contents, one slice per level.
	Queues() [][]int
}

// popReady pops from q until it finds a Ready process.
func popReady(q *PIDQueue, table *ProcessTable) *Process {
	for {
		pid, ok := q.Dequeue()
		if !ok {
			return nil
		}
		if p := table.Get(pid); p != nil && p.State == StateReady {
			return p
		}
	}
}

// FCFSScheduler runs each process until it blocks, finishes or fails.
type FCFSScheduler struct {
	ready PIDQueue
}

func (f *FCFSScheduler) Policy() Policy { return PolicyFCFS }

func (f *FCFSScheduler) Admit(p *Process, _ int) error {
	if !f.ready.Enqueue(p.ID) {
		return fmt.Errorf("FCFS/RR ready queue: %w", ErrReadyQueueFull)
	}
	return nil
}

func (f *FCFSScheduler) Next(table *ProcessTable) *Process {
	return popReady(&f.ready, table)
}

func (f *FCFSScheduler) Quantum(_ *Process) int { return 0 }

// Expire is never reached for FCFS because Quantum is unlimited.
func (f *FCFSScheduler) Expire(p *Process) error {
	return f.Admit(p, 0)
}

func (f *FCFSScheduler) Queues() [][]int {
	return [][]int{f.ready.Items()}
}

// RoundRobinScheduler shares one FIFO queue with a fixed quantum.
// An expired process goes back to the tail.
type RoundRobinScheduler struct {
	FCFSScheduler
	quantum int
}

func (r *RoundRobinScheduler) Policy() Policy { return PolicyRoundRobin }

func (r *RoundRobinScheduler) Quantum(_ *Process) int { return r.quantum }

func (r *RoundRobinScheduler) Expire(p *Process) error {
	return r.Admit(p, 0)
}

// MLFQScheduler keeps one FIFO queue per level and always serves the
// highest non-empty level. Quantum expiry demotes by one level.
type MLFQScheduler struct {
	levels [MLFQLevels]PIDQueue
	quanta [MLFQLevels]int
}

func (m *MLFQScheduler) Policy() Policy { return PolicyMLFQ }

// Admit enqueues p at level, spilling into lower levels while full.
// On success p.Level and p.Priority are set to the level actually used.
func (m *MLFQScheduler) Admit(p *Process, level int) error {
	level = clampLevel(level)
	for lvl := level; lvl < MLFQLevels; lvl++ {
		if m.levels[lvl].Enqueue(p.ID) {
			p.Level = lvl
			p.Priority = lvl
			return nil
		}
	}
	return fmt.Errorf("all MLFQ levels from %d: %w", level, ErrReadyQueueFull)
}

func (m *MLFQScheduler) Next(table *ProcessTable) *Process {
	for lvl := range m.levels {
		if p := popReady(&m.levels[lvl], table); p != nil {
			return p
		}
	}
	return nil
}

func (m *MLFQScheduler) Quantum(p *Process) int {
	return m.quanta[clampLevel(p.Level)]
}

// Expire demotes p to min(level+1, lowest level).
func (m *MLFQScheduler) Expire(p *Process) error {
	return m.Admit(p, p.Level+1)
}

func (m *MLFQScheduler) Queues() [][]int {
	out := make([][]int, MLFQLevels)
	for lvl := range m.levels {
		out[lvl] = m.levels[lvl].Items()
	}
	return out
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level >= MLFQLevels {
		return MLFQLevels - 1
	}
	return level
}

// NewScheduler creates a Scheduler for policy.
// quantum is the round-robin quantum; quanta are the MLFQ per-level quanta.
// Panics on unrecognized policies; callers validate with IsValidPolicy first.
func NewScheduler(policy Policy, quantum int, quanta [MLFQLevels]int) Scheduler {
	canonical, err := ParsePolicy(string(policy))
	if err != nil {
		panic(err.Error())
	}
	switch canonical {
	case PolicyFCFS:
		return &FCFSScheduler{}
	case PolicyRoundRobin:
		if quantum < 1 {
			quantum = 1
		}
		return &RoundRobinScheduler{quantum: quantum}
	case PolicyMLFQ:
		if quanta == ([MLFQLevels]int{}) {
			quanta = DefaultMLFQQuanta
		}
		return &MLFQScheduler{quanta: quanta}
	default:
		panic(fmt.Sprintf("unhandled scheduling policy %q", policy))
	}
}
