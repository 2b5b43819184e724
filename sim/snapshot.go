package sim

// ProcessView is a read-only copy of one PCB.
type ProcessView struct {
	ID               int               `json:"id"`
	ProgramNumber    int               `json:"program_number"`
	Name             string            `json:"name,omitempty"`
	State            ProcessState      `json:"state"`
	Priority         int               `json:"priority"`
	PC               int               `json:"pc"`
	Instructions     int               `json:"instructions"`
	Region           Region            `json:"region"`
	ArrivalTime      int64             `json:"arrival_time"`
	BlockedOn        string            `json:"blocked_on"`
	QuantumRemaining int               `json:"quantum_remaining"`
	Level            int               `json:"level"`
	Variables        map[string]string `json:"variables"`
}

// ResourceView is a read-only copy of one resource's lock state.
type ResourceView struct {
	Name    string `json:"name"`
	Locked  bool   `json:"locked"`
	Holder  int    `json:"holder"`
	Waiters []int  `json:"waiters"`
}

// PendingInput describes an outstanding input request.
type PendingInput struct {
	PID      int    `json:"pid"`
	Variable string `json:"variable"`
}

// Snapshot is a deep copy of the system state, safe to keep after the
// System moves on.
type Snapshot struct {
	Clock         int64          `json:"clock"`
	Policy        Policy         `json:"policy"`
	Running       int            `json:"running"`
	Complete      bool           `json:"complete"`
	MemoryPointer int            `json:"memory_pointer"`
	Memory        []MemoryWord   `json:"memory"`
	Processes     []ProcessView  `json:"processes"`
	Resources     []ResourceView `json:"resources"`
	ReadyQueues   [][]int        `json:"ready_queues"`
	PendingInput  *PendingInput  `json:"pending_input,omitempty"`
}

// Snapshot returns a deep copy of the current state.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{
		Clock:         s.clock,
		Policy:        s.sched.Policy(),
		Running:       s.running,
		Complete:      s.completed,
		MemoryPointer: s.arena.Pointer(),
		Memory:        s.arena.Words(),
		Processes:     make([]ProcessView, 0, s.table.Len()),
		Resources:     make([]ResourceView, 0, NumResources),
		ReadyQueues:   s.sched.Queues(),
	}
	for _, p := range s.table.All() {
		snap.Processes = append(snap.Processes, p.view())
	}
	for r := Resource(0); r < NumResources; r++ {
		m := s.resources.Mutex(r)
		snap.Resources = append(snap.Resources, ResourceView{
			Name:    r.String(),
			Locked:  m.Locked,
			Holder:  m.Holder,
			Waiters: m.Waiters(),
		})
	}
	if s.input.pending {
		snap.PendingInput = &PendingInput{PID: s.input.pid, Variable: s.input.variable}
	}
	return snap
}

func (p *Process) view() ProcessView {
	return ProcessView{
		ID:               p.ID,
		ProgramNumber:    p.ProgramNumber,
		Name:             p.Name,
		State:            p.State,
		Priority:         p.Priority,
		PC:               p.PC,
		Instructions:     len(p.instructions),
		Region:           p.Region,
		ArrivalTime:      p.ArrivalTime,
		BlockedOn:        p.BlockedOn.String(),
		QuantumRemaining: p.QuantumRemaining,
		Level:            p.Level,
		Variables:        p.variables(),
	}
}
