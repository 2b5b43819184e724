// sim/simulator.go
package sim

import (
	"context"
	"fmt"

	"github.com/inference-sim/ossim/sim/trace"
)

// inputRequest is the driver-level suspension created by "assign <var> input".
type inputRequest struct {
	pending  bool
	pid      int
	variable string
}

// System is the core object that holds simulation time, all simulated
// resources and the step driver. One System is one simulation run.
type System struct {
	cfg    Config
	collab Collaborator
	files  FileSystem

	arena     Arena
	table     ProcessTable
	resources ResourceManager
	sched     Scheduler

	running   int   // pid on the CPU, or NoProcess
	clock     int64 // global step counter
	input     inputRequest
	completed bool // latched once every loaded process is terminated

	metrics Metrics
	trace   *trace.SimulationTrace // nil when tracing is off
}

// New initializes an empty system. A nil collaborator is replaced by
// NopCollaborator.
func New(cfg Config, collab Collaborator) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collab == nil {
		collab = NopCollaborator{}
	}
	s := &System{cfg: cfg.normalized(), collab: collab}
	s.reset()
	return s, nil
}

// Initialize is shorthand for New with default MLFQ quanta and no tracing.
func Initialize(policy Policy, quantum int, collab Collaborator) (*System, error) {
	cfg := DefaultConfig()
	cfg.Policy = policy
	cfg.Quantum = quantum
	return New(cfg, collab)
}

// Reset discards every process and returns the system to its initial state,
// keeping the configuration and the collaborator.
func (s *System) Reset() {
	s.reset()
}

func (s *System) reset() {
	s.files = s.cfg.Files
	s.arena = Arena{}
	s.table = ProcessTable{}
	s.resources = newResourceManager()
	s.sched = NewScheduler(s.cfg.Policy, s.cfg.Quantum, s.cfg.MLFQQuanta)
	s.running = NoProcess
	s.clock = 0
	s.input = inputRequest{pid: NoProcess}
	s.completed = false
	s.metrics = Metrics{}
	s.trace = nil
	if s.cfg.Trace.Enabled() {
		s.trace = trace.NewSimulationTrace(s.cfg.Trace)
	}

	rrQuantum := 0
	if s.sched.Policy() == PolicyRoundRobin {
		rrQuantum = s.sched.Quantum(nil)
	}
	s.logf("System initialized (%s, RRQ=%d)", s.sched.Policy().Label(), rrQuantum)
	s.notify()
}

// Step advances the simulation by exactly one cycle. It does nothing when
// the simulation is complete or an input request is pending.
func (s *System) Step() {
	if s.IsComplete() {
		s.logf("Simulation already complete.")
		return
	}
	if s.input.pending {
		s.logf("Simulation paused, waiting for input for P%d.", s.programNumberOf(s.input.pid))
		return
	}

	s.logf("--- Clock Cycle %d ---", s.clock)
	s.admitArrivals()
	s.checkRunning()
	if s.running == NoProcess {
		s.dispatch()
	}

	executed := false
	if p := s.table.Get(s.running); p != nil && p.State == StateRunning && !s.input.pending {
		if s.sched.Quantum(p) > 0 {
			p.QuantumRemaining--
		}
		s.interpret(p)
		executed = true
		if p.State == StateTerminated {
			s.logf("%s terminated during execution.", p.Label())
			s.notify()
		}
	}
	if !executed {
		s.metrics.IdleCycles++
	}

	s.clock++
	s.metrics.Cycles++

	if s.IsComplete() {
		s.logf("Simulation Complete at Clock Cycle %d.", s.clock)
		s.notify()
	}
}

// admitArrivals moves every New process whose arrival time has come into
// the scheduler at the top level.
func (s *System) admitArrivals() {
	for _, p := range s.table.All() {
		if p.State != StateNew || p.ArrivalTime > s.clock {
			continue
		}
		s.logf("Clock %d: %s arrived.", s.clock, p.Label())
		s.admit(p, 0, "arrival")
		s.notify()
	}
}

// checkRunning heals an inconsistent running pointer and applies quantum expiry.
func (s *System) checkRunning() {
	if s.running == NoProcess {
		return
	}
	p := s.table.Get(s.running)
	if p == nil || p.State != StateRunning {
		state := ProcessState("missing")
		if p != nil {
			state = p.State
		}
		s.logf("Warning: Running PID %d is not in RUNNING state (%s). CPU becoming idle.", s.running, state)
		s.running = NoProcess
		return
	}
	if s.sched.Quantum(p) == 0 || p.QuantumRemaining > 0 {
		return
	}

	from := p.Level
	s.metrics.QuantumExpiries++
	if s.sched.Policy() == PolicyMLFQ {
		s.logf("%s MLFQ quantum expired at level %d.", p.Label(), from)
	} else {
		s.logf("%s RR quantum expired.", p.Label())
	}
	s.running = NoProcess
	if err := s.sched.Expire(p); err != nil {
		s.logf("Error: %v - terminating %s", err, p.Label())
		s.terminate(p, err.Error())
		s.metrics.FatalErrors++
	} else {
		s.transition(p, StateReady, "quantum expired")
		if p.Level > from {
			s.metrics.Demotions++
			s.logf("%s demoted to level %d.", p.Label(), p.Level)
		}
	}
	s.notify()
}

// dispatch gives the CPU to the next Ready process, if any.
func (s *System) dispatch() {
	p := s.sched.Next(&s.table)
	if p == nil {
		s.logf("Scheduler: CPU Idle - No ready processes.")
		s.notify()
		return
	}
	s.transition(p, StateRunning, "dispatch")
	s.running = p.ID
	p.QuantumRemaining = s.sched.Quantum(p)
	s.logf("Scheduler: Dispatching %s (Level: %d, Quantum: %d)", p.Label(), p.Level, p.QuantumRemaining)
	s.notify()
}

// admit enqueues p and marks it Ready. A full queue terminates p.
func (s *System) admit(p *Process, level int, reason string) bool {
	if err := s.sched.Admit(p, level); err != nil {
		s.logf("Error: %v, dropping %s", err, p.Label())
		s.terminate(p, err.Error())
		s.metrics.FatalErrors++
		return false
	}
	s.transition(p, StateReady, reason)
	return true
}

// transition moves p to state to, enforcing the PCB state machine. Leaving
// the Running state always frees the CPU.
func (s *System) transition(p *Process, to ProcessState, reason string) bool {
	from := p.State
	if from == to {
		return true
	}
	if !CanTransition(from, to) {
		s.logf("Error: illegal transition of %s from %s to %s (%s)", p.Label(), from, to, reason)
		return false
	}
	p.State = to
	if to != StateRunning && s.running == p.ID {
		s.running = NoProcess
	}
	switch to {
	case StateRunning:
		s.metrics.Dispatches++
	case StateTerminated:
		s.metrics.Terminations++
	}
	if s.trace != nil {
		s.trace.RecordTransition(trace.TransitionRecord{
			Clock:  s.clock,
			PID:    p.ID,
			From:   string(from),
			To:     string(to),
			Reason: reason,
		})
	}
	return true
}

// terminate moves p to Terminated. Terminated is absorbing, so repeated
// calls are harmless.
func (s *System) terminate(p *Process, reason string) {
	s.transition(p, StateTerminated, reason)
}

// fail terminates p after a per-process fatal error.
func (s *System) fail(p *Process, err error) {
	s.logf("Error in %s: %v. Terminating.", p.Label(), err)
	if p.State != StateTerminated {
		s.metrics.FatalErrors++
	}
	s.terminate(p, err.Error())
}

// output emits one line of process output.
func (s *System) output(p *Process, text string) {
	s.metrics.Outputs++
	if s.trace != nil {
		s.trace.RecordOutput(trace.OutputRecord{Clock: s.clock, PID: p.ID, Text: text})
	}
	s.collab.ProcessOutput(p.ID, text)
}

// ProvideInput answers the pending input request: the value is bound to the
// requested variable and the waiting process's program counter advances once.
func (s *System) ProvideInput(text string) error {
	if !s.input.pending {
		s.logf("Warning: provideInput called when no input was pending.")
		return ErrNoInputPending
	}
	req := s.input
	s.input = inputRequest{pid: NoProcess}

	p := s.table.Get(req.pid)
	if p == nil || p.State != StateRunning {
		s.logf("Warning: provideInput called for P%d which is not in RUNNING state.", s.programNumberOf(req.pid))
		s.notify()
		return fmt.Errorf("input for pid %d: %w", req.pid, ErrNoInputPending)
	}

	s.logf("%s received input '%s' for variable '%s'", p.Label(), text, req.variable)
	if err := s.setVariable(p, req.variable, text); err != nil {
		s.fail(p, err)
	} else {
		s.advance(p)
	}
	s.IsComplete()
	s.notify()
	return nil
}

// IsComplete reports whether every loaded process has terminated.
// It is false while no process has been loaded and latches once true.
func (s *System) IsComplete() bool {
	if s.table.Len() == 0 {
		return false
	}
	if s.completed {
		return true
	}
	for _, p := range s.table.All() {
		if p.State != StateTerminated {
			return false
		}
	}
	s.completed = true
	return true
}

// Deadlocked reports whether the simulation can make no further progress:
// no process is new, ready or running, no input is pending, and at least
// one process is blocked.
func (s *System) Deadlocked() bool {
	if s.input.pending {
		return false
	}
	blocked := false
	for _, p := range s.table.All() {
		switch p.State {
		case StateNew, StateReady, StateRunning:
			return false
		case StateBlocked:
			blocked = true
		}
	}
	return blocked
}

// InputSource answers input requests during Run.
type InputSource interface {
	NextInput(pid int, variable string) (string, error)
}

// InputFunc adapts a function to InputSource.
type InputFunc func(pid int, variable string) (string, error)

func (f InputFunc) NextInput(pid int, variable string) (string, error) {
	return f(pid, variable)
}

// Run steps the simulation until it completes, ctx is cancelled, it
// deadlocks, or maxCycles cycles have run (0 means no limit). Pending input
// is answered from inputs. It returns the number of cycles stepped.
func (s *System) Run(ctx context.Context, maxCycles int64, inputs InputSource) (int64, error) {
	start := s.clock
	if s.table.Len() == 0 {
		return 0, nil
	}
	for !s.IsComplete() {
		if err := ctx.Err(); err != nil {
			return s.clock - start, err
		}
		if s.input.pending {
			if inputs == nil {
				return s.clock - start, fmt.Errorf("P%d variable '%s': %w",
					s.programNumberOf(s.input.pid), s.input.variable, ErrInputUnavailable)
			}
			text, err := inputs.NextInput(s.input.pid, s.input.variable)
			if err != nil {
				return s.clock - start, fmt.Errorf("reading input: %w", err)
			}
			if err := s.ProvideInput(text); err != nil {
				return s.clock - start, err
			}
			continue
		}
		if s.Deadlocked() {
			s.logf("Error: deadlock at clock %d, every live process is blocked.", s.clock)
			return s.clock - start, fmt.Errorf("clock %d: %w", s.clock, ErrDeadlock)
		}
		if maxCycles > 0 && s.clock-start >= maxCycles {
			s.logf("Warning: stopping after %d cycles.", maxCycles)
			return s.clock - start, fmt.Errorf("after %d cycles: %w", maxCycles, ErrCycleLimit)
		}
		s.Step()
	}
	return s.clock - start, nil
}

// Clock returns the current step counter.
func (s *System) Clock() int64 { return s.clock }

// Running returns the pid on the CPU, or NoProcess.
func (s *System) Running() int { return s.running }

// Policy returns the active scheduling policy.
func (s *System) Policy() Policy { return s.sched.Policy() }

// InputPending reports the process and variable waiting for input.
func (s *System) InputPending() (pid int, variable string, ok bool) {
	return s.input.pid, s.input.variable, s.input.pending
}

// Process returns a read-only view of one PCB.
func (s *System) Process(pid int) (ProcessView, bool) {
	p := s.table.Get(pid)
	if p == nil {
		return ProcessView{}, false
	}
	return p.view(), true
}

// ProcessCount returns the number of loaded processes.
func (s *System) ProcessCount() int { return s.table.Len() }

// MemoryPointer returns the arena's allocation pointer.
func (s *System) MemoryPointer() int { return s.arena.Pointer() }

// Metrics returns a copy of the run's counters.
func (s *System) Metrics() Metrics { return s.metrics }

// Trace returns the collected trace, or nil when tracing is off.
func (s *System) Trace() *trace.SimulationTrace { return s.trace }

// logf sends one formatted line to the collaborator.
func (s *System) logf(format string, args ...any) {
	s.collab.LogMessage(fmt.Sprintf(format, args...))
}

// notify publishes a fresh snapshot.
func (s *System) notify() {
	s.collab.StateUpdate(s.Snapshot())
}
