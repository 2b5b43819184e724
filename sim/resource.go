// Implements the resource manager: three mutually exclusive resources, each
// with a lock, a holder and a bounded wait queue woken by priority.

package sim

import "fmt"

// Resource identifies one of the fixed mutual-exclusion resources.
type Resource int

// ResourceNone marks a process that is not blocked on any resource.
const ResourceNone Resource = -1

const (
	ResourceFile Resource = iota
	ResourceUserInput
	ResourceUserOutput
)

// NumResources is the number of resources; no resource is created at runtime.
const NumResources = 3

var resourceNames = [NumResources]string{"file", "userInput", "userOutput"}

func (r Resource) String() string {
	if r < 0 || int(r) >= NumResources {
		return "none"
	}
	return resourceNames[r]
}

// ParseResource resolves the name used by semWait/semSignal.
func ParseResource(name string) (Resource, error) {
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), nil
		}
	}
	return ResourceNone, fmt.Errorf("resource '%s': %w", name, ErrUnknownResource)
}

// Mutex is the lock state of one resource.
type Mutex struct {
	Locked  bool
	Holder  int // NoProcess when unlocked
	waiters PIDQueue
}

// Waiters returns the blocked process IDs from head to tail.
func (m *Mutex) Waiters() []int {
	return m.waiters.Items()
}

// dequeueUrgent removes the waiter with the numerically lowest priority.
// Ties go to the waiter nearest the head. Entries without a priority are
// skipped; if no entry has one, the head is removed.
func (m *Mutex) dequeueUrgent(priority func(pid int) (int, bool)) (int, bool) {
	if m.waiters.Len() == 0 {
		return NoProcess, false
	}
	best, bestPos := 0, -1
	for pos := 0; pos < m.waiters.Len(); pos++ {
		prio, ok := priority(m.waiters.At(pos))
		if !ok {
			continue
		}
		if bestPos < 0 || prio < best {
			best, bestPos = prio, pos
		}
	}
	if bestPos < 0 {
		return m.waiters.Dequeue()
	}
	return m.waiters.RemoveAt(bestPos), true
}

// ResourceManager owns the lock state of every resource.
type ResourceManager struct {
	mutexes [NumResources]Mutex
}

func newResourceManager() ResourceManager {
	var rm ResourceManager
	for i := range rm.mutexes {
		rm.mutexes[i].Holder = NoProcess
	}
	return rm
}

// Mutex returns the lock state of r.
func (rm *ResourceManager) Mutex(r Resource) *Mutex {
	return &rm.mutexes[r]
}

// semWait acquires r for p or blocks p on it. blocked reports whether p
// left the CPU.
func (s *System) semWait(p *Process, r Resource) (blocked bool, err error) {
	m := s.resources.Mutex(r)
	if !m.Locked {
		m.Locked = true
		m.Holder = p.ID
		s.logf("%s acquired resource %s.", p.Label(), r)
		s.notify()
		return false, nil
	}

	s.logf("%s requests locked resource %s (held by P%d). Blocking.", p.Label(), r, s.programNumberOf(m.Holder))
	if s.sched.Policy() == PolicyMLFQ {
		p.Priority = p.Level
	} else {
		p.Priority = 0
	}
	if !m.waiters.Enqueue(p.ID) {
		return false, fmt.Errorf("blocking on %s: %w", r, ErrWaitQueueFull)
	}
	p.BlockedOn = r
	s.transition(p, StateBlocked, "semWait "+r.String())
	s.metrics.Blocks++
	s.logf("%s BLOCKED on resource %s", p.Label(), r)
	s.notify()
	return true, nil
}

// semSignal releases r held by p and wakes the most urgent waiter.
func (s *System) semSignal(p *Process, r Resource) error {
	m := s.resources.Mutex(r)
	if !m.Locked || m.Holder != p.ID {
		return fmt.Errorf("resource %s (locked: %t, holder: %d): %w", r, m.Locked, m.Holder, ErrIllegalSignal)
	}
	m.Locked = false
	m.Holder = NoProcess
	s.logf("%s released resource %s.", p.Label(), r)
	s.unblock(r)
	s.notify()
	return nil
}

// unblock wakes the most urgent waiter of r and re-admits it at its recorded level.
func (s *System) unblock(r Resource) {
	m := s.resources.Mutex(r)
	pid, ok := m.dequeueUrgent(func(pid int) (int, bool) {
		w := s.table.Get(pid)
		if w == nil {
			return 0, false
		}
		return w.Priority, true
	})
	if !ok {
		return
	}
	w := s.table.Get(pid)
	if w == nil {
		s.logf("Error: Dequeued PID %d from resource %s but PCB not found.", pid, r)
		return
	}
	w.BlockedOn = ResourceNone
	s.metrics.Unblocks++
	if s.admit(w, w.Level, "unblocked from "+r.String()) {
		s.logf("%s UNBLOCKED from resource %s, added to ready queue.", w.Label(), r)
	}
}

// programNumberOf maps a pid to its program number for log lines.
func (s *System) programNumberOf(pid int) int {
	if p := s.table.Get(pid); p != nil {
		return p.ProgramNumber
	}
	return pid
}
