package sim

import "fmt"

// fileVarPrefix names the synthetic variable that stages readFile results.
const fileVarPrefix = "file_"

// reservedNames are keywords of the assign instruction and cannot name a variable.
var reservedNames = map[string]bool{"input": true, "readFile": true}

// checkName rejects names no variable may have.
func checkName(op, name string) error {
	if name == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyName)
	}
	if reservedNames[name] {
		return fmt.Errorf("%s '%s': %w", op, name, ErrReservedName)
	}
	return nil
}

// lookup returns the slot bound to name. When allowFree is set and name is
// not bound, it returns the first unbound slot instead. -1 means no slot.
func (p *Process) lookup(name string, allowFree bool) int {
	free := -1
	for i := range p.vars {
		if p.vars[i].bound && p.vars[i].name == name {
			return i
		}
		if allowFree && free < 0 && !p.vars[i].bound {
			free = i
		}
	}
	return free
}

// setVariable finds or allocates a slot for name and binds value to it.
// The matching arena word is updated so the memory map stays current.
func (s *System) setVariable(p *Process, name, value string) error {
	if err := checkName("set", name); err != nil {
		return err
	}
	slot := p.lookup(name, true)
	if slot < 0 {
		return fmt.Errorf("variable '%s': %w", name, ErrNoFreeSlot)
	}
	p.vars[slot] = variable{name: name, value: value, bound: true}
	s.writeWord(p.varBase()+slot, MemoryWord{Name: fmt.Sprintf("Var_%d_%s", p.ID, name), Value: value})
	return nil
}

// getVariable returns the value bound to name, falling back to the staged
// readFile result file_<name>.
func (s *System) getVariable(p *Process, name string) (string, error) {
	if err := checkName("get", name); err != nil {
		return "", err
	}
	if slot := p.lookup(name, false); slot >= 0 {
		return p.vars[slot].value, nil
	}
	if slot := p.lookup(fileVarPrefix+name, false); slot >= 0 {
		return p.vars[slot].value, nil
	}
	return "", fmt.Errorf("variable '%s': %w", name, ErrVariableNotFound)
}

// Variable returns the value of a process variable for display.
// Unlike instruction execution, a missing variable is not an error here.
func (s *System) Variable(pid int, name string) (string, bool) {
	p := s.table.Get(pid)
	if p == nil || name == "" {
		return "", false
	}
	if slot := p.lookup(name, false); slot >= 0 {
		return p.vars[slot].value, true
	}
	if slot := p.lookup(fileVarPrefix+name, false); slot >= 0 {
		return p.vars[slot].value, true
	}
	return "", false
}

// variables returns the bound variables of p keyed by name.
func (p *Process) variables() map[string]string {
	out := make(map[string]string, NumVariables)
	for _, v := range p.vars {
		if v.bound {
			out[v.name] = v.value
		}
	}
	return out
}
