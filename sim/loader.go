package sim

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// trailingDigits extracts the program number from names like "Program_3.txt".
var trailingDigits = regexp.MustCompile(`(\d+)$`)

// programNumber derives the human-facing program number from a program name.
// Names without trailing digits fall back to pid+1.
func programNumber(name string, pid int) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if m := trailingDigits.FindString(base); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return pid + 1
}

// isBlank reports whether a script line holds only whitespace.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Load loads an unnamed program arriving at the current clock.
func (s *System) Load(lines []string) (int, error) {
	return s.LoadAt("", lines, s.clock)
}

// LoadProgram loads a named program arriving at the current clock.
func (s *System) LoadProgram(name string, lines []string) (int, error) {
	return s.LoadAt(name, lines, s.clock)
}

// LoadAt loads a program that becomes eligible for scheduling at arrival.
//
// Blank lines are not stored. A program with no non-blank lines is accepted
// as a no-op: NoProcess is returned with a nil error. Programs longer than
// MaxProgramLines are truncated with a warning. The region allocated is
// instructions + NumVariables + PCBSlots words.
func (s *System) LoadAt(name string, lines []string, arrival int64) (int, error) {
	label := name
	if label == "" {
		label = "program"
	}
	if s.table.Full() {
		s.logf("Error: process table full, cannot load %s", label)
		return NoProcess, fmt.Errorf("loading %s: %w", label, ErrProcessTableFull)
	}

	// The instruction count is the non-blank line count, so interior blank
	// lines are dropped rather than kept as no-ops.
	code := make([]string, 0, len(lines))
	for _, line := range lines {
		if isBlank(line) {
			continue
		}
		code = append(code, strings.TrimRight(line, "\r\n"))
	}
	if len(code) == 0 {
		s.logf("Warning: %s is empty or contains only whitespace.", label)
		return NoProcess, nil
	}
	if len(code) > MaxProgramLines {
		s.logf("Warning: %s has %d lines, truncated to %d.", label, len(code), MaxProgramLines)
		code = code[:MaxProgramLines]
	}

	region, err := s.arena.Allocate(len(code) + NumVariables + PCBSlots)
	if err != nil {
		s.logf("Error: Out of memory loading %s: %v", label, err)
		return NoProcess, fmt.Errorf("loading %s: %w", label, err)
	}

	pid := s.table.Len()
	p := &Process{
		ID:            pid,
		ProgramNumber: programNumber(name, pid),
		Name:          name,
		State:         StateNew,
		Region:        region,
		ArrivalTime:   arrival,
		BlockedOn:     ResourceNone,
		instructions:  code,
	}
	for i, line := range code {
		s.writeWord(region.Lower+i, MemoryWord{Name: fmt.Sprintf("Inst_%d_%d", pid, i), Value: line})
	}
	for i := 0; i < NumVariables; i++ {
		s.writeWord(p.varBase()+i, MemoryWord{Name: fmt.Sprintf("Var_%d_Free%d", pid, i)})
	}
	for i := 0; i < PCBSlots; i++ {
		s.writeWord(p.placeholderBase()+i, MemoryWord{Name: fmt.Sprintf("PCB_%d_Slot%d", pid, i)})
	}
	s.table.add(p)

	s.logf("Loaded %s: lines=%d, mem=[%d..%d], arrival=%d",
		p.Label(), len(code), region.Lower, region.Upper, arrival)
	s.notify()
	return pid, nil
}

// InstructionCount returns the number of contiguous instruction words at
// the start of the process's region, or 0 for an unknown pid.
func (s *System) InstructionCount(pid int) int {
	p := s.table.Get(pid)
	if p == nil {
		return 0
	}
	prefix := fmt.Sprintf("Inst_%d_", pid)
	count := 0
	for i := p.Region.Lower; i <= p.Region.Upper; i++ {
		if !strings.HasPrefix(s.arena.Word(i).Name, prefix) {
			break
		}
		count++
	}
	return count
}

// writeWord stores a word inside an allocated region. The index always lies
// inside a region handed out by the arena, so a failure is a bug.
func (s *System) writeWord(idx int, w MemoryWord) {
	if err := s.arena.Write(idx, w); err != nil {
		panic(err)
	}
}
