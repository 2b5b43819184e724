// Implements the memory arena: a fixed array of named words handed out to
// processes by a bump allocator that never reclaims.

package sim

import "fmt"

// MemoryWord is one named cell of the arena.
type MemoryWord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Region is an inclusive index range [Lower, Upper] of the arena.
type Region struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Size returns the number of words in the region.
func (r Region) Size() int {
	return r.Upper - r.Lower + 1
}

// Contains reports whether idx lies inside the region.
func (r Region) Contains(idx int) bool {
	return idx >= r.Lower && idx <= r.Upper
}

// Arena models the simulated physical memory.
// Indices [0, pointer) are allocated; [pointer, MemorySize) are unused.
type Arena struct {
	words   [MemorySize]MemoryWord
	pointer int
}

// Allocate reserves words contiguous slots starting at the current pointer.
// On failure the pointer is left unchanged.
func (a *Arena) Allocate(words int) (Region, error) {
	if words <= 0 {
		return Region{}, fmt.Errorf("allocate %d words: size must be positive", words)
	}
	if a.pointer+words > MemorySize {
		return Region{}, fmt.Errorf("requested %d words, available %d: %w",
			words, MemorySize-a.pointer, ErrOutOfMemory)
	}
	r := Region{Lower: a.pointer, Upper: a.pointer + words - 1}
	a.pointer += words
	return r, nil
}

// Pointer returns the index of the first unallocated word.
func (a *Arena) Pointer() int {
	return a.pointer
}

// Word returns the word at idx. Out-of-range indices yield the zero word.
func (a *Arena) Word(idx int) MemoryWord {
	if idx < 0 || idx >= MemorySize {
		return MemoryWord{}
	}
	return a.words[idx]
}

// Write stores w at idx. Writes outside the allocated area are refused.
func (a *Arena) Write(idx int, w MemoryWord) error {
	if idx < 0 || idx >= a.pointer {
		return fmt.Errorf("write to unallocated word %d (pointer %d)", idx, a.pointer)
	}
	a.words[idx] = w
	return nil
}

// Words returns a copy of the whole arena.
func (a *Arena) Words() []MemoryWord {
	out := make([]MemoryWord, MemorySize)
	copy(out, a.words[:])
	return out
}
