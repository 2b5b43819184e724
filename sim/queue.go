// Implements PIDQueue, the bounded circular FIFO of process IDs used for
// every ready queue and every resource wait queue.

package sim

import (
	"fmt"
	"strings"
)

// PIDQueue is a fixed-capacity ring buffer of process IDs.
// The zero value is an empty queue ready for use.
type PIDQueue struct {
	buf  [MaxQueueSize]int
	head int
	size int
}

// Enqueue appends pid at the tail. Returns false when the queue is full.
func (q *PIDQueue) Enqueue(pid int) bool {
	if q.size >= MaxQueueSize {
		return false
	}
	q.buf[(q.head+q.size)%MaxQueueSize] = pid
	q.size++
	return true
}

// Dequeue removes and returns the head. ok is false when the queue is empty.
func (q *PIDQueue) Dequeue() (pid int, ok bool) {
	if q.size == 0 {
		return NoProcess, false
	}
	pid = q.buf[q.head]
	q.head = (q.head + 1) % MaxQueueSize
	q.size--
	return pid, true
}

// Len returns the number of queued IDs.
func (q *PIDQueue) Len() int {
	return q.size
}

// Full reports whether another Enqueue would fail.
func (q *PIDQueue) Full() bool {
	return q.size >= MaxQueueSize
}

// At returns the ID at queue position pos (0 is the head).
func (q *PIDQueue) At(pos int) int {
	if pos < 0 || pos >= q.size {
		panic(fmt.Sprintf("PIDQueue.At: position %d out of range [0,%d)", pos, q.size))
	}
	return q.buf[(q.head+pos)%MaxQueueSize]
}

// RemoveAt removes the ID at queue position pos and returns it.
// The relative order of the remaining entries is preserved.
func (q *PIDQueue) RemoveAt(pos int) int {
	pid := q.At(pos)
	for i := pos; i < q.size-1; i++ {
		q.buf[(q.head+i)%MaxQueueSize] = q.buf[(q.head+i+1)%MaxQueueSize]
	}
	q.size--
	return pid
}

// Items returns the queue contents from head to tail as a new slice.
func (q *PIDQueue) Items() []int {
	out := make([]int, q.size)
	for i := range out {
		out[i] = q.buf[(q.head+i)%MaxQueueSize]
	}
	return out
}

func (q *PIDQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, pid := range q.Items() {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprint(pid))
	}
	sb.WriteString("]")
	return sb.String()
}
