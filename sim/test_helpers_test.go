package sim

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/ossim/sim/trace"
)

// outputLine is one ProcessOutput call seen by the recorder.
type outputLine struct {
	pid  int
	text string
}

// recorder is a Collaborator that keeps every notification for assertions.
type recorder struct {
	logs    []string
	outputs []outputLine
	inputs  []PendingInput
	snaps   []Snapshot
}

func (r *recorder) LogMessage(text string) { r.logs = append(r.logs, text) }

func (r *recorder) ProcessOutput(pid int, text string) {
	r.outputs = append(r.outputs, outputLine{pid: pid, text: text})
}

func (r *recorder) RequestInput(pid int, varName string) {
	r.inputs = append(r.inputs, PendingInput{PID: pid, Variable: varName})
}

func (r *recorder) StateUpdate(snap Snapshot) { r.snaps = append(r.snaps, snap) }

// texts returns the output lines without their pids.
func (r *recorder) texts() []string {
	out := make([]string, len(r.outputs))
	for i, o := range r.outputs {
		out[i] = o.text
	}
	return out
}

// logged reports whether any log line contains substr.
func (r *recorder) logged(substr string) bool {
	for _, l := range r.logs {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// memFS is an in-memory FileSystem.
type memFS map[string][]byte

func (m memFS) ReadFile(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m memFS) WriteFile(name string, data []byte) error {
	m[name] = append([]byte(nil), data...)
	return nil
}

// newTestSystem builds a traced System backed by an in-memory file system.
func newTestSystem(t *testing.T, policy Policy, quantum int) (*System, *recorder) {
	t.Helper()
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Policy = policy
	cfg.Quantum = quantum
	cfg.Files = memFS{}
	cfg.Trace = trace.Config{Level: trace.LevelTransitions, RunID: t.Name()}
	s, err := New(cfg, rec)
	require.NoError(t, err)
	return s, rec
}

// mustLoad loads an unnamed program at the current clock.
func mustLoad(t *testing.T, s *System, lines ...string) int {
	t.Helper()
	pid, err := s.Load(lines)
	require.NoError(t, err)
	require.NotEqual(t, NoProcess, pid)
	return pid
}

// repeat returns n copies of line.
func repeat(line string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = line
	}
	return out
}

// stepN steps n times, checking after each step that at most one process runs.
func stepN(t *testing.T, s *System, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s.Step()
		assertSingleRunner(t, s)
	}
}

// runToCompletion runs with a generous cycle limit and no input source.
func runToCompletion(t *testing.T, s *System) {
	t.Helper()
	_, err := s.Run(context.Background(), 1000, nil)
	require.NoError(t, err)
	require.True(t, s.IsComplete())
}

func assertSingleRunner(t *testing.T, s *System) {
	t.Helper()
	running := 0
	for _, p := range s.table.All() {
		if p.State == StateRunning {
			running++
			require.Equal(t, p.ID, s.Running(), "running pointer must name the Running process")
		}
	}
	require.LessOrEqual(t, running, 1, "more than one process Running at clock %d", s.Clock())
}

func mustProcess(t *testing.T, s *System, pid int) ProcessView {
	t.Helper()
	p, ok := s.Process(pid)
	require.True(t, ok, "pid %d not loaded", pid)
	return p
}
