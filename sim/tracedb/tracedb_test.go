package tracedb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/ossim/sim"
	"github.com/inference-sim/ossim/sim/trace"
)

func TestWriter_PathUsesRunID(t *testing.T) {
	w := NewWriter("/tmp/traces", "abc")
	assert.Equal(t, "abc", w.RunID())
	assert.Equal(t, filepath.Join("/tmp/traces", "ossim_abc.sqlite3"), w.Path())

	generated := NewWriter("", "")
	assert.NotEmpty(t, generated.RunID())
	assert.True(t, strings.HasPrefix(generated.Path(), "ossim_"))
}

func TestWriter_RoundTrip(t *testing.T) {
	// GIVEN a traced run of two programs
	cfg := sim.DefaultConfig()
	cfg.Policy = sim.PolicyRoundRobin
	cfg.Trace = trace.Config{Level: trace.LevelTransitions}
	s, err := sim.New(cfg, nil)
	require.NoError(t, err)
	_, err = s.Load([]string{"assign x 5", "print x"})
	require.NoError(t, err)
	_, err = s.Load([]string{"assign y 6", "print y"})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), 100, nil)
	require.NoError(t, err)

	// WHEN the trace is written and read back
	w := NewWriter(t.TempDir(), "run1")
	require.NoError(t, w.Init())
	require.NoError(t, w.WriteTrace(s.Trace()))
	require.NoError(t, w.Close())

	r, err := OpenReader(w.Path())
	require.NoError(t, err)
	defer r.Close()

	// THEN every record survives in order
	all, err := r.ListTransitions(-1)
	require.NoError(t, err)
	assert.Equal(t, s.Trace().Transitions, all)

	p0, err := r.ListTransitions(0)
	require.NoError(t, err)
	for _, tr := range p0 {
		assert.Equal(t, 0, tr.PID)
	}
	assert.Equal(t, "terminated", p0[len(p0)-1].To)

	outs, err := r.ListOutputs()
	require.NoError(t, err)
	assert.Equal(t, s.Trace().Outputs, outs)
}

func TestWriter_Init_RefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "dup")
	require.NoError(t, w.Init())
	require.NoError(t, w.Close())

	again := NewWriter(dir, "dup")
	assert.Error(t, again.Init())
}

func TestWriter_FlushesWhenBatchFull(t *testing.T) {
	w := NewWriter(t.TempDir(), "batch")
	require.NoError(t, w.Init())
	defer w.Close()
	w.batchSize = 2

	require.NoError(t, w.WriteOutput(trace.OutputRecord{Clock: 1, PID: 0, Text: "a"}))
	assert.Len(t, w.outputs, 1)
	require.NoError(t, w.WriteTransition(trace.TransitionRecord{Clock: 1, PID: 0, From: "new", To: "ready"}))

	assert.Empty(t, w.outputs)
	assert.Empty(t, w.transitions)
}

func isOpen(w *Writer) bool {
	openMu.Lock()
	defer openMu.Unlock()
	_, ok := openWriters[w]
	return ok
}

func TestWriter_ExitFlushTracksOnlyOpenWriters(t *testing.T) {
	// GIVEN a writer that was created but never initialized
	idle := NewWriter(t.TempDir(), "idle")
	assert.False(t, isOpen(idle))

	// WHEN another writer is initialized and buffers a record
	dir := t.TempDir()
	w := NewWriter(dir, "open")
	require.NoError(t, w.Init())
	require.NoError(t, w.WriteOutput(trace.OutputRecord{Clock: 2, PID: 1, Text: "pending"}))

	// THEN it is flushed by the exit handler
	assert.True(t, isOpen(w))
	flushOpenWriters()
	assert.Empty(t, w.outputs)

	// AND closing it releases it
	require.NoError(t, w.Close())
	assert.False(t, isOpen(w))

	r, err := OpenReader(w.Path())
	require.NoError(t, err)
	defer r.Close()
	outs, err := r.ListOutputs()
	require.NoError(t, err)
	assert.Equal(t, []trace.OutputRecord{{Clock: 2, PID: 1, Text: "pending"}}, outs)
}

func TestOpenReader_Missing(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "nope.sqlite3"))
	assert.Error(t, err)
}
