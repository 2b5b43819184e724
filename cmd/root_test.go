package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/ossim/sim"
	"github.com/inference-sim/ossim/sim/tracedb"
)

// newRunTestCmd builds a command with the run flags bound to the package
// globals, reset to their defaults.
func newRunTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "run"}
	addSessionFlags(c)
	c.Flags().StringArrayVar(&inputFlags, "input", nil, "")
	c.Flags().Int64Var(&maxCycles, "max-cycles", 10000, "")
	c.Flags().StringVar(&traceDBDir, "trace-db", "", "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestBuildScenario_FlagsOverrideOnlyWhenChanged(t *testing.T) {
	// GIVEN a scenario with rr, quantum 3 and one input
	dir := t.TempDir()
	path := writeFile(t, dir, "s.yaml", "policy: rr\nquantum: 3\nmax_cycles: 50\ninputs: [\"a\"]\n")

	// WHEN only --quantum and extra programs/inputs are passed
	c := newRunTestCmd(t, "--scenario", path, "--quantum", "5", "--program", "p.txt@2", "--input", "b")
	sc, err := buildScenario(c)

	// THEN the changed flag wins and untouched scenario values survive
	require.NoError(t, err)
	assert.Equal(t, "rr", sc.Policy, "--policy default must not override the scenario")
	assert.Equal(t, 5, sc.Quantum)
	assert.Equal(t, int64(50), sc.MaxCycles, "--max-cycles default must not override the scenario")
	assert.Equal(t, []ProgramSpec{{Path: "p.txt", Arrival: 2}}, sc.Programs)
	assert.Equal(t, []string{"a", "b"}, sc.Inputs)
}

func TestBuildScenario_NoScenarioUsesFlagDefaults(t *testing.T) {
	c := newRunTestCmd(t, "--program", "p.txt")

	sc, err := buildScenario(c)

	require.NoError(t, err)
	assert.Equal(t, "fcfs", sc.Policy)
	assert.Equal(t, 1, sc.Quantum)
	assert.Equal(t, int64(10000), sc.MaxCycles)
}

func TestBuildScenario_InvalidPolicyFlag(t *testing.T) {
	c := newRunTestCmd(t, "--policy", "lottery")

	_, err := buildScenario(c)

	assert.Error(t, err)
}

func TestApplyEnvDefaults(t *testing.T) {
	// GIVEN OSSIM_POLICY and OSSIM_QUANTUM in the environment
	t.Setenv("OSSIM_POLICY", "mlfq")
	t.Setenv("OSSIM_QUANTUM", "4")

	// WHEN --quantum is passed explicitly
	c := newRunTestCmd(t, "--quantum", "2")
	require.NoError(t, applyEnvDefaults(c))

	// THEN the environment presets only the flag left unset
	assert.Equal(t, "mlfq", policyName)
	assert.Equal(t, 2, quantum)
}

func TestApplyEnvDefaults_InvalidValue(t *testing.T) {
	t.Setenv("OSSIM_QUANTUM", "many")

	c := newRunTestCmd(t)

	assert.Error(t, applyEnvDefaults(c))
}

func TestRunScenario_EndToEnd(t *testing.T) {
	// GIVEN an interactive program and a counting program under FCFS
	dir := t.TempDir()
	greet := writeFile(t, dir, "greet.txt", "assign name input\nprint name\n")
	count := writeFile(t, dir, "count.txt", "assign a 1\nassign b 3\nprintFromTo a b\n")
	sc := &Scenario{
		Policy:    "fcfs",
		MaxCycles: 100,
		Programs:  []ProgramSpec{{Path: greet}, {Path: count}},
		Inputs:    []string{"ada"},
		TraceDB:   filepath.Join(dir, "traces"),
	}

	// WHEN it runs with a summary
	var out bytes.Buffer
	s, err := runScenario(context.Background(), sc, runOptions{out: &out, summary: true})

	// THEN both programs complete and print in order
	require.NoError(t, err)
	assert.True(t, s.IsComplete())
	text := out.String()
	assert.Contains(t, text, "[pid 0] ada\n[pid 1] 1 2 3\n")
	assert.Contains(t, text, "=== Simulation Metrics ===")
	assert.Contains(t, text, "=== Process Summary ===")

	// AND the trace database holds both outputs
	matches, err := filepath.Glob(filepath.Join(sc.TraceDB, "ossim_*.sqlite3"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	r, err := tracedb.OpenReader(matches[0])
	require.NoError(t, err)
	defer r.Close()
	outputs, err := r.ListOutputs()
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "1 2 3", outputs[1].Text)
}

func TestRunScenario_ReadsStdinAfterScriptedInputs(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "p.txt", "assign x input\nassign y input\nprint y\n")
	sc := &Scenario{Programs: []ProgramSpec{{Path: prog}}, Inputs: []string{"one"}}

	var out bytes.Buffer
	_, err := runScenario(context.Background(), sc, runOptions{out: &out, in: strings.NewReader("two\n")})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Input for pid 0, variable 'y': ")
	assert.Contains(t, out.String(), "[pid 0] two\n")
}

func TestRunScenario_CycleLimit(t *testing.T) {
	prog := writeFile(t, t.TempDir(), "p.txt", "assign a 1\nassign b 2\nassign c 3\n")
	sc := &Scenario{MaxCycles: 2, Programs: []ProgramSpec{{Path: prog}}}

	s, err := runScenario(context.Background(), sc, runOptions{out: &bytes.Buffer{}})

	assert.True(t, errors.Is(err, sim.ErrCycleLimit))
	assert.Equal(t, int64(2), s.Clock())
}

func TestRunScenario_NoPrograms(t *testing.T) {
	_, err := runScenario(context.Background(), &Scenario{}, runOptions{out: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestRunScenario_RunsOutOfInput(t *testing.T) {
	prog := writeFile(t, t.TempDir(), "p.txt", "assign x input\n")
	sc := &Scenario{Programs: []ProgramSpec{{Path: prog}}}

	_, err := runScenario(context.Background(), sc, runOptions{out: &bytes.Buffer{}})

	assert.True(t, errors.Is(err, errNoMoreInput))
}

func TestValidateScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "print x\n")
	writeFile(t, dir, "b.txt", "assign y 2\nprint y\n")
	good := writeFile(t, dir, "good.yaml", "policy: mlfq\nprograms:\n  - path: a.txt\n  - path: b.txt\n    arrival: 3\n")
	missing := writeFile(t, dir, "missing.yaml", "programs:\n  - path: nope.txt\n")

	n, err := validateScenario(good)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = validateScenario(missing)
	assert.Error(t, err)
}
