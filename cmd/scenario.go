package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/ossim/sim"
)

// ProgramSpec names one program script and when it arrives.
type ProgramSpec struct {
	Path    string `yaml:"path"`
	Arrival int64  `yaml:"arrival"`
}

// Scenario is a reproducible run description loaded from YAML.
// Every field must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	Policy     string        `yaml:"policy"`
	Quantum    int           `yaml:"quantum"`
	MLFQQuanta []int         `yaml:"mlfq_quanta"`
	MaxCycles  int64         `yaml:"max_cycles"`
	Programs   []ProgramSpec `yaml:"programs"`
	Inputs     []string      `yaml:"inputs"` // answers for "assign <var> input", in request order
	TraceDB    string        `yaml:"trace_db"`
}

// LoadScenario parses a scenario file. Unknown keys are errors. Relative
// program paths are resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range sc.Programs {
		if p := sc.Programs[i].Path; p != "" && !filepath.IsAbs(p) {
			sc.Programs[i].Path = filepath.Join(base, p)
		}
	}
	return &sc, sc.Validate()
}

// Validate checks the scenario before any program is loaded.
func (sc *Scenario) Validate() error {
	if !sim.IsValidPolicy(sc.Policy) {
		return fmt.Errorf("unknown policy %q; valid: fcfs, rr, mlfq", sc.Policy)
	}
	if sc.Quantum < 0 {
		return fmt.Errorf("quantum must be non-negative, got %d", sc.Quantum)
	}
	if n := len(sc.MLFQQuanta); n != 0 && n != sim.MLFQLevels {
		return fmt.Errorf("mlfq_quanta needs %d values, got %d", sim.MLFQLevels, n)
	}
	if sc.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative, got %d", sc.MaxCycles)
	}
	if len(sc.Programs) > sim.MaxProcesses {
		return fmt.Errorf("%d programs exceed the process table capacity of %d", len(sc.Programs), sim.MaxProcesses)
	}
	for i, p := range sc.Programs {
		if p.Path == "" {
			return fmt.Errorf("program %d has no path", i)
		}
		if p.Arrival < 0 {
			return fmt.Errorf("program %s: arrival must be non-negative, got %d", p.Path, p.Arrival)
		}
	}
	return nil
}

// SimConfig converts the scenario into a core configuration.
func (sc *Scenario) SimConfig() (sim.Config, error) {
	cfg := sim.DefaultConfig()
	policy, err := sim.ParsePolicy(sc.Policy)
	if err != nil {
		return cfg, err
	}
	cfg.Policy = policy
	if sc.Quantum > 0 {
		cfg.Quantum = sc.Quantum
	}
	if len(sc.MLFQQuanta) == sim.MLFQLevels {
		copy(cfg.MLFQQuanta[:], sc.MLFQQuanta)
	}
	return cfg, cfg.Validate()
}

// ParseProgramFlag parses "path" or "path@arrival".
func ParseProgramFlag(v string) (ProgramSpec, error) {
	path, arrival := v, int64(0)
	if i := strings.LastIndex(v, "@"); i >= 0 {
		n, err := strconv.ParseInt(v[i+1:], 10, 64)
		if err != nil || n < 0 {
			return ProgramSpec{}, fmt.Errorf("invalid arrival in %q", v)
		}
		path, arrival = v[:i], n
	}
	if path == "" {
		return ProgramSpec{}, fmt.Errorf("empty program path in %q", v)
	}
	return ProgramSpec{Path: path, Arrival: arrival}, nil
}

// ReadProgram returns the lines of a program script.
func ReadProgram(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening program: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading program %s: %w", path, err)
	}
	return lines, nil
}

// loadPrograms reads every program and loads it into s at its arrival time.
func loadPrograms(s *sim.System, programs []ProgramSpec) error {
	for _, p := range programs {
		lines, err := ReadProgram(p.Path)
		if err != nil {
			return err
		}
		if _, err := s.LoadAt(p.Path, lines, p.Arrival); err != nil {
			return err
		}
	}
	return nil
}
