package trace

// Level controls the verbosity of simulation tracing.
type Level string

const (
	// LevelNone disables tracing (zero overhead).
	LevelNone Level = "none"
	// LevelTransitions captures every process state transition and every output line.
	LevelTransitions Level = "transitions"
)

// validLevels maps accepted trace level strings.
var validLevels = map[Level]bool{
	LevelNone:        true,
	LevelTransitions: true,
	"":               true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Config controls trace collection behavior.
type Config struct {
	Level Level
	RunID string // identifies the run in persisted traces; empty when not persisted
}

// Enabled reports whether records should be collected.
func (c Config) Enabled() bool {
	return c.Level == LevelTransitions
}

// SimulationTrace collects records during one simulation run.
type SimulationTrace struct {
	Config      Config
	Transitions []TransitionRecord
	Outputs     []OutputRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config Config) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Transitions: make([]TransitionRecord, 0),
		Outputs:     make([]OutputRecord, 0),
	}
}

// RecordTransition appends a state transition record.
func (st *SimulationTrace) RecordTransition(record TransitionRecord) {
	st.Transitions = append(st.Transitions, record)
}

// RecordOutput appends an output record.
func (st *SimulationTrace) RecordOutput(record OutputRecord) {
	st.Outputs = append(st.Outputs, record)
}
