package sim

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Collaborator receives every observable effect of the simulation.
// The core always calls through this interface; NopCollaborator covers the
// headless case.
type Collaborator interface {
	// LogMessage receives diagnostic and trace lines.
	LogMessage(text string)
	// ProcessOutput receives the results of print and printFromTo.
	ProcessOutput(pid int, text string)
	// RequestInput is called once per "assign <var> input". The front end
	// answers later through System.ProvideInput.
	RequestInput(pid int, varName string)
	// StateUpdate is called after any observable mutation.
	StateUpdate(snap Snapshot)
}

// NopCollaborator discards every notification.
type NopCollaborator struct{}

func (NopCollaborator) LogMessage(string)         {}
func (NopCollaborator) ProcessOutput(int, string) {}
func (NopCollaborator) RequestInput(int, string)  {}
func (NopCollaborator) StateUpdate(Snapshot)      {}

// LogCollaborator forwards log lines and process output to logrus.
// It ignores input requests and state updates, so it is normally combined
// with a front end through Tee.
type LogCollaborator struct {
	Logger logrus.FieldLogger
}

// NewLogCollaborator returns a LogCollaborator writing to the standard logrus logger.
func NewLogCollaborator() *LogCollaborator {
	return &LogCollaborator{Logger: logrus.StandardLogger()}
}

// LogMessage maps "Error…" lines to error level, "Warning…" lines to warn
// level, and everything else to debug level.
func (c *LogCollaborator) LogMessage(text string) {
	switch {
	case strings.HasPrefix(text, "Error"):
		c.Logger.Error(text)
	case strings.HasPrefix(text, "Warning"):
		c.Logger.Warn(text)
	default:
		c.Logger.Debug(text)
	}
}

func (c *LogCollaborator) ProcessOutput(pid int, text string) {
	c.Logger.WithField("pid", pid).Infof("OUTPUT: %s", text)
}

func (c *LogCollaborator) RequestInput(pid int, varName string) {
	c.Logger.WithField("pid", pid).Infof("waiting for input for variable '%s'", varName)
}

func (c *LogCollaborator) StateUpdate(Snapshot) {}

type tee []Collaborator

// Tee fans every notification out to each collaborator in order.
func Tee(cs ...Collaborator) Collaborator {
	return tee(cs)
}

func (t tee) LogMessage(text string) {
	for _, c := range t {
		c.LogMessage(text)
	}
}

func (t tee) ProcessOutput(pid int, text string) {
	for _, c := range t {
		c.ProcessOutput(pid, text)
	}
}

func (t tee) RequestInput(pid int, varName string) {
	for _, c := range t {
		c.RequestInput(pid, varName)
	}
}

func (t tee) StateUpdate(snap Snapshot) {
	for _, c := range t {
		c.StateUpdate(snap)
	}
}
