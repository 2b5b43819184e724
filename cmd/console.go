package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/ossim/sim"
)

// consoleCollaborator prints process output on w; everything else goes
// through the embedded LogCollaborator.
type consoleCollaborator struct {
	*sim.LogCollaborator
	w io.Writer
}

func newConsoleCollaborator(w io.Writer) *consoleCollaborator {
	return &consoleCollaborator{LogCollaborator: sim.NewLogCollaborator(), w: w}
}

func (c *consoleCollaborator) ProcessOutput(pid int, text string) {
	c.LogCollaborator.Logger.WithField("pid", pid).Debugf("OUTPUT: %s", text)
	fmt.Fprintf(c.w, "[pid %d] %s\n", pid, text)
}

// errNoMoreInput is returned when scripted answers run out and there is no
// interactive reader.
var errNoMoreInput = errors.New("no more input")

// scriptedInput answers input requests from a fixed list first, then from
// an interactive reader if one is set.
type scriptedInput struct {
	answers []string
	next    int
	in      *bufio.Reader
	prompt  io.Writer
}

func (si *scriptedInput) NextInput(pid int, variable string) (string, error) {
	if si.next < len(si.answers) {
		v := si.answers[si.next]
		si.next++
		logrus.Debugf("scripted input for pid %d '%s': %q", pid, variable, v)
		return v, nil
	}
	if si.in == nil {
		return "", fmt.Errorf("pid %d variable '%s': %w", pid, variable, errNoMoreInput)
	}
	if si.prompt != nil {
		fmt.Fprintf(si.prompt, "Input for pid %d, variable '%s': ", pid, variable)
	}
	line, err := si.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("reading input for '%s': %w", variable, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
