// Implements the instruction interpreter: decoding a script line and
// dispatching it to the command handlers.

package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// maxFields is the command plus up to three arguments; extra words are ignored.
const maxFields = 4

// instruction is one decoded script line.
type instruction struct {
	command string
	args    []string
}

func decode(line string) instruction {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return instruction{}
	}
	if len(fields) > maxFields {
		fields = fields[:maxFields]
	}
	return instruction{command: fields[0], args: fields[1:]}
}

// require checks the instruction has at least n arguments.
func (in instruction) require(n int) error {
	if len(in.args) < n {
		return fmt.Errorf("%s needs %d argument(s), got %d: %w", in.command, n, len(in.args), ErrMalformed)
	}
	return nil
}

// handler executes one command for p. done is false when the instruction
// did not complete (it blocked or is waiting for input), so the program
// counter must not advance.
type handler func(s *System, p *Process, in instruction) (done bool, err error)

var handlers = map[string]handler{
	"print":       (*System).execPrint,
	"assign":      (*System).execAssign,
	"writeFile":   (*System).execWriteFile,
	"readFile":    (*System).execReadFile,
	"printFromTo": (*System).execPrintFromTo,
	"semWait":     (*System).execSemWait,
	"semSignal":   (*System).execSemSignal,
}

// interpret executes the instruction at p.PC. Any error terminates p.
func (s *System) interpret(p *Process) {
	line, ok := p.Instruction(p.PC)
	if !ok {
		s.logf("%s reached end of program (PC=%d, InstCount=%d). Terminating.", p.Label(), p.PC, p.InstructionCount())
		s.terminate(p, "end of program")
		return
	}
	s.logf("%s Executing [PC=%d]: %s", p.Label(), p.PC, line)
	s.metrics.Instructions++

	in := decode(line)
	done, err := true, error(nil)
	if in.command == "" {
		s.logf("%s: NOP", p.Label())
	} else if h, ok := handlers[in.command]; ok {
		done, err = h(s, p, in)
	} else {
		err = fmt.Errorf("command '%s': %w", in.command, ErrUnknownCommand)
	}

	if err != nil {
		s.fail(p, err)
		return
	}
	if done {
		s.advance(p)
	}
}

// advance moves p past a completed instruction, terminating it at the end
// of its program. It does nothing unless p is still Running.
func (s *System) advance(p *Process) {
	if p.State != StateRunning {
		return
	}
	p.PC++
	if p.PC >= p.InstructionCount() {
		s.logf("%s finished program.", p.Label())
		s.terminate(p, "end of program")
	}
}

func (s *System) execPrint(p *Process, in instruction) (bool, error) {
	if err := in.require(1); err != nil {
		return false, err
	}
	v, err := s.getVariable(p, in.args[0])
	if err != nil {
		return false, err
	}
	s.output(p, v)
	return true, nil
}

func (s *System) execAssign(p *Process, in instruction) (bool, error) {
	if err := in.require(2); err != nil {
		return false, err
	}
	name, source := in.args[0], in.args[1]
	switch {
	case source == "input":
		if err := checkName("set", name); err != nil {
			return false, err
		}
		s.input = inputRequest{pending: true, pid: p.ID, variable: name}
		s.logf("%s requests input for variable '%s'.", p.Label(), name)
		s.collab.RequestInput(p.ID, name)
		s.notify()
		return false, nil
	case source == "readFile" && len(in.args) >= 3:
		content, err := s.readInto(p, in.args[2])
		if err != nil {
			return false, err
		}
		return true, s.setVariable(p, name, content)
	default:
		return true, s.setVariable(p, name, source)
	}
}

func (s *System) execWriteFile(p *Process, in instruction) (bool, error) {
	if err := in.require(2); err != nil {
		return false, err
	}
	filename, err := s.getVariable(p, in.args[0])
	if err != nil {
		return false, err
	}
	data, err := s.getVariable(p, in.args[1])
	if err != nil {
		return false, err
	}
	if err := s.files.WriteFile(filename, []byte(data)); err != nil {
		return false, fmt.Errorf("writing file '%s': %w", filename, err)
	}
	s.logf("%s wrote to file '%s'.", p.Label(), filename)
	return true, nil
}

func (s *System) execReadFile(p *Process, in instruction) (bool, error) {
	if err := in.require(1); err != nil {
		return false, err
	}
	_, err := s.readInto(p, in.args[0])
	return err == nil, err
}

// readInto reads the file named by fileVar and stages the content in
// file_<fileVar>. Content past FileContentLimit bytes is dropped.
func (s *System) readInto(p *Process, fileVar string) (string, error) {
	filename, err := s.getVariable(p, fileVar)
	if err != nil {
		return "", err
	}
	data, err := s.files.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("reading file '%s': %w", filename, err)
	}
	content := string(data)
	if len(content) > FileContentLimit {
		s.logf("Warning: %s file '%s' truncated to %d bytes.", p.Label(), filename, FileContentLimit)
		content = content[:FileContentLimit]
	}
	if err := s.setVariable(p, fileVarPrefix+fileVar, content); err != nil {
		return "", err
	}
	s.logf("%s read file '%s' into '%s%s'.", p.Label(), filename, fileVarPrefix, fileVar)
	return content, nil
}

func (s *System) execPrintFromTo(p *Process, in instruction) (bool, error) {
	if err := in.require(2); err != nil {
		return false, err
	}
	from, err := s.numericVariable(p, in.args[0])
	if err != nil {
		return false, err
	}
	to, err := s.numericVariable(p, in.args[1])
	if err != nil {
		return false, err
	}

	step := int64(1)
	if from > to {
		step = -1
	}
	var b strings.Builder
	for i := from; ; i += step {
		n := strconv.FormatInt(i, 10)
		if b.Len() > 0 {
			n = " " + n
		}
		if b.Len()+len(n) > OutputLimit {
			s.logf("Warning: %s printFromTo output truncated at %d bytes.", p.Label(), OutputLimit)
			break
		}
		b.WriteString(n)
		if i == to {
			break
		}
	}
	s.output(p, b.String())
	return true, nil
}

// numericVariable reads a variable and parses it as a base-10 integer.
func (s *System) numericVariable(p *Process, name string) (int64, error) {
	v, err := s.getVariable(p, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("variable '%s' = %q: %w", name, v, ErrNotNumeric)
	}
	return n, nil
}

func (s *System) execSemWait(p *Process, in instruction) (bool, error) {
	if err := in.require(1); err != nil {
		return false, err
	}
	r, err := ParseResource(in.args[0])
	if err != nil {
		return false, err
	}
	blocked, err := s.semWait(p, r)
	return !blocked && err == nil, err
}

func (s *System) execSemSignal(p *Process, in instruction) (bool, error) {
	if err := in.require(1); err != nil {
		return false, err
	}
	r, err := ParseResource(in.args[0])
	if err != nil {
		return false, err
	}
	if err := s.semSignal(p, r); err != nil {
		return false, err
	}
	return true, nil
}
