// Package monitor turns a simulation into an HTTP server so it can be
// stepped, fed input and inspected from a browser or a script.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/inference-sim/ossim/sim"
)

// maxLogLines bounds the log buffer; older lines are dropped.
const maxLogLines = 10000

// Output is one line of process output as seen by the monitor.
type Output struct {
	Seq  int    `json:"seq"`
	PID  int    `json:"pid"`
	Text string `json:"text"`
}

// Monitor serves a System over HTTP. It is also the System's collaborator:
// log lines, output and input requests are buffered for the API.
//
// sysMu serializes every call into the System. recMu guards the buffers,
// which the System fills through the Collaborator methods while sysMu is
// held, so the two locks never nest the other way round.
type Monitor struct {
	sysMu sync.Mutex
	sys   *sim.System

	recMu     sync.Mutex
	logs      []string
	logOffset int // number of lines dropped from the front of logs
	outputs   []Output
	requests  int
	updates   int

	portNumber      int
	profileDuration time.Duration
}

// NewMonitor creates a Monitor with no system attached.
func NewMonitor() *Monitor {
	return &Monitor{profileDuration: time.Second}
}

// WithPortNumber sets the listening port. Ports below 1000 fall back to a
// random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		if portNumber != 0 {
			logrus.Warnf("Port number %d is not allowed for the monitor, using a random port instead.", portNumber)
		}
		portNumber = 0
	}
	m.portNumber = portNumber
	return m
}

// RegisterSystem attaches the simulation served by the monitor.
func (m *Monitor) RegisterSystem(s *sim.System) {
	m.sysMu.Lock()
	defer m.sysMu.Unlock()
	m.sys = s
}

// LogMessage implements sim.Collaborator.
func (m *Monitor) LogMessage(text string) {
	m.recMu.Lock()
	defer m.recMu.Unlock()
	m.logs = append(m.logs, text)
	if len(m.logs) > maxLogLines {
		drop := len(m.logs) - maxLogLines
		m.logs = append([]string(nil), m.logs[drop:]...)
		m.logOffset += drop
	}
}

// ProcessOutput implements sim.Collaborator.
func (m *Monitor) ProcessOutput(pid int, text string) {
	m.recMu.Lock()
	defer m.recMu.Unlock()
	m.outputs = append(m.outputs, Output{Seq: len(m.outputs), PID: pid, Text: text})
}

// RequestInput implements sim.Collaborator. The request itself is part of
// every snapshot until answered through /api/input.
func (m *Monitor) RequestInput(pid int, varName string) {
	m.recMu.Lock()
	defer m.recMu.Unlock()
	m.requests++
	logrus.WithField("pid", pid).Infof("monitor: waiting for input for variable '%s'", varName)
}

// StateUpdate implements sim.Collaborator. Snapshots are taken on demand,
// so only the count is kept.
func (m *Monitor) StateUpdate(sim.Snapshot) {
	m.recMu.Lock()
	defer m.recMu.Unlock()
	m.updates++
}

// Handler returns the API router.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/state", m.state).Methods(http.MethodGet)
	r.HandleFunc("/api/step", m.step).Methods(http.MethodPost)
	r.HandleFunc("/api/run", m.run).Methods(http.MethodPost)
	r.HandleFunc("/api/input", m.input).Methods(http.MethodPost)
	r.HandleFunc("/api/reset", m.reset).Methods(http.MethodPost)
	r.HandleFunc("/api/log", m.log).Methods(http.MethodGet)
	r.HandleFunc("/api/output", m.output).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics", m.metrics).Methods(http.MethodGet)
	r.HandleFunc("/api/process/{pid:[0-9]+}", m.processDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	return r
}

// StartServer listens on the configured port and serves the API in the
// background. It returns the base URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor listen: %w", err)
	}
	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		if err := http.Serve(listener, m.Handler()); err != nil {
			logrus.Errorf("monitor server stopped: %v", err)
		}
	}()
	return url, nil
}

// withSystem runs f with the System locked, or answers 503 when no system
// is registered.
func (m *Monitor) withSystem(w http.ResponseWriter, f func(s *sim.System)) {
	m.sysMu.Lock()
	defer m.sysMu.Unlock()
	if m.sys == nil {
		http.Error(w, "no simulation registered", http.StatusServiceUnavailable)
		return
	}
	f(m.sys)
}

// StateRsp is the body of /api/state and /api/step.
type StateRsp struct {
	sim.Snapshot
	Outputs       int `json:"outputs"`
	LogSize       int `json:"log_size"`
	InputRequests int `json:"input_requests"`
	Updates       int `json:"updates"`
}

func (m *Monitor) stateRsp(s *sim.System) StateRsp {
	rsp := StateRsp{Snapshot: s.Snapshot()}
	m.recMu.Lock()
	rsp.Outputs = len(m.outputs)
	rsp.LogSize = m.logOffset + len(m.logs)
	rsp.InputRequests = m.requests
	rsp.Updates = m.updates
	m.recMu.Unlock()
	return rsp
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	m.withSystem(w, func(s *sim.System) {
		writeJSON(w, http.StatusOK, m.stateRsp(s))
	})
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	m.withSystem(w, func(s *sim.System) {
		s.Step()
		writeJSON(w, http.StatusOK, m.stateRsp(s))
	})
}

// RunRsp is the body of /api/run.
type RunRsp struct {
	Cycles   int64  `json:"cycles"`
	Clock    int64  `json:"clock"`
	Complete bool   `json:"complete"`
	Stopped  string `json:"stopped,omitempty"`
}

// defaultRunCycles bounds /api/run when no cycles parameter is given.
const defaultRunCycles = 1000

func (m *Monitor) run(w http.ResponseWriter, r *http.Request) {
	cycles := int64(defaultRunCycles)
	if v := r.URL.Query().Get("cycles"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, fmt.Sprintf("invalid cycles %q", v), http.StatusBadRequest)
			return
		}
		cycles = n
	}
	m.withSystem(w, func(s *sim.System) {
		n, err := s.Run(r.Context(), cycles, nil)
		rsp := RunRsp{Cycles: n, Clock: s.Clock(), Complete: s.IsComplete()}
		switch {
		case err == nil:
		case errors.Is(err, sim.ErrInputUnavailable),
			errors.Is(err, sim.ErrCycleLimit),
			errors.Is(err, sim.ErrDeadlock),
			errors.Is(err, context.Canceled):
			rsp.Stopped = err.Error()
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rsp)
	})
}

type inputReq struct {
	Text string `json:"text"`
}

func (m *Monitor) input(w http.ResponseWriter, r *http.Request) {
	var req inputReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid input body: "+err.Error(), http.StatusBadRequest)
		return
	}
	m.withSystem(w, func(s *sim.System) {
		if err := s.ProvideInput(req.Text); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, m.stateRsp(s))
	})
}

func (m *Monitor) reset(w http.ResponseWriter, _ *http.Request) {
	m.withSystem(w, func(s *sim.System) {
		m.recMu.Lock()
		m.logs, m.logOffset, m.outputs, m.requests, m.updates = nil, 0, nil, 0, 0
		m.recMu.Unlock()
		s.Reset()
		writeJSON(w, http.StatusOK, m.stateRsp(s))
	})
}

// LogRsp is the body of /api/log.
type LogRsp struct {
	Next  int      `json:"next"`
	Lines []string `json:"lines"`
}

// log returns the log lines from index ?since= onwards.
func (m *Monitor) log(w http.ResponseWriter, r *http.Request) {
	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid since %q", v), http.StatusBadRequest)
			return
		}
		since = n
	}

	m.recMu.Lock()
	start := since - m.logOffset
	if start < 0 {
		start = 0
	}
	if start > len(m.logs) {
		start = len(m.logs)
	}
	rsp := LogRsp{
		Next:  m.logOffset + len(m.logs),
		Lines: append([]string{}, m.logs[start:]...),
	}
	m.recMu.Unlock()

	writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) output(w http.ResponseWriter, _ *http.Request) {
	m.recMu.Lock()
	out := append([]Output{}, m.outputs...)
	m.recMu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (m *Monitor) metrics(w http.ResponseWriter, _ *http.Request) {
	m.withSystem(w, func(s *sim.System) {
		writeJSON(w, http.StatusOK, s.Metrics())
	})
}

// processDetails dumps one PCB view one level deep.
func (m *Monitor) processDetails(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.Atoi(mux.Vars(r)["pid"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.withSystem(w, func(s *sim.System) {
		view, ok := s.Process(pid)
		if !ok {
			http.Error(w, fmt.Sprintf("process %d not found", pid), http.StatusNotFound)
			return
		}
		serializer := goseth.NewSerializer()
		serializer.SetRoot(&view)
		serializer.SetMaxDepth(1)
		w.Header().Set("Content-Type", "application/json")
		if err := serializer.Serialize(w); err != nil {
			logrus.Errorf("serializing process %d: %v", pid, err)
		}
	})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

// listResources reports the host process's CPU and memory usage.
func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resourceRsp{CPUPercent: cpuPercent, MemorySize: mem.RSS})
}

// collectProfile samples the CPU for profileDuration and returns the
// parsed profile.
func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	time.Sleep(m.profileDuration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logrus.Debugf("monitor: writing response: %v", err)
	}
}
