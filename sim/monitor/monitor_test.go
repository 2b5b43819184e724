package monitor_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/inference-sim/ossim/sim"
	"github.com/inference-sim/ossim/sim/monitor"
)

var _ = Describe("Monitor", func() {
	var (
		m      *monitor.Monitor
		s      *sim.System
		server *httptest.Server
	)

	call := func(method, path, body string) *http.Response {
		req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
		Expect(err).ToNot(HaveOccurred())
		rsp, err := http.DefaultClient.Do(req)
		Expect(err).ToNot(HaveOccurred())
		return rsp
	}

	decode := func(rsp *http.Response, v any) {
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(rsp.Body).Decode(v)).To(Succeed())
	}

	BeforeEach(func() {
		m = monitor.NewMonitor()
		var err error
		s, err = sim.Initialize(sim.PolicyRoundRobin, 2, m)
		Expect(err).ToNot(HaveOccurred())
		m.RegisterSystem(s)
		server = httptest.NewServer(m.Handler())
	})

	AfterEach(func() {
		server.Close()
	})

	Context("without a registered system", func() {
		It("should answer 503", func() {
			empty := httptest.NewServer(monitor.NewMonitor().Handler())
			defer empty.Close()

			rsp, err := http.Get(empty.URL + "/api/state")

			Expect(err).ToNot(HaveOccurred())
			Expect(rsp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Context("with a loaded program", func() {
		BeforeEach(func() {
			_, err := s.Load([]string{"assign x 5", "print x"})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should report the initial state", func() {
			var state monitor.StateRsp
			decode(call(http.MethodGet, "/api/state", ""), &state)

			Expect(state.Clock).To(BeEquivalentTo(0))
			Expect(state.Policy).To(Equal(sim.PolicyRoundRobin))
			Expect(state.Processes).To(HaveLen(1))
			Expect(state.Processes[0].State).To(Equal(sim.StateNew))
			Expect(state.Updates).To(BeNumerically(">", 0))
		})

		It("should step one cycle at a time", func() {
			var state monitor.StateRsp
			decode(call(http.MethodPost, "/api/step", ""), &state)

			Expect(state.Clock).To(BeEquivalentTo(1))
			Expect(state.Running).To(Equal(0))
			Expect(state.Processes[0].Variables).To(HaveKeyWithValue("x", "5"))
		})

		It("should run to completion and collect output", func() {
			var run monitor.RunRsp
			decode(call(http.MethodPost, "/api/run?cycles=50", ""), &run)
			Expect(run.Complete).To(BeTrue())
			Expect(run.Cycles).To(BeEquivalentTo(2))
			Expect(run.Stopped).To(BeEmpty())

			var outputs []monitor.Output
			decode(call(http.MethodGet, "/api/output", ""), &outputs)
			Expect(outputs).To(Equal([]monitor.Output{{Seq: 0, PID: 0, Text: "5"}}))
		})

		It("should reject a malformed cycle count", func() {
			rsp := call(http.MethodPost, "/api/run?cycles=abc", "")
			Expect(rsp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should page the log", func() {
			var first monitor.LogRsp
			decode(call(http.MethodGet, "/api/log", ""), &first)
			Expect(first.Lines).To(ContainElement("System initialized (RR, RRQ=2)"))

			call(http.MethodPost, "/api/step", "").Body.Close()

			var next monitor.LogRsp
			decode(call(http.MethodGet, "/api/log?since="+strconv.Itoa(first.Next), ""), &next)
			Expect(next.Lines).To(ContainElement("--- Clock Cycle 0 ---"))
			Expect(next.Lines).ToNot(ContainElement("System initialized (RR, RRQ=2)"))
		})

		It("should dump a process", func() {
			rsp := call(http.MethodGet, "/api/process/0", "")
			defer rsp.Body.Close()
			Expect(rsp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(rsp.Body)
			Expect(err).ToNot(HaveOccurred())
			Expect(body).ToNot(BeEmpty())
		})

		It("should answer 404 for an unknown process", func() {
			rsp := call(http.MethodGet, "/api/process/7", "")
			Expect(rsp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should reset the simulation", func() {
			call(http.MethodPost, "/api/step", "").Body.Close()

			var state monitor.StateRsp
			decode(call(http.MethodPost, "/api/reset", ""), &state)

			Expect(state.Clock).To(BeEquivalentTo(0))
			Expect(state.Processes).To(BeEmpty())
			Expect(state.Outputs).To(Equal(0))
		})
	})

	Context("when a program asks for input", func() {
		BeforeEach(func() {
			_, err := s.Load([]string{"assign name input", "print name"})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should stop running and resume after input", func() {
			var run monitor.RunRsp
			decode(call(http.MethodPost, "/api/run", ""), &run)
			Expect(run.Complete).To(BeFalse())
			Expect(run.Stopped).To(ContainSubstring("input"))

			var state monitor.StateRsp
			decode(call(http.MethodGet, "/api/state", ""), &state)
			Expect(state.PendingInput).To(Equal(&sim.PendingInput{PID: 0, Variable: "name"}))
			Expect(state.InputRequests).To(Equal(1))

			var after monitor.StateRsp
			decode(call(http.MethodPost, "/api/input", `{"text":"ada"}`), &after)
			Expect(after.PendingInput).To(BeNil())

			decode(call(http.MethodPost, "/api/run", ""), &run)
			Expect(run.Complete).To(BeTrue())

			var outputs []monitor.Output
			decode(call(http.MethodGet, "/api/output", ""), &outputs)
			Expect(outputs).To(HaveLen(1))
			Expect(outputs[0].Text).To(Equal("ada"))
		})

		It("should refuse input when none is pending", func() {
			rsp := call(http.MethodPost, "/api/input", `{"text":"early"}`)
			Expect(rsp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should refuse a malformed body", func() {
			rsp := call(http.MethodPost, "/api/input", `not json`)
			Expect(rsp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	It("should report host resources", func() {
		var rsp map[string]any
		decode(call(http.MethodGet, "/api/resource", ""), &rsp)
		Expect(rsp).To(HaveKey("cpu_percent"))
		Expect(rsp).To(HaveKey("memory_size"))
	})

	It("should reject wrong methods", func() {
		rsp := call(http.MethodGet, "/api/step", "")
		Expect(rsp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
	})
})
