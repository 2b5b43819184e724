package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/inference-sim/ossim/sim"
	"github.com/inference-sim/ossim/sim/monitor"
	"github.com/inference-sim/ossim/sim/trace"
	"github.com/inference-sim/ossim/sim/tracedb"
)

var (
	logLevel     string   // Log verbosity level
	policyName   string   // Scheduling policy: fcfs, rr, mlfq
	quantum      int      // Round-robin quantum
	programFlags []string // Program scripts as path[@arrival]
	scenarioPath string   // Scenario YAML file
	inputFlags   []string // Pre-scripted answers for input requests
	maxCycles    int64    // Cycle limit, 0 for none
	traceDBDir   string   // Directory for the SQLite trace, empty to disable
	summary      bool     // Print metrics and per-process summary after the run
	interactive  bool     // Read input answers from stdin once scripted answers run out
	port         int      // Monitor port, 0 for random
	openBrowser  bool     // Open the monitor in a browser
)

// envDefaults maps flags to the environment variables that can preset them.
var envDefaults = map[string]string{
	"log":     "OSSIM_LOG",
	"policy":  "OSSIM_POLICY",
	"quantum": "OSSIM_QUANTUM",
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "ossim",
	Short: "Discrete-time simulator of a simplified operating system",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logrus.Warnf("Ignoring .env: %v", err)
		}
		if err := applyEnvDefaults(cmd); err != nil {
			logrus.Fatalf("%v", err)
		}
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// applyEnvDefaults copies OSSIM_* variables into flags the user did not set.
func applyEnvDefaults(cmd *cobra.Command) error {
	for name, env := range envDefaults {
		v, ok := os.LookupEnv(env)
		if !ok || cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
			continue
		}
		if err := cmd.Flags().Set(name, v); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", env, v, err)
		}
	}
	return nil
}

// buildScenario merges the scenario file (if any) with the flags. Flags
// override scenario values only when the user changed them.
func buildScenario(cmd *cobra.Command) (*Scenario, error) {
	sc := &Scenario{}
	if scenarioPath != "" {
		loaded, err := LoadScenario(scenarioPath)
		if err != nil {
			return nil, err
		}
		sc = loaded
	}
	// Without a scenario every flag applies, defaults included.
	override := func(name string) bool {
		return cmd.Flags().Lookup(name) != nil && (scenarioPath == "" || cmd.Flags().Changed(name))
	}
	if override("policy") {
		sc.Policy = policyName
	}
	if override("quantum") {
		sc.Quantum = quantum
	}
	if override("max-cycles") {
		sc.MaxCycles = maxCycles
	}
	if override("trace-db") {
		sc.TraceDB = traceDBDir
	}
	for _, v := range programFlags {
		p, err := ParseProgramFlag(v)
		if err != nil {
			return nil, err
		}
		sc.Programs = append(sc.Programs, p)
	}
	sc.Inputs = append(sc.Inputs, inputFlags...)
	return sc, sc.Validate()
}

// runOptions are the I/O endpoints of a console run.
type runOptions struct {
	out     io.Writer
	in      io.Reader // nil disables interactive input
	summary bool
}

// runScenario executes sc to completion (or until it stops) on the console.
func runScenario(ctx context.Context, sc *Scenario, opts runOptions) (*sim.System, error) {
	if len(sc.Programs) == 0 {
		return nil, errors.New("no programs given; use --program or --scenario")
	}
	cfg, err := sc.SimConfig()
	if err != nil {
		return nil, err
	}
	if sc.TraceDB != "" || opts.summary {
		cfg.Trace = trace.Config{Level: trace.LevelTransitions, RunID: xid.New().String()}
	}

	s, err := sim.New(cfg, newConsoleCollaborator(opts.out))
	if err != nil {
		return nil, err
	}
	if err := loadPrograms(s, sc.Programs); err != nil {
		return s, err
	}

	inputs := &scriptedInput{answers: sc.Inputs, prompt: opts.out}
	if opts.in != nil {
		inputs.in = bufio.NewReader(opts.in)
	}
	logrus.Infof("Starting simulation: policy=%s, quantum=%d, programs=%d, max cycles=%d",
		cfg.Policy.Label(), cfg.Quantum, len(sc.Programs), sc.MaxCycles)
	cycles, runErr := s.Run(ctx, sc.MaxCycles, inputs)
	logrus.Infof("Simulation stopped after %d cycles (clock %d)", cycles, s.Clock())

	if opts.summary {
		m := s.Metrics()
		m.Print(opts.out)
		printTraceSummary(opts.out, trace.Summarize(s.Trace()))
	}
	if sc.TraceDB != "" {
		if err := persistTrace(sc.TraceDB, s.Trace()); err != nil {
			return s, errors.Join(runErr, err)
		}
	}
	return s, runErr
}

func persistTrace(dir string, st *trace.SimulationTrace) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating trace directory: %w", err)
	}
	w := tracedb.NewWriter(dir, st.Config.RunID)
	if err := w.Init(); err != nil {
		return err
	}
	if err := w.WriteTrace(st); err != nil {
		return err
	}
	return w.Close()
}

// printTraceSummary writes the per-process table computed from the trace.
func printTraceSummary(w io.Writer, s *trace.Summary) {
	fmt.Fprintln(w, "=== Process Summary ===")
	for _, p := range s.Processes {
		fmt.Fprintf(w, "pid %d: arrival=%d first_dispatch=%d finish=%d turnaround=%d response=%d waiting=%d dispatches=%d blocks=%d outputs=%d\n",
			p.PID, p.Arrival, p.FirstDispatch, p.Finish, p.Turnaround, p.Response, p.Waiting, p.Dispatches, p.Blocks, p.Outputs)
	}
	fmt.Fprintf(w, "Mean Turnaround      : %.2f\n", s.MeanTurnaround)
	fmt.Fprintf(w, "Mean Waiting         : %.2f\n", s.MeanWaiting)
}

// runCmd executes the simulation using parameters from CLI flags and the scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run programs to completion on the console",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := buildScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := runOptions{out: os.Stdout, summary: summary}
		if interactive {
			opts.in = os.Stdin
		}
		s, err := runScenario(ctx, sc, opts)
		switch {
		case err == nil:
			logrus.Info("Simulation complete.")
		case errors.Is(err, sim.ErrCycleLimit), errors.Is(err, sim.ErrDeadlock):
			logrus.Warnf("Simulation incomplete: %v", err)
			atexit.Exit(2)
		default:
			if s != nil {
				logrus.Errorf("Simulation stopped at clock %d", s.Clock())
			}
			logrus.Fatalf("%v", err)
		}
	},
}

// serveCmd exposes a simulation through the HTTP monitor.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a simulation over HTTP for step-by-step inspection",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := buildScenario(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg, err := sc.SimConfig()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg.Trace = trace.Config{Level: trace.LevelTransitions, RunID: xid.New().String()}

		m := monitor.NewMonitor().WithPortNumber(port)
		s, err := sim.New(cfg, sim.Tee(sim.NewLogCollaborator(), m))
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := loadPrograms(s, sc.Programs); err != nil {
			logrus.Fatalf("%v", err)
		}
		m.RegisterSystem(s)

		url, err := m.StartServer()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if openBrowser {
			if err := browser.OpenURL(url + "/api/state"); err != nil {
				logrus.Warnf("Could not open browser: %v", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		<-ctx.Done()
		logrus.Info("Monitor stopped.")
	},
}

// validateCmd checks a scenario and its programs without running them.
var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>",
	Short: "Check a scenario file and load its programs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := validateScenario(args[0])
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d programs)\n", args[0], n)
	},
}

// validateScenario loads the scenario and its programs into a throwaway
// system, so capacity errors surface as they would in a real run.
func validateScenario(path string) (int, error) {
	sc, err := LoadScenario(path)
	if err != nil {
		return 0, err
	}
	cfg, err := sc.SimConfig()
	if err != nil {
		return 0, err
	}
	s, err := sim.New(cfg, nil)
	if err != nil {
		return 0, err
	}
	if err := loadPrograms(s, sc.Programs); err != nil {
		return 0, err
	}
	return s.ProcessCount(), nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func addSessionFlags(c *cobra.Command) {
	c.Flags().StringVar(&policyName, "policy", "fcfs", "Scheduling policy (fcfs, rr, mlfq)")
	c.Flags().IntVar(&quantum, "quantum", 1, "Round-robin quantum in cycles")
	c.Flags().StringArrayVar(&programFlags, "program", nil, "Program script as path[@arrival] (repeatable)")
	c.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	addSessionFlags(runCmd)
	runCmd.Flags().StringArrayVar(&inputFlags, "input", nil, "Answer for the next input request (repeatable)")
	runCmd.Flags().Int64Var(&maxCycles, "max-cycles", 10000, "Stop after this many cycles (0 for no limit)")
	runCmd.Flags().StringVar(&traceDBDir, "trace-db", "", "Directory for a SQLite trace of the run")
	runCmd.Flags().BoolVar(&summary, "summary", false, "Print metrics and a per-process summary")
	runCmd.Flags().BoolVar(&interactive, "interactive", false, "Read input answers from stdin after scripted ones run out")

	addSessionFlags(serveCmd)
	serveCmd.Flags().IntVar(&port, "port", 0, "Monitor port (0 for a random port)")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "Open the monitor in a browser")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
}
