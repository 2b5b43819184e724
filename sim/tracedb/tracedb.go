// Package tracedb persists simulation traces to SQLite so runs can be
// queried after the process exits.
package tracedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/inference-sim/ossim/sim/trace"
)

const defaultBatchSize = 10000

// Writer buffers trace records and writes them to a SQLite database in
// batches. Each Writer owns one database file named after its run ID.
type Writer struct {
	*sql.DB
	transitionStmt *sql.Stmt
	outputStmt     *sql.Stmt

	runID       string
	path        string
	transitions []trace.TransitionRecord
	outputs     []trace.OutputRecord
	batchSize   int
}

// NewWriter creates a writer for dir/ossim_<runID>.sqlite3. An empty runID
// gets a fresh xid.
func NewWriter(dir, runID string) *Writer {
	if runID == "" {
		runID = xid.New().String()
	}
	w := &Writer{
		runID:     runID,
		path:      filepath.Join(dir, "ossim_"+runID+".sqlite3"),
		batchSize: defaultBatchSize,
	}
	return w
}

// Writers between Init and Close are flushed at program exit.
var (
	openMu      sync.Mutex
	openWriters = map[*Writer]struct{}{}
	exitOnce    sync.Once
)

func track(w *Writer) {
	exitOnce.Do(func() { atexit.Register(flushOpenWriters) })
	openMu.Lock()
	openWriters[w] = struct{}{}
	openMu.Unlock()
}

func untrack(w *Writer) {
	openMu.Lock()
	delete(openWriters, w)
	openMu.Unlock()
}

func flushOpenWriters() {
	openMu.Lock()
	defer openMu.Unlock()
	for w := range openWriters {
		if err := w.Flush(); err != nil {
			logrus.Errorf("tracedb: flush at exit: %v", err)
		}
	}
}

// RunID returns the identifier stored with every record.
func (w *Writer) RunID() string { return w.runID }

// Path returns the database file name.
func (w *Writer) Path() string { return w.path }

// Init creates the database file, its tables and prepared statements.
// It refuses to overwrite an existing file.
func (w *Writer) Init() error {
	if _, err := os.Stat(w.path); err == nil {
		return fmt.Errorf("trace database %s already exists", w.path)
	}
	db, err := sql.Open("sqlite3", w.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", w.path, err)
	}
	w.DB = db

	for _, q := range []string{
		`CREATE TABLE IF NOT EXISTS transitions (
			run_id     VARCHAR(40)  NOT NULL,
			clock      INTEGER      NOT NULL,
			pid        INTEGER      NOT NULL,
			from_state VARCHAR(20)  NOT NULL,
			to_state   VARCHAR(20)  NOT NULL,
			reason     VARCHAR(200)
		);`,
		`CREATE INDEX IF NOT EXISTS transitions_pid_index ON transitions (pid);`,
		`CREATE TABLE IF NOT EXISTS outputs (
			run_id VARCHAR(40) NOT NULL,
			clock  INTEGER     NOT NULL,
			pid    INTEGER     NOT NULL,
			text   TEXT
		);`,
	} {
		if _, err := w.Exec(q); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if w.transitionStmt, err = w.Prepare(
		`INSERT INTO transitions (run_id, clock, pid, from_state, to_state, reason) VALUES (?, ?, ?, ?, ?, ?)`,
	); err != nil {
		return fmt.Errorf("preparing transition insert: %w", err)
	}
	if w.outputStmt, err = w.Prepare(
		`INSERT INTO outputs (run_id, clock, pid, text) VALUES (?, ?, ?, ?)`,
	); err != nil {
		return fmt.Errorf("preparing output insert: %w", err)
	}
	track(w)
	logrus.Infof("Trace is collected in database %s", w.path)
	return nil
}

// WriteTransition buffers one transition record.
func (w *Writer) WriteTransition(r trace.TransitionRecord) error {
	w.transitions = append(w.transitions, r)
	if len(w.transitions)+len(w.outputs) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// WriteOutput buffers one output record.
func (w *Writer) WriteOutput(r trace.OutputRecord) error {
	w.outputs = append(w.outputs, r)
	if len(w.transitions)+len(w.outputs) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// WriteTrace buffers every record of st and flushes.
func (w *Writer) WriteTrace(st *trace.SimulationTrace) error {
	if st == nil {
		return nil
	}
	for _, r := range st.Transitions {
		if err := w.WriteTransition(r); err != nil {
			return err
		}
	}
	for _, r := range st.Outputs {
		if err := w.WriteOutput(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush writes all buffered records in one transaction.
func (w *Writer) Flush() error {
	if w.DB == nil || len(w.transitions)+len(w.outputs) == 0 {
		return nil
	}
	tx, err := w.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, r := range w.transitions {
		if _, err := tx.Stmt(w.transitionStmt).Exec(w.runID, r.Clock, r.PID, r.From, r.To, r.Reason); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting transition %+v: %w", r, err)
		}
	}
	for _, r := range w.outputs {
		if _, err := tx.Stmt(w.outputStmt).Exec(w.runID, r.Clock, r.PID, r.Text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting output %+v: %w", r, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.transitions = nil
	w.outputs = nil
	return nil
}

// Close flushes and closes the database.
func (w *Writer) Close() error {
	if w.DB == nil {
		return nil
	}
	untrack(w)
	if err := w.Flush(); err != nil {
		return err
	}
	err := w.DB.Close()
	w.DB = nil
	return err
}

// Reader queries a database produced by Writer.
type Reader struct {
	*sql.DB
}

// OpenReader opens an existing trace database.
func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	return &Reader{DB: db}, nil
}

// ListTransitions returns the transitions of pid in insertion order, or
// of every process when pid is negative.
func (r *Reader) ListTransitions(pid int) ([]trace.TransitionRecord, error) {
	q := `SELECT clock, pid, from_state, to_state, reason FROM transitions`
	var args []any
	if pid >= 0 {
		q += ` WHERE pid = ?`
		args = append(args, pid)
	}
	q += ` ORDER BY rowid`

	rows, err := r.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trace.TransitionRecord
	for rows.Next() {
		var t trace.TransitionRecord
		if err := rows.Scan(&t.Clock, &t.PID, &t.From, &t.To, &t.Reason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListOutputs returns every output line in insertion order.
func (r *Reader) ListOutputs() ([]trace.OutputRecord, error) {
	rows, err := r.Query(`SELECT clock, pid, text FROM outputs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trace.OutputRecord
	for rows.Next() {
		var o trace.OutputRecord
		if err := rows.Scan(&o.Clock, &o.PID, &o.Text); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
