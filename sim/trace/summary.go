package trace

import "sort"

// ProcessSummary aggregates the transitions of one process.
// Clock fields are -1 when the event never happened.
type ProcessSummary struct {
	PID           int
	Arrival       int64 // clock of the first transition to ready
	FirstDispatch int64 // clock of the first transition to running
	Finish        int64 // clock of the transition to terminated
	Turnaround    int64 // Finish - Arrival, or -1 while unfinished
	Response      int64 // FirstDispatch - Arrival, or -1 before the first dispatch
	Waiting       int64 // cycles spent in ready
	Dispatches    int
	Blocks        int
	Outputs       int
}

// Summary aggregates statistics from a SimulationTrace.
type Summary struct {
	Processes      []ProcessSummary // ordered by PID
	TotalDispatch  int
	TotalBlocks    int
	MeanTurnaround float64 // over finished processes
	MeanWaiting    float64 // over finished processes
}

// Summarize computes per-process statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *Summary {
	summary := &Summary{}
	if st == nil {
		return summary
	}

	byPID := make(map[int]*ProcessSummary)
	readySince := make(map[int]int64)
	get := func(pid int) *ProcessSummary {
		ps, ok := byPID[pid]
		if !ok {
			ps = &ProcessSummary{PID: pid, Arrival: -1, FirstDispatch: -1, Finish: -1, Turnaround: -1, Response: -1}
			byPID[pid] = ps
		}
		return ps
	}

	for _, tr := range st.Transitions {
		ps := get(tr.PID)
		if since, ok := readySince[tr.PID]; ok && tr.From == "ready" {
			ps.Waiting += tr.Clock - since
			delete(readySince, tr.PID)
		}
		switch tr.To {
		case "ready":
			if ps.Arrival < 0 {
				ps.Arrival = tr.Clock
			}
			readySince[tr.PID] = tr.Clock
		case "running":
			ps.Dispatches++
			if ps.FirstDispatch < 0 {
				ps.FirstDispatch = tr.Clock
			}
		case "blocked":
			ps.Blocks++
		case "terminated":
			ps.Finish = tr.Clock
		}
	}
	for _, out := range st.Outputs {
		get(out.PID).Outputs++
	}

	var finished int
	var turnaround, waiting int64
	for _, ps := range byPID {
		if ps.Arrival >= 0 && ps.FirstDispatch >= 0 {
			ps.Response = ps.FirstDispatch - ps.Arrival
		}
		if ps.Arrival >= 0 && ps.Finish >= 0 {
			ps.Turnaround = ps.Finish - ps.Arrival
			turnaround += ps.Turnaround
			waiting += ps.Waiting
			finished++
		}
		summary.TotalDispatch += ps.Dispatches
		summary.TotalBlocks += ps.Blocks
		summary.Processes = append(summary.Processes, *ps)
	}
	sort.Slice(summary.Processes, func(i, j int) bool {
		return summary.Processes[i].PID < summary.Processes[j].PID
	})
	if finished > 0 {
		summary.MeanTurnaround = float64(turnaround) / float64(finished)
		summary.MeanWaiting = float64(waiting) / float64(finished)
	}
	return summary
}
