package batch

import (
	"time"
)

// FileResult records what happened to one input file.
type FileResult struct {
	Input    string
	Output   string
	Archived string
	Err      error
	Duration time.Duration
}

// Report summarises a run.
type Report struct {
	RunID     string
	Processed []FileResult
	Failed    []FileResult
	// Pending lists inputs that were never attempted because the run stopped early.
	Pending   []string
	Duration  time.Duration
	AvgRender time.Duration
}

// OK reports whether every discovered input was processed.
func (r *Report) OK() bool {
	return len(r.Failed) == 0 && len(r.Pending) == 0
}

// FileEvent is the payload of the per-file events fired on the event bus.
type FileEvent struct {
	RunID  string
	Index  int
	Total  int
	Input  string
	Output string
	Err    error
}
