package mppfc

import (
	"fmt"
	"log/slog"
	"time"
)

// Status is a point-in-time snapshot of a wrapper's pool accounting,
// covering one start→join epoch.
type Status struct {
	Epoch      string
	Issued     int64
	Done       int64
	Failed     int64
	Waiting    int64
	InProgress int64
	TotalCPUNs int64
	NumProc    int
}

// AverageTimePerCall is total_cpu_ns / done, zero if nothing has finished.
func (s Status) AverageTimePerCall() time.Duration {
	if s.Done == 0 {
		return 0
	}
	return time.Duration(s.TotalCPUNs / s.Done)
}

// ETA estimates remaining time as average_time_per_call * not_done / num_proc.
func (s Status) ETA() time.Duration {
	if s.Done == 0 || s.NumProc == 0 {
		return 0
	}
	notDone := s.Issued - s.Done
	return s.AverageTimePerCall() * time.Duration(notDone) / time.Duration(s.NumProc)
}

// String renders the one-line snapshot.
func (s Status) String() string {
	return fmt.Sprintf(
		"in_progress=%d waiting=%d done=%d failed=%d issued=%d avg=%s eta=%s",
		s.InProgress, s.Waiting, s.Done, s.Failed, s.Issued,
		s.AverageTimePerCall(), s.ETA(),
	)
}

// Status reports the current pool snapshot. A Wrapper with no active pool
// returns the zero Status.
func (w *Wrapper[Args, T]) Status() Status {
	w.mu.Lock()
	st := w.active
	w.mu.Unlock()
	if st == nil {
		return Status{}
	}

	c := st.pool.Counters()
	waiting := int64(w.list.Len())
	inProgress := c.Issued - waiting - c.Done

	return Status{
		Epoch:      st.epoch.String(),
		Issued:     c.Issued,
		Done:       c.Done,
		Failed:     c.Failed,
		Waiting:    waiting,
		InProgress: inProgress,
		TotalCPUNs: c.TotalCPUNs,
		NumProc:    st.numProc,
	}
}

func (w *Wrapper[Args, T]) logStatus() {
	s := w.Status()
	w.logger.Info("cache status",
		"func", w.name,
		slog.Group("cache",
			"epoch", s.Epoch,
			"in_progress", s.InProgress,
			"waiting", s.Waiting,
			"done", s.Done,
			"failed", s.Failed,
			"issued", s.Issued,
			"avg_per_call", s.AverageTimePerCall().String(),
		),
	)
}
