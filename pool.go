package mppfc

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"

	"mppfc/internal/worklist"
	"mppfc/internal/workerpool"
)

// poolState tracks the worker pool registered for the current start→join
// epoch. It is not generic over Args/T: workerpool.Pool is type-erased,
// with the Args/T-specific work happening inside the Task closures built by
// Start.
type poolState struct {
	pool    *workerpool.Pool
	epoch   uuid.UUID
	numProc int
}

// Start issues numProc workers that pull admitted calls from the work
// queue and evaluate fn in write-through mode. numProc is parsed by
// ParseNumProc. Start refuses (returning false, nil) if a previous set of
// workers is still registered; call Wait, Join, or Terminate first.
func (w *Wrapper[Args, T]) Start(numProc any) (bool, error) {
	cores := runtime.NumCPU()
	n, err := ParseNumProc(numProc, cores)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != nil {
		return false, nil
	}

	pool := workerpool.New(w.list, func(item worklist.Item) workerpool.Task {
		return workerpool.Task{
			Hash: item.Hash,
			Run: func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				args := item.Args.(Args)
				v, ferr := w.fn(args)
				if ferr != nil {
					return ferr
				}
				return w.writeEntry(item.Hash, v)
			},
		}
	})
	if err := pool.Start(n); err != nil {
		return false, err
	}

	st := &poolState{pool: pool, epoch: uuid.New(), numProc: n}
	w.active = st
	w.logger.Info("pool started", "func", w.name, "workers", n, "epoch", st.epoch.String())
	return true, nil
}

// Wait blocks until the queue and pending set are both empty, optionally
// logging a status line every statusInterval (no logging if <= 0), then
// performs Join(0). It returns Join's result.
func (w *Wrapper[Args, T]) Wait(statusInterval time.Duration) bool {
	const pollEvery = 20 * time.Millisecond
	var sinceLastStatus time.Duration

	for {
		w.mu.Lock()
		active := w.active
		w.mu.Unlock()
		if active == nil {
			return true
		}
		if w.list.Len() == 0 && w.list.PendingCount() == 0 {
			break
		}
		time.Sleep(pollEvery)
		sinceLastStatus += pollEvery
		if statusInterval > 0 && sinceLastStatus >= statusInterval {
			sinceLastStatus = 0
			w.logStatus()
		}
	}
	return w.Join(0)
}

// Join sets the cooperative stop signal and waits up to timeout (<=0 means
// forever) for every worker to exit; in-flight calls run to completion. It
// returns true iff all workers exited, clearing the registry on success.
func (w *Wrapper[Args, T]) Join(timeout time.Duration) bool {
	w.mu.Lock()
	st := w.active
	w.mu.Unlock()
	if st == nil {
		return true
	}

	ok := st.pool.Join(timeout)
	if ok {
		w.mu.Lock()
		w.active = nil
		w.mu.Unlock()
	}
	return ok
}

// Terminate sets the stop signal and cancels the per-call context passed to
// in-flight Tasks, then behaves like Join. Start's Task bodies check the
// context only before invoking fn, so a call already inside fn keeps
// running until fn returns — Go has no portable way to preempt a running
// goroutine from the outside.
func (w *Wrapper[Args, T]) Terminate(timeout time.Duration) bool {
	w.mu.Lock()
	st := w.active
	w.mu.Unlock()
	if st == nil {
		return true
	}

	ok := st.pool.Terminate(timeout)
	if ok {
		w.mu.Lock()
		w.active = nil
		w.mu.Unlock()
	}
	return ok
}

// Kill forcibly abandons the worker registry with no chance for workers to
// clean up, leaving the pending set as-is. A last resort.
func (w *Wrapper[Args, T]) Kill() {
	w.mu.Lock()
	st := w.active
	w.active = nil
	w.mu.Unlock()
	if st != nil {
		st.pool.Kill()
	}
}
