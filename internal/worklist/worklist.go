// Package worklist implements the admission queue for pool-mode calls: a
// FIFO of pending work, a set tracking which hashes are currently admitted,
// and a record of hashes whose most recent attempt failed. A single mutex
// guards all three, matching the "check pending-set, then insert" protocol
// that must be atomic for exactly-once admission to hold.
package worklist

import (
	"container/list"
	"runtime"
	"sync"

	digest "github.com/opencontainers/go-digest"
)

// Outcome reports what Enqueue did with a submission.
type Outcome int

const (
	// Admitted means the hash was not pending and had no failure recorded;
	// it has now been added to the FIFO and the pending set.
	Admitted Outcome = iota
	// AlreadyPending means a call for this hash is already queued or
	// in flight; the submission was not re-enqueued.
	AlreadyPending
	// PreviouslyFailed means the hash's last attempt recorded a failure
	// that has not been cleared; the submission was not re-enqueued.
	PreviouslyFailed
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case AlreadyPending:
		return "already-pending"
	case PreviouslyFailed:
		return "previously-failed"
	default:
		return "unknown"
	}
}

// Failure records a failed attempt for a hash, including the stack at the
// point of failure so a later status report can point at where work broke.
type Failure struct {
	Err   error
	Stack []uintptr
}

// Item is one FIFO entry: the hash to compute and the arguments needed to
// actually perform the call, opaque to worklist itself.
type Item struct {
	Hash digest.Digest
	Args any
}

// List is the admission queue described in package doc. The zero value is
// not usable; construct with New.
type List struct {
	mu       sync.Mutex
	fifo     *list.List
	pending  map[digest.Digest]struct{}
	failures map[digest.Digest]*Failure
}

// New returns an empty List.
func New() *List {
	return &List{
		fifo:     list.New(),
		pending:  make(map[digest.Digest]struct{}),
		failures: make(map[digest.Digest]*Failure),
	}
}

// Enqueue attempts to admit args for hash h. It is the only exported
// mutation that can transition a hash from absent to pending, and it does
// the pending-set check and insert under a single lock so two concurrent
// Enqueue calls for the same hash can never both observe Admitted.
func (l *List) Enqueue(h digest.Digest, args any) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, failed := l.failures[h]; failed {
		return PreviouslyFailed
	}
	if _, pending := l.pending[h]; pending {
		return AlreadyPending
	}

	l.pending[h] = struct{}{}
	l.fifo.PushBack(Item{Hash: h, Args: args})
	return Admitted
}

// Pop removes and returns the item at the front of the FIFO. ok is false if
// the queue is empty. Popping does not clear the pending set — the item is
// still being worked until Done or Fail is called.
func (l *List) Pop() (item Item, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	front := l.fifo.Front()
	if front == nil {
		return Item{}, false
	}
	l.fifo.Remove(front)
	return front.Value.(Item), true
}

// Done clears h from the pending set after a successful call, so a future
// Enqueue for the same hash is admitted again (e.g. after the on-disk entry
// was later evicted by something outside this package's control).
func (l *List) Done(h digest.Digest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, h)
}

// Fail clears h from the pending set and records err as its failure, so
// subsequent Enqueue calls for h return PreviouslyFailed until ClearFailure
// is called.
func (l *List) Fail(h digest.Digest, err error) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, h)
	l.failures[h] = &Failure{Err: err, Stack: pcs[:n]}
}

// ClearFailure removes any recorded failure for h, allowing it to be
// enqueued again. ok reports whether a failure was present.
func (l *List) ClearFailure(h digest.Digest) (ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok = l.failures[h]; ok {
		delete(l.failures, h)
	}
	return ok
}

// Failures returns a snapshot copy of the current failure map, keyed by
// hash. Mutating the returned map has no effect on the List.
func (l *List) Failures() map[digest.Digest]*Failure {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[digest.Digest]*Failure, len(l.failures))
	for h, f := range l.failures {
		out[h] = f
	}
	return out
}

// Len reports the number of items currently queued (popped items in flight
// are not counted).
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fifo.Len()
}

// PendingCount reports the number of hashes admitted but not yet Done/Fail.
func (l *List) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
