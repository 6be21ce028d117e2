package worklist

import (
	"errors"
	"sync"
	"testing"

	digest "github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"
)

func digestOf(s string) digest.Digest {
	return digest.FromString(s)
}

func TestEnqueueAdmitsOnce(t *testing.T) {
	l := New()
	h := digestOf("a")

	require.Equal(t, Admitted, l.Enqueue(h, "args"))
	require.Equal(t, AlreadyPending, l.Enqueue(h, "args"))
	require.Equal(t, 1, l.Len())
	require.Equal(t, 1, l.PendingCount())
}

func TestPopFIFOOrder(t *testing.T) {
	l := New()
	h1, h2 := digestOf("first"), digestOf("second")
	l.Enqueue(h1, 1)
	l.Enqueue(h2, 2)

	item, ok := l.Pop()
	require.True(t, ok)
	require.Equal(t, h1, item.Hash)

	item, ok = l.Pop()
	require.True(t, ok)
	require.Equal(t, h2, item.Hash)

	_, ok = l.Pop()
	require.False(t, ok)
}

func TestDoneAllowsReenqueue(t *testing.T) {
	l := New()
	h := digestOf("reenqueue")

	require.Equal(t, Admitted, l.Enqueue(h, nil))
	l.Pop()
	l.Done(h)

	require.Equal(t, Admitted, l.Enqueue(h, nil))
}

func TestFailBlocksReenqueueUntilCleared(t *testing.T) {
	l := New()
	h := digestOf("fails")

	require.Equal(t, Admitted, l.Enqueue(h, nil))
	l.Pop()
	l.Fail(h, errors.New("boom"))

	require.Equal(t, PreviouslyFailed, l.Enqueue(h, nil))
	failures := l.Failures()
	require.Contains(t, failures, h)
	require.EqualError(t, failures[h].Err, "boom")
	require.NotEmpty(t, failures[h].Stack)

	require.True(t, l.ClearFailure(h))
	require.Equal(t, Admitted, l.Enqueue(h, nil))
	require.False(t, l.ClearFailure(h), "failure was already cleared")
}

func TestEnqueueExactlyOnceUnderConcurrency(t *testing.T) {
	l := New()
	h := digestOf("race")

	const n = 64
	results := make([]Outcome, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = l.Enqueue(h, nil)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, r := range results {
		if r == Admitted {
			admitted++
		}
	}
	require.Equal(t, 1, admitted, "exactly one concurrent Enqueue must be admitted")
}

func TestFailuresSnapshotIsCopy(t *testing.T) {
	l := New()
	h := digestOf("snapshot")
	l.Enqueue(h, nil)
	l.Pop()
	l.Fail(h, errors.New("x"))

	snap := l.Failures()
	delete(snap, h)
	require.Contains(t, l.Failures(), h, "mutating the snapshot must not affect internal state")
}
