package mppfc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sleepArgs struct {
	X int
}

func TestPoolHappyPath(t *testing.T) {
	w, err := Wrap("pool-square", func(a sleepArgs) (int, error) {
		time.Sleep(100 * time.Millisecond)
		return a.X * a.X, nil
	}, WithPath(t.TempDir()))
	require.NoError(t, err)

	started, err := w.Start(2)
	require.NoError(t, err)
	require.True(t, started)

	xs := []int{1, 2, 3, 4}
	for _, x := range xs {
		res, err := w.CallAsync(sleepArgs{X: x})
		require.NoError(t, err)
		require.Equal(t, StatePending, res.State)
	}

	require.True(t, w.Wait(0))

	for _, x := range xs {
		v, err := w.Call(sleepArgs{X: x})
		require.NoError(t, err)
		require.Equal(t, x*x, v)
	}
}

func TestPoolCachedCallAsyncShortCircuits(t *testing.T) {
	w, err := Wrap("pool-cached", func(a sleepArgs) (int, error) {
		return a.X * a.X, nil
	}, WithPath(t.TempDir()))
	require.NoError(t, err)

	_, err = w.Call(sleepArgs{X: 5})
	require.NoError(t, err)

	res, err := w.CallAsync(sleepArgs{X: 5})
	require.NoError(t, err)
	require.Equal(t, StateCached, res.State)
	require.Equal(t, 25, res.Value)
}

func TestPoolCooperativeJoin(t *testing.T) {
	w, err := Wrap("pool-join", func(a sleepArgs) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return a.X, nil
	}, WithPath(t.TempDir()))
	require.NoError(t, err)

	started, err := w.Start(2)
	require.NoError(t, err)
	require.True(t, started)

	for _, x := range []int{1, 2, 3, 4} {
		_, err := w.CallAsync(sleepArgs{X: x})
		require.NoError(t, err)
	}

	time.Sleep(50 * time.Millisecond)
	require.True(t, w.Join(2*time.Second))

	status := w.Status()
	require.Equal(t, int64(0), status.Issued, "Join clears the registry; Status after Join reports the zero value")
}

func TestPoolFailurePropagatesOnNextCall(t *testing.T) {
	cause := errors.New("user function exploded")
	w, err := Wrap("pool-failing", func(a sleepArgs) (int, error) {
		return 0, cause
	}, WithPath(t.TempDir()))
	require.NoError(t, err)

	started, err := w.Start(1)
	require.NoError(t, err)
	require.True(t, started)

	res, err := w.CallAsync(sleepArgs{X: 9})
	require.NoError(t, err)
	require.Equal(t, StatePending, res.State)

	require.True(t, w.Wait(0))

	_, err = w.CallAsync(sleepArgs{X: 9})
	require.Error(t, err)
	k, ok := errKind(err)
	require.True(t, ok)
	require.Equal(t, ExecFailure, k)
	require.ErrorIs(t, err, cause)

	// One-shot: the failure was cleared by the previous CallAsync, so a
	// fresh submission is admitted again rather than re-raising forever.
	res2, err := w.CallAsync(sleepArgs{X: 9})
	require.NoError(t, err)
	require.Equal(t, StatePending, res2.State)
}

func TestPoolFailurePreservesStackTrace(t *testing.T) {
	cause := errors.New("exploded deep in the worker")
	w, err := Wrap("pool-failing-stack", func(a sleepArgs) (int, error) {
		return 0, cause
	}, WithPath(t.TempDir()))
	require.NoError(t, err)

	started, err := w.Start(1)
	require.NoError(t, err)
	require.True(t, started)

	res, err := w.CallAsync(sleepArgs{X: 3})
	require.NoError(t, err)
	require.Equal(t, StatePending, res.State)
	require.True(t, w.Wait(0))

	_, err = w.CallAsync(sleepArgs{X: 3})
	require.Error(t, err)

	var merr *Error
	require.ErrorAs(t, err, &merr)
	require.Equal(t, ExecFailure, merr.Kind)
	require.ErrorIs(t, err, cause)

	trace := merr.StackTrace()
	require.NotEmpty(t, trace, "a failed pool call must preserve a stack trace through the public API")
}

func TestPoolRefusesDoubleStart(t *testing.T) {
	w, err := Wrap("pool-double-start", func(a sleepArgs) (int, error) {
		return a.X, nil
	}, WithPath(t.TempDir()))
	require.NoError(t, err)

	started, err := w.Start(1)
	require.NoError(t, err)
	require.True(t, started)
	defer w.Terminate(time.Second)

	started2, err := w.Start(1)
	require.NoError(t, err)
	require.False(t, started2)
}
