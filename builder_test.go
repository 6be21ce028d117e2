package mppfc

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type widgetArgs struct {
	Size int
}

type widget struct {
	Size int
}

func TestBuilderCachesByArgs(t *testing.T) {
	var constructs atomic.Int64
	b, err := NewBuilder(func(a widgetArgs) (*widget, error) {
		constructs.Add(1)
		return &widget{Size: a.Size}, nil
	})
	require.NoError(t, err)

	w1, err := b.Build(widgetArgs{Size: 3})
	require.NoError(t, err)
	w2, err := b.Build(widgetArgs{Size: 3})
	require.NoError(t, err)

	require.Same(t, w1, w2, "same args must return the same instance")
	require.Equal(t, int64(1), constructs.Load())
}

func TestBuilderDistinguishesArgs(t *testing.T) {
	b, err := NewBuilder(func(a widgetArgs) (*widget, error) {
		return &widget{Size: a.Size}, nil
	})
	require.NoError(t, err)

	w1, err := b.Build(widgetArgs{Size: 1})
	require.NoError(t, err)
	w2, err := b.Build(widgetArgs{Size: 2})
	require.NoError(t, err)
	require.NotSame(t, w1, w2)
}

func TestBuilderConcurrentBuildReturnsSameInstance(t *testing.T) {
	b, err := NewBuilder(func(a widgetArgs) (*widget, error) {
		return &widget{Size: a.Size}, nil
	})
	require.NoError(t, err)

	const n = 32
	results := make([]*widget, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			w, err := b.Build(widgetArgs{Size: 7})
			require.NoError(t, err)
			results[i] = w
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Same(t, results[0], r)
	}
}
