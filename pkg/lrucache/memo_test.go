package lrucache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intKey(k int) string { return strconv.Itoa(k) }

func TestMemoBumpsLRUEntryOutOverCapacity(t *testing.T) {
	const maxSize, testSize = 5, 15

	var calls atomic.Int32
	memo, err := New(maxSize, func(_ context.Context, k int) (int, error) {
		calls.Add(1)
		return k, nil
	}, intKey)
	require.NoError(t, err)

	ctx := context.Background()
	for k := 0; k < testSize; k++ {
		v, err := memo.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, k, v)
	}

	assert.Equal(t, int32(testSize), calls.Load())
	assert.Equal(t, maxSize, memo.Len())
	assert.ElementsMatch(t, []int{10, 11, 12, 13, 14}, memo.Keys())
}

func TestMemoReusesCachedValue(t *testing.T) {
	var calls atomic.Int32
	memo, err := New(1, func(_ context.Context, k int) (int, error) {
		calls.Add(1)
		return k, nil
	}, intKey)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := memo.Get(ctx, 10)
	require.NoError(t, err)
	second, err := memo.Get(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "producer must run exactly once per cached key")
	assert.Equal(t, 1, memo.Len())
}

func TestMemoLookupCountsAsUse(t *testing.T) {
	memo, err := New(2, func(_ context.Context, k int) (int, error) {
		return k, nil
	}, intKey)
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = memo.Get(ctx, 1)
	_, _ = memo.Get(ctx, 2)
	_, _ = memo.Get(ctx, 1) // bump 1 to most-recently-used
	_, _ = memo.Get(ctx, 3) // evicts 2, not 1

	assert.True(t, memo.Contains(1))
	assert.False(t, memo.Contains(2))
	assert.True(t, memo.Contains(3))
}

func TestMemoDoesNotCacheFailures(t *testing.T) {
	produceErr := errors.New("upstream unavailable")
	fail := true
	var calls int

	memo, err := New(4, func(_ context.Context, k int) (int, error) {
		calls++
		if fail {
			return 0, produceErr
		}
		return k, nil
	}, intKey)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = memo.Get(ctx, 7)
	require.ErrorIs(t, err, produceErr)
	assert.Equal(t, 0, memo.Len())

	fail = false
	v, err := memo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestMemoConcurrentCallersJoinSingleFlight(t *testing.T) {
	var calls atomic.Int32
	memo, err := New(4, func(_ context.Context, k int) (int, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond) // simulate the remote exchange
		return k * 2, nil
	}, intKey)
	require.NoError(t, err)

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := memo.Get(context.Background(), 42)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent requests for one key must share one fetch")
	for _, v := range results {
		assert.Equal(t, 84, v)
	}
}

func TestMemoRejectsInvalidSize(t *testing.T) {
	_, err := New(0, func(_ context.Context, k int) (int, error) { return k, nil }, intKey)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
