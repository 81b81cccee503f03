package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	Item   int
	Status Status
	Error  string
}

func (r result) Outcome() Status { return r.Status }

func failResult(item int, err error) result {
	return result{Item: item, Status: StatusError, Error: ErrorString(err)}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	items := []int{1, 2, 3}
	results := Run(context.Background(), Options{Name: "test"}, items,
		func(_ context.Context, item int) result {
			if item == 2 {
				return failResult(item, errors.New("provider exploded"))
			}
			return result{Item: item, Status: StatusSuccess}
		}, failResult)

	require.Len(t, results, 3)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, "provider exploded", results[1].Error)
	assert.Equal(t, StatusSuccess, results[2].Status)
}

func TestRunRecoversPanics(t *testing.T) {
	results := Run(context.Background(), Options{Name: "test"}, []int{1, 2},
		func(_ context.Context, item int) result {
			if item == 1 {
				panic("boom")
			}
			return result{Item: item, Status: StatusSkipped}
		}, failResult)

	require.Len(t, results, 2)
	assert.Equal(t, StatusError, results[0].Status)
	assert.Contains(t, results[0].Error, "boom")
	assert.Equal(t, StatusSkipped, results[1].Status)
}

func TestRunPreservesOrderUnderConcurrency(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var inFlight, peak int32
	results := Run(context.Background(), Options{Name: "test", Concurrency: 4}, items,
		func(_ context.Context, item int) result {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Duration(20-item) * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return result{Item: item, Status: StatusSuccess}
		}, failResult)

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i, r.Item)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestRunReportsUnstartedItemsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	results := Run(ctx, Options{Name: "test"}, []int{1, 2, 3},
		func(_ context.Context, item int) result {
			if item == 1 {
				cancel()
			}
			return result{Item: item, Status: StatusSuccess}
		}, failResult)

	require.Len(t, results, 3)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, context.Canceled.Error(), results[1].Error)
	assert.Equal(t, StatusError, results[2].Status)
	assert.Equal(t, 1, Count(results, StatusSuccess))
	assert.Equal(t, 2, Count(results, StatusError))
}
