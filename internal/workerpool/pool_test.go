package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestMapPreservesTaskOrder(t *testing.T) {
	tasks := []int{5, 4, 3, 2, 1}
	results, errs := Map(3, tasks, func(i int, d int) (int, error) {
		// later tasks finish first
		time.Sleep(time.Duration(d) * time.Millisecond)
		return d * 10, nil
	})

	assert.Equal(t, []int{50, 40, 30, 20, 10}, results)
	assert.Equal(t, nil, FirstError(errs))
}

func TestMapRespectsWorkerLimit(t *testing.T) {
	var inFlight, peak int32
	tasks := make([]int, 20)
	Map(4, tasks, func(i int, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	if peak > 4 {
		t.Fatalf("peak concurrency %d exceeds 4 workers", peak)
	}
}

func TestMapRunsEveryTaskDespiteFailures(t *testing.T) {
	var ran int32
	tasks := []int{0, 1, 2, 3}
	_, errs := Map(2, tasks, func(i int, _ int) (int, error) {
		atomic.AddInt32(&ran, 1)
		if i == 1 {
			return 0, errors.New("task 1 failed")
		}
		return i, nil
	})

	assert.Equal(t, int32(4), atomic.LoadInt32(&ran))
	assert.Equal(t, nil, errs[0])
	assert.NotEqual(t, nil, errs[1])
	assert.Equal(t, "task 1 failed", FirstError(errs).Error())
}

func TestMapEmpty(t *testing.T) {
	results, errs := Map(4, []string{}, func(int, string) (int, error) { return 1, nil })
	assert.Equal(t, 0, len(results))
	assert.Equal(t, 0, len(errs))
}
