package planner

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSprintLocks_SerializesSameSprint(t *testing.T) {
	l := newSprintLocks()

	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("s1")
			defer unlock()

			n := active.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestSprintLocks_DifferentSprintsRunTogether(t *testing.T) {
	l := newSprintLocks()

	unlockA := l.lock("a")
	done := make(chan struct{})
	go func() {
		unlock := l.lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}

func TestSprintLocks_OverlappingSetsDoNotDeadlock(t *testing.T) {
	l := newSprintLocks()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var unlock func()
			if i%2 == 0 {
				unlock = l.lock("a", "b", "a", "")
			} else {
				unlock = l.lock("b", "a")
			}
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock acquiring overlapping sprint locks")
	}
}

func TestSprintLocks_LockAllExcludesSprintLocks(t *testing.T) {
	l := newSprintLocks()

	unlockAll := l.lockAll()
	acquired := make(chan struct{})
	go func() {
		unlock := l.lock("s1")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("sprint lock acquired while lockAll held")
	case <-time.After(20 * time.Millisecond):
	}

	unlockAll()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("sprint lock never acquired after lockAll released")
	}
}
