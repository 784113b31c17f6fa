package planner

import (
	"slices"
	"sync"
)

// sprintLocks serializes mutations per sprint id. Operations that touch
// every sprint (task deletion) take the exclusive side of all.
type sprintLocks struct {
	all sync.RWMutex

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSprintLocks() *sprintLocks {
	return &sprintLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *sprintLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// lock acquires the locks for ids in sorted order and returns the release
// function. Empty and repeated ids are ignored.
func (l *sprintLocks) lock(ids ...string) func() {
	keys := slices.Compact(slices.Sorted(slices.Values(ids)))
	keys = slices.DeleteFunc(keys, func(s string) bool { return s == "" })

	l.all.RLock()
	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		m := l.get(k)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		l.all.RUnlock()
	}
}

// lockAll excludes every per-sprint operation.
func (l *sprintLocks) lockAll() func() {
	l.all.Lock()
	return l.all.Unlock
}
