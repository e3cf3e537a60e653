package services

import "sync"

// learnerLocks serializes read-modify-write sequences per learner while
// letting different learners proceed in parallel. Entries are dropped once
// no goroutine holds or waits on them.
type learnerLocks struct {
	mu    sync.Mutex
	locks map[string]*learnerLock
}

type learnerLock struct {
	mu   sync.Mutex
	refs int
}

func newLearnerLocks() *learnerLocks {
	return &learnerLocks{locks: map[string]*learnerLock{}}
}

// Lock blocks until learnerID is free and returns its unlock function.
func (l *learnerLocks) Lock(learnerID string) func() {
	l.mu.Lock()
	lk, ok := l.locks[learnerID]
	if !ok {
		lk = &learnerLock{}
		l.locks[learnerID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, learnerID)
		}
		l.mu.Unlock()
	}
}

func (l *learnerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
