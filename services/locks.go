package services

import "sync"

// RoundLocks serializes every mutation touching one round's groups, matches
// and scores. Two hosts cannot concurrently form groups, finalize conflicting
// matches or run qualification for the same round; different rounds proceed
// independently. One instance is shared by all services so the boundary holds
// across operations.
type RoundLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewRoundLocks() *RoundLocks {
	return &RoundLocks{locks: make(map[int]*sync.Mutex)}
}

func (r *RoundLocks) lock(roundID int) func() {
	r.mu.Lock()
	l, ok := r.locks[roundID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[roundID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// release drops a round's entry so the map does not grow with every round
// ever touched. Only call once the round no longer accepts mutations (closed,
// aborted or its tournament terminal): a straggler then gets a fresh mutex
// and the state it re-reads under it fails the status guards.
func (r *RoundLocks) release(roundID int) {
	r.mu.Lock()
	delete(r.locks, roundID)
	r.mu.Unlock()
}
