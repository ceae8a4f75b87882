package services

import "sync/atomic"

// GameIDAllocator hands out the process-wide monotonic round identifier.
// Ids are never reused and never go backwards, even under concurrent
// resolutions.
type GameIDAllocator struct {
	next atomic.Int64
}

// NewGameIDAllocator seeds the counter from the highest persisted game
// id. When no history exists the floor is used instead, so the first
// round gets floor+1.
func NewGameIDAllocator(persistedMax int64, haveHistory bool, floor int64) *GameIDAllocator {
	a := &GameIDAllocator{}
	if !haveHistory || persistedMax < floor {
		persistedMax = floor
	}
	a.next.Store(persistedMax + 1)
	return a
}

// Next atomically returns the current id and advances the counter.
func (a *GameIDAllocator) Next() int64 {
	return a.next.Add(1) - 1
}
