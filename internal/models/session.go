package models

import "time"

// Session is the committed hidden grid for one user's paid round. It
// lives only in memory: created on the first reveal of a round and
// destroyed once the round is resolved.
type Session struct {
	UserID      int64
	Grid        Grid
	JackpotCell *Coord
	TokenCells  []Coord
	CreatedAt   time.Time
}
