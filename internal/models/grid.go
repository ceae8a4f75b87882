package models

import "strconv"

// Cell is the state of a single shard on the prize grid. The symbols
// match what gets persisted in entry snapshots, so they stay short.
type Cell string

const (
	CellEmpty   Cell = "-"
	CellJackpot Cell = "N"
	CellToken   Cell = "T"
	CellBroken  Cell = "X"
)

// Grid is a square matrix of shard cells, row-major.
type Grid [][]Cell

func NewGrid(size int) Grid {
	grid := make(Grid, size)
	for i := range grid {
		grid[i] = make([]Cell, size)
		for j := range grid[i] {
			grid[i][j] = CellEmpty
		}
	}
	return grid
}

func (g Grid) Size() int {
	return len(g)
}

func (g Grid) InBounds(row, col int) bool {
	return row >= 0 && row < len(g) && col >= 0 && col < len(g)
}

func (g Grid) At(row, col int) Cell {
	return g[row][col]
}

func (g Grid) Set(row, col int, cell Cell) {
	g[row][col] = cell
}

// Clone returns a deep copy, used for entry snapshots so the persisted
// grid cannot alias a live session.
func (g Grid) Clone() Grid {
	clone := make(Grid, len(g))
	for i, row := range g {
		clone[i] = make([]Cell, len(row))
		copy(clone[i], row)
	}
	return clone
}

// Coord addresses one cell, zero-based.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

const columnLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CellLabel renders a coordinate the way players see it: column letter
// then one-based row, e.g. (0,0) -> "A1", (4,4) -> "E5".
func CellLabel(row, col int) string {
	return string(columnLetters[col]) + strconv.Itoa(row+1)
}
