package services

import (
	"math/rand"
	"sync"
	"time"

	"shards-game-backend/internal/models"
)

// GridGenerator lays out one hidden prize grid per paid round. All
// randomness flows through the injected source so tests can pin it.
type GridGenerator struct {
	mu            sync.Mutex
	rnd           *rand.Rand
	jackpotChance float64
}

func NewGridGenerator(rnd *rand.Rand, jackpotChance float64) *GridGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &GridGenerator{rnd: rnd, jackpotChance: jackpotChance}
}

// Generate shuffles all size*size coordinates, draws one Bernoulli trial
// for jackpot presence, pops a coordinate for the jackpot if it is in,
// then takes the next tokenCount coordinates (or fewer if the board runs
// out) as token cells. A coordinate is never both jackpot and token.
func (g *GridGenerator) Generate(size, jackpotSlots, tokenCount int) (models.Grid, *models.Coord, []models.Coord) {
	grid := models.NewGrid(size)

	positions := make([]models.Coord, 0, size*size)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			positions = append(positions, models.Coord{Row: i, Col: j})
		}
	}

	g.mu.Lock()
	g.rnd.Shuffle(len(positions), func(a, b int) {
		positions[a], positions[b] = positions[b], positions[a]
	})
	includeJackpot := g.rnd.Float64() < g.jackpotChance
	g.mu.Unlock()

	var jackpot *models.Coord
	if includeJackpot && jackpotSlots > 0 {
		pos := positions[len(positions)-1]
		positions = positions[:len(positions)-1]
		grid.Set(pos.Row, pos.Col, models.CellJackpot)
		jackpot = &pos
	}

	if tokenCount > len(positions) {
		tokenCount = len(positions)
	}
	tokens := make([]models.Coord, tokenCount)
	copy(tokens, positions[:tokenCount])
	for _, pos := range tokens {
		grid.Set(pos.Row, pos.Col, models.CellToken)
	}

	return grid, jackpot, tokens
}

// Intn draws from the generator's source, used for the token prize tier
// pick so the whole round shares one seedable stream.
func (g *GridGenerator) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(n)
}
