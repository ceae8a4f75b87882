package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"shards-game-backend/internal/models"
)

func TestGetOrCreateIsAtomicPerUser(t *testing.T) {
	store := NewSessionStore()

	var generated atomic.Int32
	var wg sync.WaitGroup
	results := make([]*models.Session, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.GetOrCreate(1, func() *models.Session {
				generated.Add(1)
				return &models.Session{UserID: 1, Grid: models.NewGrid(5)}
			})
		}(i)
	}
	wg.Wait()

	if n := generated.Load(); n != 1 {
		t.Fatalf("generator ran %d times, want 1", n)
	}
	for i, session := range results {
		if session != results[0] {
			t.Fatalf("caller %d got a different session", i)
		}
	}
}

func TestSessionsAreIndependentPerUser(t *testing.T) {
	store := NewSessionStore()

	a := store.GetOrCreate(1, func() *models.Session { return &models.Session{UserID: 1} })
	b := store.GetOrCreate(2, func() *models.Session { return &models.Session{UserID: 2} })

	if a == b {
		t.Fatal("two users share one session")
	}
	if store.Get(1) != a || store.Get(2) != b {
		t.Fatal("Get returned the wrong session")
	}
}

func TestClearEndsSession(t *testing.T) {
	store := NewSessionStore()

	first := store.GetOrCreate(1, func() *models.Session { return &models.Session{UserID: 1} })
	store.Clear(1)

	if store.Get(1) != nil {
		t.Fatal("session still live after clear")
	}

	second := store.GetOrCreate(1, func() *models.Session { return &models.Session{UserID: 1} })
	if first == second {
		t.Fatal("cleared session was reused")
	}

	// Clearing an absent session is a no-op.
	store.Clear(99)
}
