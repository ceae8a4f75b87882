package services

import (
	"sync"
	"testing"
)

func TestAllocatorSeedsFromHistory(t *testing.T) {
	tests := []struct {
		name         string
		persistedMax int64
		haveHistory  bool
		floor        int64
		want         int64
	}{
		{"no history starts above floor", 0, false, 1000, 1001},
		{"history resumes after max", 4321, true, 1000, 4322},
		{"history below floor is ignored", 17, true, 1000, 1001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := NewGameIDAllocator(tt.persistedMax, tt.haveHistory, tt.floor)
			if got := ids.Next(); got != tt.want {
				t.Errorf("first id = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAllocatorNeverRepeatsUnderConcurrency(t *testing.T) {
	ids := NewGameIDAllocator(0, false, 1000)

	const workers = 100
	out := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out <- ids.Next()
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[int64]bool)
	for id := range out {
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true
		if id < 1001 || id > 1000+workers {
			t.Fatalf("id %d outside expected range", id)
		}
	}
	if len(seen) != workers {
		t.Fatalf("allocated %d distinct ids, want %d", len(seen), workers)
	}
}
