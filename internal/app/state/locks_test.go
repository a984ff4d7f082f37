package state

import (
	"sync"
	"testing"
)

func TestLockTableSameKeySameLock(t *testing.T) {
	table := NewLockTable()

	if table.Get("quiz") != table.Get("quiz") {
		t.Fatal("same key must yield the same lock")
	}
	if table.Get("quiz") == table.Get("economy") {
		t.Fatal("distinct keys must yield distinct locks")
	}
}

func TestLockTablePreSeededKeys(t *testing.T) {
	table := NewLockTable("user_map", "room_map")

	if table.Get("user_map") == nil || table.Get("room_map") == nil {
		t.Fatal("pre-seeded keys must resolve")
	}
	if table.Get("user_map") == table.Get("room_map") {
		t.Fatal("pre-seeded keys must be independent")
	}
}

func TestLockTableConcurrentCreate(t *testing.T) {
	table := NewLockTable()

	const n = 64
	locks := make([]*sync.Mutex, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			locks[i] = table.Get("contested")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if locks[i] != locks[0] {
			t.Fatal("concurrent Get for one key returned different locks")
		}
	}
}

func TestAcquireProvidesMutualExclusion(t *testing.T) {
	table := NewLockTable()

	counter := 0
	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			release := table.Acquire("counter")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != n {
		t.Fatalf("counter = %d, want %d", counter, n)
	}
}
