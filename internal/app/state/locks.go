/*
Package state is the single source of truth for the bot's derived roster and
room knowledge, shared between the connection supervisor's receive loop and
every concurrently executing feature handler.

This file implements the named lock registry. Feature modules and the store
itself coordinate access to shared resources by key ("user_map", "room_map",
"status", or any feature-chosen key).
*/
package state

import "sync"

// LockTable maps arbitrary string keys to mutual-exclusion locks. Locks are
// created on first use and never removed. Creation is race-free: the table
// mutex is held across the whole lookup-or-create, so two goroutines asking
// for the same key always receive the same lock.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockTable creates a lock table, pre-seeding locks for the given keys.
func NewLockTable(keys ...string) *LockTable {
	table := &LockTable{locks: make(map[string]*sync.Mutex, len(keys))}
	for _, key := range keys {
		table.locks[key] = &sync.Mutex{}
	}
	return table
}

// Get returns the lock for key, creating it if absent.
func (t *LockTable) Get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[key] = lock
	}
	return lock
}

// Acquire locks the named lock and returns its release function. Callers
// must release on every exit path; the idiom is:
//
//	defer table.Acquire("user_map")()
//
// which guarantees release even when the critical section panics.
func (t *LockTable) Acquire(key string) func() {
	lock := t.Get(key)
	lock.Lock()
	return lock.Unlock
}
