/*
Package logx provides a structured logging wrapper based on zerolog.

This file implements Ring, a fixed-capacity buffer of recent log entries with
monotonically increasing sequence numbers. The global logger tees its JSON
output into a Ring so the control dashboard can poll "everything since
sequence N" without the bot keeping unbounded log history in memory.
*/
package logx

import (
	"encoding/json"
	"sync"
)

// DefaultRingCapacity is the default number of log entries the ring retains.
const DefaultRingCapacity = 1000

// Entry is a single retained log line. Seq increases by one per entry for
// the lifetime of the process; Data is the raw zerolog JSON object.
type Entry struct {
	Seq  uint64          `json:"seq"`
	Data json.RawMessage `json:"data"`
}

// Ring is a fixed-size circular buffer of log entries. New entries overwrite
// the oldest when the ring is full. It implements io.Writer so it can be
// installed as a zerolog output target.
//
// All methods are safe for concurrent use.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int

	// next is the write position within entries (0 to capacity-1).
	next int

	// total is the number of entries ever written; the retained window spans
	// sequence numbers (total - stored, total], where stored = min(total, capacity).
	total uint64
}

// NewRing creates a ring retaining up to capacity entries.
// Use DefaultRingCapacity for the standard size.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Write stores one log line. zerolog hands each event to its writer as a
// single Write call, so p is always exactly one JSON object.
func (r *Ring) Write(p []byte) (int, error) {
	data := make([]byte, len(p))
	copy(data, p)

	r.mu.Lock()
	r.total++
	r.entries[r.next] = Entry{Seq: r.total, Data: data}
	r.next = (r.next + 1) % r.capacity
	r.mu.Unlock()

	return len(p), nil
}

// Since returns all retained entries with a sequence number greater than
// seq, oldest first. If seq predates the oldest retained entry the caller
// simply receives the whole window (it missed some entries).
func (r *Ring) Since(seq uint64) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.total
	if stored > uint64(r.capacity) {
		stored = uint64(r.capacity)
	}

	out := make([]Entry, 0, stored)
	start := (r.next - int(stored) + r.capacity) % r.capacity
	for i := 0; i < int(stored); i++ {
		entry := r.entries[(start+i)%r.capacity]
		if entry.Seq > seq {
			out = append(out, entry)
		}
	}
	return out
}

// LastSeq returns the sequence number of the newest entry, or 0 when the
// ring is empty.
func (r *Ring) LastSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
