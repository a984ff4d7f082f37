/*
Package state is the single source of truth for the bot's derived roster and
room knowledge, shared between the connection supervisor's receive loop and
every concurrently executing feature handler.

This file defines the Store: the user map (writer: the supervisor, readers:
feature modules), the joined-room map, and the externally observable session
status. Every read or write is bracketed by the correspondingly named lock
from the lock table.
*/
package state

import "strings"

// Names of the locks guarding the store's own maps.
const (
	LockUserMap = "user_map"
	LockRoomMap = "room_map"
	LockStatus  = "status"
)

// User is a roster record derived from presence, roster, and profile frames.
// Records are upserted whenever the platform reports a user and never
// explicitly deleted; stale entries are tolerated.
type User struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Avatar string `json:"avatar,omitempty"`
}

// Room is a joined-room record, created on a successful join acknowledgement
// and removed on a successful leave acknowledgement.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status is the externally observable connection state of the supervisor.
type Status string

const (
	StatusInitialized  Status = "initialized"
	StatusStarting     Status = "starting"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
	StatusStopping     Status = "stopping"
	StatusStopped      Status = "stopped"
	StatusFailed       Status = "failed"
)

// Terminal reports whether the status is an end state. A terminal status is
// never left except by constructing a fresh session.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusFailed
}

// Store holds the shared mutable state of one bot session. The zero value is
// not usable; construct with NewStore.
type Store struct {
	locks *LockTable

	// users is keyed by lower-cased handle.
	users map[string]User

	// rooms is keyed by room id.
	rooms map[string]Room

	status        Status
	statusAttempt int
}

// NewStore creates an empty store with its lock table pre-seeded for the
// store's own keys. The same table serves feature modules needing named
// locks of their own.
func NewStore() *Store {
	return &Store{
		locks:  NewLockTable(LockUserMap, LockRoomMap, LockStatus),
		users:  make(map[string]User),
		rooms:  make(map[string]Room),
		status: StatusInitialized,
	}
}

// Locks exposes the named lock registry.
func (s *Store) Locks() *LockTable {
	return s.locks
}

// UpsertUser inserts or replaces the record for u's handle. Records without
// both an id and a handle are ignored: the platform occasionally reports
// partial user objects and a keyless record is useless.
func (s *Store) UpsertUser(u User) {
	if u.ID == "" || u.Handle == "" {
		return
	}

	defer s.locks.Acquire(LockUserMap)()
	s.users[strings.ToLower(u.Handle)] = u
}

// UpsertUsers inserts or replaces a batch of records under a single lock
// acquisition (roster listings can be large).
func (s *Store) UpsertUsers(users []User) {
	defer s.locks.Acquire(LockUserMap)()
	for _, u := range users {
		if u.ID == "" || u.Handle == "" {
			continue
		}
		s.users[strings.ToLower(u.Handle)] = u
	}
}

// UserByHandle resolves a user by handle, case-insensitively. O(1).
func (s *Store) UserByHandle(handle string) (User, bool) {
	defer s.locks.Acquire(LockUserMap)()
	u, ok := s.users[strings.ToLower(handle)]
	return u, ok
}

// UserByID resolves a user by identifier with a linear scan. Acceptable at
// expected roster sizes; a secondary index would be the fix if rosters grow.
func (s *Store) UserByID(id string) (User, bool) {
	defer s.locks.Acquire(LockUserMap)()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Users returns a snapshot of all known users.
func (s *Store) Users() []User {
	defer s.locks.Acquire(LockUserMap)()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

// UserCount returns the number of known users.
func (s *Store) UserCount() int {
	defer s.locks.Acquire(LockUserMap)()
	return len(s.users)
}

// PutRoom records a joined room.
func (s *Store) PutRoom(room Room) {
	if room.ID == "" {
		return
	}

	defer s.locks.Acquire(LockRoomMap)()
	s.rooms[room.ID] = room
}

// RemoveRoom forgets a room after a successful leave acknowledgement.
func (s *Store) RemoveRoom(roomID string) {
	defer s.locks.Acquire(LockRoomMap)()
	delete(s.rooms, roomID)
}

// Room resolves a joined room by id.
func (s *Store) Room(roomID string) (Room, bool) {
	defer s.locks.Acquire(LockRoomMap)()
	room, ok := s.rooms[roomID]
	return room, ok
}

// Rooms returns a snapshot of all joined rooms.
func (s *Store) Rooms() []Room {
	defer s.locks.Acquire(LockRoomMap)()
	out := make([]Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}

// DefaultRoom resolves the room whose name matches name case-insensitively.
// Map iteration is unordered, so with duplicate names the first match wins;
// that nondeterminism is accepted.
func (s *Store) DefaultRoom(name string) (Room, bool) {
	defer s.locks.Acquire(LockRoomMap)()
	for _, room := range s.rooms {
		if strings.EqualFold(room.Name, name) {
			return room, true
		}
	}
	return Room{}, false
}

// SetStatus records the supervisor's current status. attempt is the
// reconnect attempt number and is only meaningful for StatusReconnecting
// and StatusFailed.
func (s *Store) SetStatus(status Status, attempt int) {
	defer s.locks.Acquire(LockStatus)()
	s.status = status
	s.statusAttempt = attempt
}

// SetStatusIfNotTerminal records the status only when the current status is
// not terminal, and reports whether the write happened. Once the supervisor
// has reached stopped or failed, nothing may overwrite that signal.
func (s *Store) SetStatusIfNotTerminal(status Status, attempt int) bool {
	defer s.locks.Acquire(LockStatus)()
	if s.status.Terminal() {
		return false
	}
	s.status = status
	s.statusAttempt = attempt
	return true
}

// Status returns the current status and reconnect attempt number.
func (s *Store) Status() (Status, int) {
	defer s.locks.Acquire(LockStatus)()
	return s.status, s.statusAttempt
}
