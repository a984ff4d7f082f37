/*
Package engine implements the connection supervisor: the component that keeps
exactly one authenticated wire session to the Howdies service alive, or is
explicitly stopped.

This file defines the Session: the credential and identity of the bot's
single wire session. A Session is owned exclusively by its Engine and is
immutable after construction, except the own-user id, which may be filled in
exactly once from an asynchronous confirmation when it was unknown at
construction time.
*/
package engine

import "sync"

// Session holds the bot's credential and identity for one wire session.
type Session struct {
	token       string
	handle      string
	defaultRoom string

	mu    sync.Mutex
	ownID string
}

// NewSession constructs a session. ownID may be empty when the REST login
// did not report it; the wire login acknowledgement fills it in later.
func NewSession(token, handle, defaultRoom, ownID string) *Session {
	return &Session{
		token:       token,
		handle:      handle,
		defaultRoom: defaultRoom,
		ownID:       ownID,
	}
}

// Token returns the transport credential.
func (s *Session) Token() string { return s.token }

// Handle returns the bot's own handle.
func (s *Session) Handle() string { return s.handle }

// DefaultRoomName returns the configured default room name.
func (s *Session) DefaultRoomName() string { return s.defaultRoom }

// OwnID returns the bot's own user id, or "" while still unknown.
func (s *Session) OwnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownID
}

// SetOwnID records the bot's own user id. First writer wins: once set, the
// identity never changes, regardless of which source (REST login or wire
// login acknowledgement) reported it first. Returns whether id was stored.
func (s *Session) SetOwnID(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ownID != "" {
		return false
	}
	s.ownID = id
	return true
}
