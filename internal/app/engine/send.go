/*
Package engine implements the connection supervisor.

This file contains the outbound send path: correlation-id stamping, the
anti-flood throttle, the single-writer discipline over the websocket, and
the convenience senders feature modules use for text and image content.
*/
package engine

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"howdybot/internal/app/state"
	"howdybot/internal/app/wire"
	"howdybot/internal/pkg/errs"
	"howdybot/internal/pkg/randx"
)

// loginHandshake builds the first outbound frame of every connection.
func loginHandshake(session *Session) wire.Frame {
	return wire.LoginRequest(session.Handle(), session.Token())
}

// Send transmits one frame over the wire session. It succeeds only while
// connected; otherwise it reports ErrNotConnected without side effects.
// Every frame is stamped with a fresh short correlation id when the caller
// did not set one, and sends are spaced by the configured interval so the
// platform's flood protection is never tripped.
func (e *Engine) Send(frame wire.Frame) error {
	if !e.connected.Load() {
		return errs.NewError(errs.ErrNotConnected)
	}

	if frame.String("id") == "" {
		frame["id"] = randx.CorrelationID()
	}

	data, err := frame.Encode()
	if err != nil {
		e.logger.Error().Err(err).Str("frame_handler", frame.Handler()).Msg("Failed to encode outbound frame.")
		return errs.NewError(errs.ErrFrameEncode)
	}

	// The throttle is taken before the connection lookup so back-to-back
	// callers queue here rather than on the write mutex.
	_ = e.sendLimiter.Wait(context.Background())

	conn := e.currentConn()
	if conn == nil {
		return errs.NewError(errs.ErrNotConnected)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		e.logger.Error().Err(err).Str("frame_handler", frame.Handler()).Msg("Failed to write outbound frame.")
		return errs.NewError(errs.ErrSendFailed)
	}

	e.logger.Debug().
		Str("frame_handler", frame.Handler()).
		Str("correlation_id", frame.String("id")).
		Msg("Frame sent.")
	return nil
}

// SendText sends text content. With dm true, target is the recipient's
// handle; otherwise target is a room id, and an empty target resolves to
// the configured default room.
func (e *Engine) SendText(target, text string, dm bool) error {
	if dm {
		return e.Send(wire.DirectText(target, text))
	}

	room, err := e.resolveTargetRoom(target)
	if err != nil {
		return err
	}
	return e.Send(wire.RoomText(room.ID, text))
}

// SendImage sends image content by URL, addressed like SendText.
func (e *Engine) SendImage(target, url, caption string, dm bool) error {
	if dm {
		return e.Send(wire.DirectImage(target, url, caption))
	}

	room, err := e.resolveTargetRoom(target)
	if err != nil {
		return err
	}
	return e.Send(wire.RoomImage(room.ID, url, caption))
}

// JoinRoom requests to join a room by name; the room map is only updated
// when the platform acknowledges the join.
func (e *Engine) JoinRoom(name string) error {
	return e.Send(wire.JoinRoom(name))
}

// LeaveRoom requests to leave a room by id; the room map is only updated
// on acknowledgement.
func (e *Engine) LeaveRoom(roomID string) error {
	return e.Send(wire.LeaveRoom(roomID))
}

// RequestProfile asks the platform for a user's profile; the response
// arrives later as an "event:profile" occurrence.
func (e *Engine) RequestProfile(handle string) error {
	return e.Send(wire.ProfileRequest(handle))
}

// ResolveUserByHandle resolves a roster user by handle, case-insensitively.
func (e *Engine) ResolveUserByHandle(handle string) (state.User, bool) {
	return e.store.UserByHandle(handle)
}

// ResolveUserByID resolves a roster user by identifier.
func (e *Engine) ResolveUserByID(id string) (state.User, bool) {
	return e.store.UserByID(id)
}

// Users returns a snapshot of all known roster users.
func (e *Engine) Users() []state.User {
	return e.store.Users()
}

// ResolveRoom resolves a joined room by id.
func (e *Engine) ResolveRoom(roomID string) (state.Room, bool) {
	return e.store.Room(roomID)
}

// DefaultRoom resolves the configured default room among the joined rooms.
func (e *Engine) DefaultRoom() (state.Room, bool) {
	return e.store.DefaultRoom(e.session.DefaultRoomName())
}

// Locks exposes the shared named lock registry.
func (e *Engine) Locks() *state.LockTable {
	return e.store.Locks()
}

// OwnID returns the bot's own user id, or "" while still unknown.
func (e *Engine) OwnID() string {
	return e.session.OwnID()
}

func (e *Engine) resolveTargetRoom(target string) (state.Room, error) {
	if target == "" {
		room, ok := e.DefaultRoom()
		if !ok {
			return state.Room{}, errs.NewError(errs.ErrRoomUnknown, e.session.DefaultRoomName())
		}
		return room, nil
	}

	room, ok := e.store.Room(target)
	if !ok {
		return state.Room{}, errs.NewError(errs.ErrRoomUnknown, target)
	}
	return room, nil
}
