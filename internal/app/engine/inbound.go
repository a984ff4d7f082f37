/*
Package engine implements the connection supervisor.

This file contains the inbound path: every raw frame read from the wire is
parsed, folded into the shared state store according to its discriminator,
and then published as "event:<discriminator>" through the dispatcher.
Parse failures are logged and dropped; they never terminate the receive
loop.
*/
package engine

import (
	"howdybot/internal/app/state"
	"howdybot/internal/app/wire"
	"howdybot/internal/pkg/randx"
)

// handleInbound processes one raw frame from the transport.
func (e *Engine) handleInbound(raw []byte) {
	frame, err := wire.Parse(raw)
	if err != nil {
		e.logger.Warn().Err(err).Int("bytes", len(raw)).Msg("Dropping malformed inbound frame.")
		return
	}

	discriminator := frame.Handler()
	if discriminator == "" {
		e.logger.Warn().Msg("Dropping inbound frame without a discriminator.")
		return
	}

	e.applyStateUpdates(discriminator, frame)

	event := e.logger.Debug().Str("event", discriminator)
	// Acknowledgements echo the id stamped on the outbound frame; attach it
	// only when it has the shape of one of ours, so operators can trace a
	// response back to the request that triggered it.
	if id := frame.String("id"); randx.IsValidCorrelationID(id) {
		event = event.Str("correlation_id", id)
	}
	event.Msg("Dispatching inbound frame.")

	e.bus.Emit("event:"+discriminator, frame)
}

// applyStateUpdates folds an inbound frame into the shared state store
// before the event is published, so handlers observe state at least as new
// as the frame that triggered them.
func (e *Engine) applyStateUpdates(discriminator string, frame wire.Frame) {
	switch discriminator {
	case wire.HandlerActiveOccupants, wire.HandlerGetUsers:
		entries := frame.Users()
		users := make([]state.User, 0, len(entries))
		for _, entry := range entries {
			users = append(users, userFromFrame(entry))
		}
		e.store.UpsertUsers(users)

	case wire.HandlerUserJoin:
		// The frame itself is the user record.
		e.store.UpsertUser(userFromFrame(frame))

	case wire.HandlerProfile:
		if embedded := frame.User(); embedded != nil {
			e.store.UpsertUser(userFromFrame(embedded))
		}

	case wire.HandlerLogin:
		e.handleLoginAck(frame)

	case wire.HandlerJoinChatroom:
		e.handleJoinAck(frame)

	case wire.HandlerLeaveChatroom:
		if frame.Failed() {
			return
		}
		if roomID := frame.Text("roomid"); roomID != "" {
			e.store.RemoveRoom(roomID)
			e.logger.Info().Str("room_id", roomID).Msg("Left room.")
		}
	}
}

// handleLoginAck fills in the bot's own identity when the wire login
// acknowledgement carries it, then joins the configured default room.
func (e *Engine) handleLoginAck(frame wire.Frame) {
	if frame.Failed() {
		e.logger.Error().Msg("Wire login rejected by platform.")
		return
	}

	if id := frame.UserID(); id != "" && e.session.SetOwnID(id) {
		e.logger.Info().Str("own_id", id).Msg("Own user id confirmed by wire login.")
	}

	if name := e.session.DefaultRoomName(); name != "" {
		if err := e.JoinRoom(name); err != nil {
			e.logger.Warn().Err(err).Str("room", name).Msg("Failed to request default room join.")
		}
	}
}

// handleJoinAck records a joined room on success. Per the platform's quirk,
// a join acknowledgement may double as a login acknowledgement, so an unset
// own identity is also filled from here.
func (e *Engine) handleJoinAck(frame wire.Frame) {
	if frame.Failed() {
		e.logger.Warn().Str("room", frame.String("name")).Msg("Room join rejected.")
		return
	}

	roomID := frame.Text("roomid")
	name := frame.String("name")
	if roomID == "" {
		return
	}

	e.store.PutRoom(state.Room{ID: roomID, Name: name})
	e.logger.Info().Str("room_id", roomID).Str("room_name", name).Msg("Joined room.")

	if id := frame.Text("userID", "userid"); id != "" && e.session.SetOwnID(id) {
		e.logger.Info().Str("own_id", id).Msg("Own user id confirmed by join acknowledgement.")
	}
}

// userFromFrame extracts a roster record from a user object frame.
func userFromFrame(frame wire.Frame) state.User {
	return state.User{
		ID:     frame.UserID(),
		Handle: frame.String("username"),
		Avatar: frame.String("avatar"),
	}
}
