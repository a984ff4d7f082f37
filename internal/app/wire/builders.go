/*
Package wire defines the frame model for the Howdies real-time protocol.

This file contains constructors for every outbound frame the bot sends.
The correlation id ("id") is stamped by the connection supervisor at send
time, so builders never set it themselves.
*/
package wire

// LoginRequest builds the wire login handshake. It must be the first frame
// sent after the transport opens: the REST login only yields a transport
// token, not an authenticated wire session.
func LoginRequest(username, token string) Frame {
	return Frame{
		"handler":  HandlerLogin,
		"username": username,
		"token":    token,
	}
}

// JoinRoom builds a room join request by room name.
func JoinRoom(name string) Frame {
	return Frame{
		"handler": HandlerJoinChatroom,
		"name":    name,
	}
}

// LeaveRoom builds a room leave request.
func LeaveRoom(roomID string) Frame {
	return Frame{
		"handler": HandlerLeaveChatroom,
		"roomid":  roomID,
	}
}

// ProfileRequest asks the platform for a user's full profile. The response
// arrives asynchronously as a "profile" frame.
func ProfileRequest(username string) Frame {
	return Frame{
		"handler":  HandlerProfile,
		"username": username,
	}
}

// RoomText builds a text message addressed to a room.
func RoomText(roomID, text string) Frame {
	return Frame{
		"handler": HandlerChatroomMessage,
		"type":    "text",
		"roomid":  roomID,
		"text":    text,
	}
}

// RoomImage builds an image message addressed to a room.
func RoomImage(roomID, url, caption string) Frame {
	return Frame{
		"handler": HandlerChatroomMessage,
		"type":    "image",
		"roomid":  roomID,
		"url":     url,
		"text":    caption,
	}
}

// DirectText builds a text message addressed directly to a user.
func DirectText(username, text string) Frame {
	return Frame{
		"handler": HandlerMessage,
		"type":    "text",
		"to":      username,
		"text":    text,
	}
}

// DirectImage builds an image message addressed directly to a user.
func DirectImage(username, url, caption string) Frame {
	return Frame{
		"handler": HandlerMessage,
		"type":    "image",
		"to":      username,
		"url":     url,
		"text":    caption,
	}
}
