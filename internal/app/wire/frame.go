/*
Package wire defines the frame model for the Howdies real-time protocol.

Every frame exchanged over the persistent websocket is a JSON object whose
"handler" field names the message kind. Inbound frames arrive in loosely
specified shapes (the platform is inconsistent about user-id field casing),
so Frame keeps the decoded object as-is and offers tolerant accessors.
*/
package wire

import "encoding/json"

// Known inbound discriminator values. Frames carrying any other handler
// value are still dispatched as generic events.
const (
	HandlerLogin           = "login"
	HandlerJoinChatroom    = "joinchatroom"
	HandlerLeaveChatroom   = "leavechatroom"
	HandlerActiveOccupants = "activeoccupants"
	HandlerGetUsers        = "getusers"
	HandlerUserJoin        = "userjoin"
	HandlerProfile         = "profile"
	HandlerChatroomMessage = "chatroommessage"
	HandlerMessage         = "message"
)

// Frame is a single decoded protocol frame. Outbound frames are built with
// the constructors in builders.go; inbound frames are produced by Parse.
type Frame map[string]any

// Parse decodes raw bytes into a Frame. The caller is responsible for
// treating a decode failure as a dropped frame, never a fatal condition.
func Parse(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// Handler returns the frame's discriminator, or "" when absent.
func (f Frame) Handler() string {
	return f.String("handler")
}

// String returns the first non-empty string value among the given keys.
func (f Frame) String(keys ...string) string {
	for _, key := range keys {
		if v, ok := f[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Text returns the first usable value among the given keys, accepting both
// string and numeric JSON values; numbers are normalized to their decimal
// string form. The platform encodes several identifiers either way.
func (f Frame) Text(keys ...string) string {
	for _, key := range keys {
		switch v := f[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return jsonNumber(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// UserID extracts a user identifier from the frame, tolerating the three
// field spellings the platform uses interchangeably.
func (f Frame) UserID() string {
	return f.Text("userID", "userid", "id")
}

// Users returns the embedded user list for roster/presence frames.
// Each entry is itself a Frame so the same accessors apply.
func (f Frame) Users() []Frame {
	raw, ok := f["users"].([]any)
	if !ok {
		return nil
	}
	users := make([]Frame, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			users = append(users, Frame(m))
		}
	}
	return users
}

// User returns the single embedded user object (profile responses), or nil.
func (f Frame) User() Frame {
	for _, key := range []string{"user", "profile"} {
		if m, ok := f[key].(map[string]any); ok {
			return Frame(m)
		}
	}
	return nil
}

// Failed reports whether the frame carries a platform error marker. Join
// and leave acknowledgements use this to distinguish success from failure.
func (f Frame) Failed() bool {
	if v, ok := f["error"]; ok && v != nil {
		if s, isString := v.(string); !isString || s != "" {
			return true
		}
	}
	if v, ok := f["success"].(bool); ok {
		return !v
	}
	return false
}

// Encode marshals the frame for the transport.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

func jsonNumber(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
