/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the bot and in responses served by the control dashboard.
*/
package errs

// 1xxx: Dashboard Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Session and Transport Errors
const (
	// ErrNotConnected indicates that an outbound frame was requested while the
	// wire session is not in the connected state. Recoverable: the caller may
	// retry once the session is back up.
	ErrNotConnected = 2001

	// ErrSendFailed indicates that writing an outbound frame to the transport failed.
	ErrSendFailed = 2002

	// ErrFrameEncode indicates that an outbound frame could not be serialized.
	ErrFrameEncode = 2003

	// ErrRetryBudgetExhausted indicates that the reconnect attempt budget was
	// consumed without re-establishing the session. Fatal for this engine
	// instance; a fresh engine must be created to reconnect.
	ErrRetryBudgetExhausted = 2004
)

// 3xxx: Shared State and Resolution Errors
const (
	// ErrUserUnknown indicates that a handle or user id could not be resolved
	// from the roster state.
	ErrUserUnknown = 3001

	// ErrRoomUnknown indicates that a room id or the configured default room
	// is not among the currently joined rooms.
	ErrRoomUnknown = 3002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown indicates an unclassified internal error.
	ErrUnknown = 5000
)
