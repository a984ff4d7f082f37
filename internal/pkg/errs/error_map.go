/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
dashboard HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: Dashboard Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Session and Transport Errors
	ErrNotConnected:         {Code: ErrNotConnected, Message: "Wire session is not connected.", Status: http.StatusServiceUnavailable},
	ErrSendFailed:           {Code: ErrSendFailed, Message: "Failed to send frame over the wire session.", Status: http.StatusBadGateway},
	ErrFrameEncode:          {Code: ErrFrameEncode, Message: "Failed to encode outbound frame.", Status: http.StatusInternalServerError},
	ErrRetryBudgetExhausted: {Code: ErrRetryBudgetExhausted, Message: "Reconnect attempts exhausted (%d). Session is dead.", Status: http.StatusServiceUnavailable},

	// 3xxx: Shared State and Resolution Errors
	ErrUserUnknown: {Code: ErrUserUnknown, Message: "User %q is not known to the roster.", Status: http.StatusNotFound},
	ErrRoomUnknown: {Code: ErrRoomUnknown, Message: "Room %q is not among the joined rooms.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
