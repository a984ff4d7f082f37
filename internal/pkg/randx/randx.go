/*
Package randx provides functions for generating unique identifiers.

It is primarily used to generate the short correlation ids stamped on every
outbound wire frame, so feature modules can match asynchronous responses to
the requests that triggered them.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

// CorrelationIDLength is the fixed length of a correlation id.
const CorrelationIDLength = 8

// CorrelationID generates a short identifier for an outbound frame.
// It is the first hex group of a UUID v4: short enough for the wire
// protocol, random enough that collisions within a session's response
// window are not a practical concern.
func CorrelationID() string {
	id := uuid.New().String()
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id[:CorrelationIDLength]
}

// IsValidCorrelationID checks whether the given string has the shape of a
// correlation id produced by CorrelationID. The inbound path uses it to tell
// ids echoed from our own frames apart from platform-assigned ones.
func IsValidCorrelationID(id string) bool {
	if len(id) != CorrelationIDLength {
		return false
	}
	for _, char := range id {
		isDigit := char >= '0' && char <= '9'
		isHexLetter := char >= 'a' && char <= 'f'
		if !isDigit && !isHexLetter {
			return false
		}
	}
	return true
}
