/*
Package randx generates process-unique identifiers.

Message and connection ids are random UUID v4 strings: unique for the lifetime of
the process with negligible collision probability and never reused.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnIDPrefix marks connection identifiers in logs so they are not confused with message ids.
const ConnIDPrefix = "conn_"

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// ConnID generates an identifier for a live websocket connection.
func ConnID() string {
	return ConnIDPrefix + uuid.New().String()
}
