/*
Package errs provides custom error types and application-level error code constants.

Codes identify request-handling failures on the HTTP surface and decode failures on
the websocket protocol. The chat protocol itself never reports them to clients;
they exist so that drops can be logged and counted by a stable code.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrUnknownEventType indicates a websocket envelope whose type is not part of the protocol.
	ErrUnknownEventType = 1008

	// ErrInvalidPayload indicates a websocket payload with missing or invalid required fields.
	ErrInvalidPayload = 1009
)

// 2xxx: Chat Errors
const (
	// ErrMessageContentTooLong indicates that message text exceeded the configured size limit.
	ErrMessageContentTooLong = 2201
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
