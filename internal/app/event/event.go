/*
Package event defines the chat wire protocol: the JSON envelope exchanged over a
connection, the names of inbound and outbound events, their payloads, and the
Outbound type that components return for the transport layer to deliver.
*/
package event

import "encoding/json"

// Type names an event on the wire.
type Type string

// Inbound event types.
const (
	TypeJoin            Type = "join"
	TypeCheckUserOnline Type = "check_user_online"
	TypeChatRequest     Type = "chat_request"
	TypeAcceptRequest   Type = "accept_request"
	TypeJoinRoom        Type = "join_room"
	TypeSendMessage     Type = "send_message"
	TypeEditMessage     Type = "edit_message"
	TypeDeleteMessage   Type = "delete_message"
	TypeMarkRead        Type = "mark_read"
	TypeTyping          Type = "typing"
	TypeStopTyping      Type = "stop_typing"
	TypeEndChat         Type = "end_chat"
)

// Outbound event types.
const (
	TypeOnlineUsers     Type = "online_users"
	TypeUserOnline      Type = "user_online"
	TypeUserOffline     Type = "user_offline"
	TypeUserStatus      Type = "user_status"
	TypeIncomingRequest Type = "incoming_request"
	TypeChatStarted     Type = "chat_started"
	TypeReceiveMessage  Type = "receive_message"
	TypeMessageEdited   Type = "message_edited"
	TypeMessageDeleted  Type = "message_deleted"
	TypeMessageRead     Type = "message_read"
	TypeUserTyping      Type = "user_typing"
	TypeUserStopTyping  Type = "user_stop_typing"
	TypeChatEnded       Type = "chat_ended"
)

// Inbound is an envelope as read from a client, with the payload left undecoded.
type Inbound struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is an envelope addressed to one or more connections.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload,omitempty"`
}

// Recipient is a live connection that can be handed outbound events.
// Send must not block; it reports false when the event was dropped.
type Recipient interface {
	ID() string
	Send(ev Event) bool
}

// Outbound pairs an event with the connections it is addressed to.
// Recipients are resolved while the producing component holds its lock,
// delivery happens after the lock is released.
type Outbound struct {
	To    []Recipient
	Event Event
}

// To builds an Outbound for the given recipients.
func To(ev Event, recipients ...Recipient) Outbound {
	return Outbound{To: recipients, Event: ev}
}

// Deliver hands every outbound event to its recipients and returns how many sends were dropped.
func Deliver(outs []Outbound) int {
	dropped := 0
	for _, out := range outs {
		for _, r := range out.To {
			if !r.Send(out.Event) {
				dropped++
			}
		}
	}
	return dropped
}
