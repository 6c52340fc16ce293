package event

import (
	"encoding/json"
	"time"

	"pairchat/internal/app/user"
	"pairchat/internal/pkg/timex"
)

// Inbound payloads. Validation tags are enforced by req.BindPayload; a payload
// failing them is dropped.

// JoinPayload binds a user id and display name to the sending connection.
type JoinPayload struct {
	UserID string `json:"userId" validate:"required"`
	Name   string `json:"name"`
}

// joinWire accepts connectionId, the field name used by older clients.
type joinWire struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
}

func (p *JoinPayload) UnmarshalJSON(data []byte) error {
	var w joinWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	p.UserID = w.UserID
	if p.UserID == "" {
		p.UserID = w.ConnectionID
	}
	p.Name = w.Name
	return nil
}

// UserPayload names the user a presence query is about.
type UserPayload struct {
	UserID string `json:"userId" validate:"required"`
}

// PairPayload carries the requester and invitee of a chat request or accept.
type PairPayload struct {
	FromID string `json:"fromId" validate:"required"`
	ToID   string `json:"toId" validate:"required"`
}

// RoomPayload names the room of join_room, typing, stop_typing and end_chat.
type RoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

// SendMessagePayload carries new message text. Empty text is stored and relayed.
type SendMessagePayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	Message string `json:"message"`
}

// EditMessagePayload carries the replacement text for one message.
type EditMessagePayload struct {
	RoomID     string `json:"roomId" validate:"required"`
	MessageID  string `json:"messageId" validate:"required"`
	NewMessage string `json:"newMessage"`
}

// DeleteMessagePayload names the message to soft-delete.
type DeleteMessagePayload struct {
	RoomID    string `json:"roomId" validate:"required"`
	MessageID string `json:"messageId" validate:"required"`
}

// MarkReadPayload lists the messages the sender has read.
type MarkReadPayload struct {
	RoomID     string   `json:"roomId" validate:"required"`
	MessageIDs []string `json:"messageIds" validate:"required,min=1"`
}

// Outbound payloads. Timestamps marshal through timex.Millis.

// UserPresence names the user of user_online, user_offline and the typing events.
type UserPresence struct {
	UserID string `json:"userId"`
}

// UserStatus answers check_user_online.
type UserStatus struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// IncomingRequest tells the invitee who asked for a chat.
type IncomingRequest struct {
	FromID string `json:"fromId"`
}

// ChatStarted announces a room and its roster.
type ChatStarted struct {
	RoomID string      `json:"roomId"`
	Users  []user.User `json:"users"`
}

// MessageEdited carries the new text of an edited message.
type MessageEdited struct {
	RoomID    string
	MessageID string
	Message   string
	EditedAt  time.Time
}

func (p MessageEdited) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RoomID    string       `json:"roomId"`
		MessageID string       `json:"messageId"`
		Message   string       `json:"message"`
		EditedAt  timex.Millis `json:"editedAt"`
	}{p.RoomID, p.MessageID, p.Message, timex.Millis(p.EditedAt)})
}

// MessageDeleted announces a soft delete.
type MessageDeleted struct {
	RoomID    string
	MessageID string
	DeletedAt time.Time
}

func (p MessageDeleted) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RoomID    string       `json:"roomId"`
		MessageID string       `json:"messageId"`
		DeletedAt timex.Millis `json:"deletedAt"`
	}{p.RoomID, p.MessageID, timex.Millis(p.DeletedAt)})
}

// MessageRead lists the messages that just gained a receipt from ReadBy.
type MessageRead struct {
	RoomID     string
	MessageIDs []string
	ReadBy     string
	ReadAt     time.Time
}

func (p MessageRead) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RoomID     string       `json:"roomId"`
		MessageIDs []string     `json:"messageIds"`
		ReadBy     string       `json:"readBy"`
		ReadAt     timex.Millis `json:"readAt"`
	}{p.RoomID, p.MessageIDs, p.ReadBy, timex.Millis(p.ReadAt)})
}

// ChatEnded announces that a room is over.
type ChatEnded struct {
	RoomID string `json:"roomId"`
}
