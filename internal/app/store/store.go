/*
Package store holds the volatile per-room message logs.

A room log is an append-only, arrival-ordered sequence of messages. Messages are
never reordered or compacted; the whole log is discarded when the room ends. The
store has no networking and no persistence: it lives and dies with the process.
*/
package store

import (
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/samber/lo"

	"pairchat/internal/pkg/timex"
)

// Message is one entry of a room log.
type Message struct {
	ID        string
	RoomID    string
	Text      string
	Sender    string
	Timestamp time.Time
	EditedAt  *time.Time
	DeletedAt *time.Time
	ReadBy    map[string]time.Time
}

// messageWire is the JSON form of a Message. editedAt and deletedAt appear only when set.
type messageWire struct {
	ID        string                  `json:"id"`
	RoomID    string                  `json:"roomId"`
	Text      string                  `json:"message"`
	Sender    string                  `json:"sender"`
	Timestamp timex.Millis            `json:"timestamp"`
	EditedAt  *timex.Millis           `json:"editedAt,omitempty"`
	DeletedAt *timex.Millis           `json:"deletedAt,omitempty"`
	ReadBy    map[string]timex.Millis `json:"readBy"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	readBy := lo.MapValues(m.ReadBy, func(at time.Time, _ string) timex.Millis {
		return timex.Millis(at)
	})

	return json.Marshal(messageWire{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Text:      m.Text,
		Sender:    m.Sender,
		Timestamp: timex.Millis(m.Timestamp),
		EditedAt:  timex.Ptr(m.EditedAt),
		DeletedAt: timex.Ptr(m.DeletedAt),
		ReadBy:    readBy,
	})
}

// IsDeleted reports whether the message has been soft-deleted.
func (m Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// clone returns a copy that shares no mutable state with m.
func (m *Message) clone() Message {
	c := *m
	c.ReadBy = maps.Clone(m.ReadBy)
	if c.ReadBy == nil {
		c.ReadBy = map[string]time.Time{}
	}
	if m.EditedAt != nil {
		at := *m.EditedAt
		c.EditedAt = &at
	}
	if m.DeletedAt != nil {
		at := *m.DeletedAt
		c.DeletedAt = &at
	}
	return c
}

// Store owns every room log. All methods are safe for concurrent use and
// return copies, so callers may relay results after the lock is released.
type Store struct {
	mu    sync.RWMutex
	rooms map[string][]*Message
}

// New returns an empty store.
func New() *Store {
	return &Store{rooms: make(map[string][]*Message)}
}

// Append pushes msg to the room's log, creating the log on first use, and returns the stored message.
func (s *Store) Append(roomID string, msg Message) Message {
	stored := msg.clone()
	stored.RoomID = roomID

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[roomID] = append(s.rooms[roomID], &stored)
	return stored.clone()
}

// Find looks a message up by id within one room.
func (s *Store) Find(roomID, messageID string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg := s.find(roomID, messageID)
	if msg == nil {
		return Message{}, false
	}
	return msg.clone(), true
}

// Edit replaces the text of a message. It fails when the message is absent,
// editorID is not the sender, or the message is deleted.
func (s *Store) Edit(roomID, messageID, editorID, newText string, editedAt time.Time) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.find(roomID, messageID)
	if msg == nil || msg.Sender != editorID || msg.DeletedAt != nil {
		return Message{}, false
	}

	msg.Text = newText
	msg.EditedAt = &editedAt
	return msg.clone(), true
}

// SoftDelete clears the text of a message and stamps its delete time.
// It fails when the message is absent or deleterID is not the sender.
// Deleting an already deleted message succeeds and returns it unchanged.
func (s *Store) SoftDelete(roomID, messageID, deleterID string, deletedAt time.Time) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.find(roomID, messageID)
	if msg == nil || msg.Sender != deleterID {
		return Message{}, false
	}

	if msg.DeletedAt == nil {
		msg.Text = ""
		msg.DeletedAt = &deletedAt
	}
	return msg.clone(), true
}

// MarkRead records a read receipt for readerID on each listed message and
// returns the ids that actually changed. Absent, own, deleted and already
// read messages are skipped; an existing receipt is never overwritten.
func (s *Store) MarkRead(roomID, readerID string, messageIDs []string, readAt time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]string, 0, len(messageIDs))
	if _, ok := s.rooms[roomID]; !ok {
		return updated
	}

	for _, id := range messageIDs {
		msg := s.find(roomID, id)
		if msg == nil || msg.Sender == readerID || msg.DeletedAt != nil {
			continue
		}
		if _, seen := msg.ReadBy[readerID]; seen {
			continue
		}

		if msg.ReadBy == nil {
			msg.ReadBy = make(map[string]time.Time)
		}
		msg.ReadBy[readerID] = readAt
		updated = append(updated, id)
	}

	return updated
}

// Clear discards the room's entire log.
func (s *Store) Clear(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
}

// Messages returns a copy of the room's log in arrival order.
func (s *Store) Messages(roomID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.rooms[roomID], func(m *Message, _ int) Message {
		return m.clone()
	})
}

// Len returns the number of messages in the room's log.
func (s *Store) Len(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms[roomID])
}

func (s *Store) find(roomID, messageID string) *Message {
	msg, ok := lo.Find(s.rooms[roomID], func(m *Message) bool {
		return m.ID == messageID
	})
	if !ok {
		return nil
	}
	return msg
}
