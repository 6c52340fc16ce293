package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecipient struct {
	id     string
	accept bool
	got    []Event
}

func (s *stubRecipient) ID() string { return s.id }

func (s *stubRecipient) Send(ev Event) bool {
	if !s.accept {
		return false
	}
	s.got = append(s.got, ev)
	return true
}

func TestDeliver(t *testing.T) {
	a := &stubRecipient{id: "a", accept: true}
	b := &stubRecipient{id: "b", accept: true}
	full := &stubRecipient{id: "full"}

	dropped := Deliver([]Outbound{
		To(Event{Type: TypeUserOnline, Payload: UserPresence{UserID: "x"}}, a, b),
		To(Event{Type: TypeChatEnded}, b, full),
	})

	assert.Equal(t, 1, dropped)
	require.Len(t, a.got, 1)
	require.Len(t, b.got, 2)
	assert.Equal(t, TypeUserOnline, a.got[0].Type)
	assert.Equal(t, TypeChatEnded, b.got[1].Type)
}

func TestJoinPayloadAlias(t *testing.T) {
	t.Run("userId wins", func(t *testing.T) {
		var p JoinPayload
		require.NoError(t, json.Unmarshal([]byte(`{"userId":"u1","connectionId":"c1","name":"Ann"}`), &p))
		assert.Equal(t, "u1", p.UserID)
		assert.Equal(t, "Ann", p.Name)
	})

	t.Run("connectionId fallback", func(t *testing.T) {
		var p JoinPayload
		require.NoError(t, json.Unmarshal([]byte(`{"connectionId":"c1"}`), &p))
		assert.Equal(t, "c1", p.UserID)
	})
}

func TestEventEnvelope(t *testing.T) {
	b, err := json.Marshal(Event{Type: TypeUserOffline})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_offline"}`, string(b))

	b, err = json.Marshal(Event{Type: TypeUserStatus, Payload: UserStatus{UserID: "u", IsOnline: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_status","payload":{"userId":"u","isOnline":true}}`, string(b))
}

func TestTimestampPayloads(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 100*int(time.Millisecond), time.UTC)

	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"edited", MessageEdited{RoomID: "a-b", MessageID: "m1", Message: "hi", EditedAt: at},
			`{"roomId":"a-b","messageId":"m1","message":"hi","editedAt":"2026-01-01T00:00:00.100Z"}`},
		{"deleted", MessageDeleted{RoomID: "a-b", MessageID: "m1", DeletedAt: at},
			`{"roomId":"a-b","messageId":"m1","deletedAt":"2026-01-01T00:00:00.100Z"}`},
		{"read", MessageRead{RoomID: "a-b", MessageIDs: []string{"m1"}, ReadBy: "b", ReadAt: at},
			`{"roomId":"a-b","messageIds":["m1"],"readBy":"b","readAt":"2026-01-01T00:00:00.100Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.payload)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}
