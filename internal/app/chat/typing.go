package chat

import (
	"github.com/rs/zerolog"

	"pairchat/internal/app/event"
	"pairchat/internal/app/presence"
	"pairchat/internal/pkg/logx"
)

// TypingSignaler relays ephemeral typing indicators to the caller's room peers.
// Nothing is stored and membership is not checked.
type TypingSignaler struct {
	presence    *presence.Registry
	coordinator *Coordinator
	logger      zerolog.Logger
}

// NewTypingSignaler constructs a TypingSignaler over the room groups of coordinator.
func NewTypingSignaler(reg *presence.Registry, coordinator *Coordinator) *TypingSignaler {
	return &TypingSignaler{
		presence:    reg,
		coordinator: coordinator,
		logger:      logx.Component("TypingSignaler"),
	}
}

// Typing tells every other subscriber of roomID that the caller's user is typing.
func (t *TypingSignaler) Typing(caller event.Recipient, roomID string) []event.Outbound {
	return t.signal(caller, roomID, event.TypeUserTyping)
}

// StopTyping tells every other subscriber of roomID that the caller's user stopped typing.
func (t *TypingSignaler) StopTyping(caller event.Recipient, roomID string) []event.Outbound {
	return t.signal(caller, roomID, event.TypeUserStopTyping)
}

func (t *TypingSignaler) signal(caller event.Recipient, roomID string, typ event.Type) []event.Outbound {
	who, ok := t.presence.Identity(caller)
	if !ok {
		t.logger.Debug().Str("conn_id", caller.ID()).Msg("Typing signal from anonymous connection ignored.")
		return nil
	}

	peers := t.coordinator.Peers(roomID, caller)
	if len(peers) == 0 {
		return nil
	}

	return []event.Outbound{
		event.To(event.Event{Type: typ, Payload: event.UserPresence{UserID: who.ID}}, peers...),
	}
}
