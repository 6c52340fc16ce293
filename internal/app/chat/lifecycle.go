package chat

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"pairchat/internal/app/event"
	"pairchat/internal/pkg/logx"
)

// Lifecycle tears down everything a connection left behind when it closes.
type Lifecycle struct {
	coordinator *Coordinator
	logger      zerolog.Logger
}

// NewLifecycle constructs a Lifecycle over the coordinator and the registry it guards.
func NewLifecycle(coordinator *Coordinator) *Lifecycle {
	return &Lifecycle{
		coordinator: coordinator,
		logger:      logx.Component("ConnectionLifecycleManager"),
	}
}

// HandleDisconnect runs the teardown for conn, in order:
//
//  1. conn leaves every room group;
//  2. each room of its user is ended for the remaining subscribers and dropped from all memberships;
//  3. conn is forgotten and the user's presence is removed, telling everyone it went offline.
//
// All three steps happen under the coordinator lock, so no accept, join_room or
// send can observe the connection half torn down.
// Message logs are kept. A connection that never joined only leaves its groups.
// Calling it again for the same connection does nothing.
func (l *Lifecycle) HandleDisconnect(conn event.Recipient) []event.Outbound {
	userID, outs := l.coordinator.teardown(conn)

	l.logger.Debug().
		Str("conn_id", conn.ID()).
		Str("user_id", userID).
		Int("outbound", len(outs)).
		Msg("Connection torn down.")

	return outs
}

// teardown unsubscribes conn from every group, ends each room active for the
// user conn speaks for without clearing its log, and clears conn from presence.
// It returns that user id, empty when conn never joined.
func (c *Coordinator) teardown(conn event.Recipient) (string, []event.Outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()

	who, joined := c.presence.Identity(conn)

	c.unsubscribeAll(conn)
	if !joined {
		c.presence.Disconnect(conn)
		return "", nil
	}

	rooms := lo.Keys(c.membership[who.ID])
	outs := make([]event.Outbound, 0, len(rooms)+1)
	for _, roomID := range rooms {
		outs = append(outs, event.To(
			event.Event{Type: event.TypeChatEnded, Payload: event.ChatEnded{RoomID: roomID}},
			c.subscribers(roomID, nil)...,
		))
		c.removeRoom(roomID)
		c.logger.Info().Str("room_id", roomID).Str("user_id", who.ID).Msg("Chat ended by disconnect.")
	}

	c.presence.Disconnect(conn)
	outs = append(outs, c.presence.Remove(who.ID)...)

	return who.ID, outs
}
