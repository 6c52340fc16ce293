/*
Package chat contains the core logic of two-party chat: the request/accept
handshake, room membership, room broadcast groups, message relay, typing
signals, and teardown on end or disconnect.

This file defines the Coordinator, the sole owner of membership and room groups.
*/
package chat

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"pairchat/internal/app/event"
	"pairchat/internal/app/presence"
	"pairchat/internal/app/store"
	"pairchat/internal/app/user"
	"pairchat/internal/configs"
	"pairchat/internal/pkg/logx"
	"pairchat/internal/pkg/metrics"
	"pairchat/internal/pkg/randx"
)

// Clock returns the server-receipt time used for every timestamp.
type Clock func() time.Time

// IDGenerator returns a new process-unique message id.
type IDGenerator func() string

// Now is the default Clock: UTC with millisecond precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// CoordinatorOptions carries the collaborators a Coordinator needs besides presence and storage.
// Zero fields take defaults.
type CoordinatorOptions struct {
	Greeting string
	Clock    Clock
	NewID    IDGenerator
}

// Coordinator owns the request → accept handshake, the membership map and the
// per-room broadcast groups.
type Coordinator struct {
	// mu guards membership and groups. It may be held while calling into the
	// presence registry or the store, never the other way round.
	mu sync.Mutex

	// membership maps a user id to the set of room ids active for that user.
	// Users with no active room have no key.
	membership map[string]map[string]struct{}

	// groups maps a room id to the connections subscribed to its broadcasts.
	groups map[string]map[string]event.Recipient

	presence *presence.Registry
	store    *store.Store

	greeting string
	clock    Clock
	newID    IDGenerator

	logger zerolog.Logger
}

// NewCoordinator constructs a Coordinator over the given registry and store.
func NewCoordinator(reg *presence.Registry, st *store.Store, opts CoordinatorOptions) *Coordinator {
	if opts.Greeting == "" {
		opts.Greeting = configs.DefaultGreeting
	}
	if opts.Clock == nil {
		opts.Clock = Now
	}
	if opts.NewID == nil {
		opts.NewID = randx.MessageID
	}

	return &Coordinator{
		membership: make(map[string]map[string]struct{}),
		groups:     make(map[string]map[string]event.Recipient),
		presence:   reg,
		store:      st,
		greeting:   opts.Greeting,
		clock:      opts.Clock,
		newID:      opts.NewID,
		logger:     logx.Component("ChatSessionCoordinator"),
	}
}

// RequestChat forwards a chat request from fromID to toID's connection.
// When toID is offline only the caller is told; nothing is created.
func (c *Coordinator) RequestChat(caller event.Recipient, fromID, toID string) []event.Outbound {
	invitee, ok := c.presence.Lookup(toID)
	if !ok {
		c.logger.Debug().Str("from_id", fromID).Str("to_id", toID).Msg("Chat request to offline user.")
		return []event.Outbound{event.To(event.Event{Type: event.TypeUserOffline}, caller)}
	}

	c.logger.Debug().Str("from_id", fromID).Str("to_id", toID).Msg("Chat request forwarded.")
	return []event.Outbound{
		event.To(event.Event{Type: event.TypeIncomingRequest, Payload: event.IncomingRequest{FromID: fromID}}, invitee),
	}
}

// AcceptChat opens the room of fromID and toID: both users gain the room in their
// membership, the caller and (if online) the requester subscribe to it, the room
// is told the chat started with its current roster, and a greeting authored by
// fromID is seeded and relayed.
func (c *Coordinator) AcceptChat(caller event.Recipient, fromID, toID string) []event.Outbound {
	roomID := RoomID(fromID, toID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.addMember(fromID, roomID)
	c.addMember(toID, roomID)

	c.subscribe(roomID, caller)
	if requester, ok := c.presence.Lookup(fromID); ok {
		c.subscribe(roomID, requester)
	}

	roster := c.roster(roomID)
	recipients := c.subscribers(roomID, nil)

	greeting := c.store.Append(roomID, store.Message{
		ID:        c.newID(),
		Text:      c.greeting,
		Sender:    fromID,
		Timestamp: c.clock(),
	})

	c.logger.Info().
		Str("room_id", roomID).
		Int("subscribers", len(recipients)).
		Msg("Chat started.")

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeChatStarted, Payload: event.ChatStarted{RoomID: roomID, Users: roster}}, recipients...),
		event.To(event.Event{Type: event.TypeReceiveMessage, Payload: greeting}, recipients...),
	}
}

// JoinRoom re-subscribes the caller to a room its user is already a member of.
// It reports whether the subscription happened.
func (c *Coordinator) JoinRoom(caller event.Recipient, roomID string) bool {
	who, ok := c.presence.Identity(caller)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isMember(who.ID, roomID) {
		c.logger.Debug().Str("user_id", who.ID).Str("room_id", roomID).Msg("Join of foreign room ignored.")
		return false
	}

	c.subscribe(roomID, caller)
	return true
}

// SendMessage appends text from the caller's user to the room and relays it.
// Non-members are silently ignored.
func (c *Coordinator) SendMessage(caller event.Recipient, roomID, text string) []event.Outbound {
	who, ok := c.presence.Identity(caller)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isMember(who.ID, roomID) {
		c.logger.Debug().Str("user_id", who.ID).Str("room_id", roomID).Msg("Message to foreign room dropped.")
		return nil
	}

	msg := c.store.Append(roomID, store.Message{
		ID:        c.newID(),
		Text:      text,
		Sender:    who.ID,
		Timestamp: c.clock(),
	})

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeReceiveMessage, Payload: msg}, c.subscribers(roomID, nil)...),
	}
}

// EditMessage replaces the text of one of the caller's own messages and relays the edit.
func (c *Coordinator) EditMessage(caller event.Recipient, roomID, messageID, newText string) []event.Outbound {
	who, ok := c.presence.Identity(caller)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isMember(who.ID, roomID) {
		return nil
	}

	msg, ok := c.store.Edit(roomID, messageID, who.ID, newText, c.clock())
	if !ok {
		c.logger.Debug().Str("user_id", who.ID).Str("message_id", messageID).Msg("Edit rejected.")
		return nil
	}

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeMessageEdited, Payload: event.MessageEdited{
			RoomID:    roomID,
			MessageID: msg.ID,
			Message:   msg.Text,
			EditedAt:  *msg.EditedAt,
		}}, c.subscribers(roomID, nil)...),
	}
}

// DeleteMessage soft-deletes one of the caller's own messages and relays the deletion.
// Deleting an already deleted message relays the existing delete time again.
func (c *Coordinator) DeleteMessage(caller event.Recipient, roomID, messageID string) []event.Outbound {
	who, ok := c.presence.Identity(caller)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isMember(who.ID, roomID) {
		return nil
	}

	msg, ok := c.store.SoftDelete(roomID, messageID, who.ID, c.clock())
	if !ok {
		c.logger.Debug().Str("user_id", who.ID).Str("message_id", messageID).Msg("Delete rejected.")
		return nil
	}

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeMessageDeleted, Payload: event.MessageDeleted{
			RoomID:    roomID,
			MessageID: msg.ID,
			DeletedAt: *msg.DeletedAt,
		}}, c.subscribers(roomID, nil)...),
	}
}

// MarkRead records read receipts for the caller's user and relays the ids that changed.
func (c *Coordinator) MarkRead(caller event.Recipient, roomID string, messageIDs []string) []event.Outbound {
	who, ok := c.presence.Identity(caller)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	readAt := c.clock()
	updated := c.store.MarkRead(roomID, who.ID, messageIDs, readAt)
	if len(updated) == 0 {
		return nil
	}

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeMessageRead, Payload: event.MessageRead{
			RoomID:     roomID,
			MessageIDs: updated,
			ReadBy:     who.ID,
			ReadAt:     readAt,
		}}, c.subscribers(roomID, nil)...),
	}
}

// EndChat tells the room the chat ended, clears its log, removes it from every
// user's membership and unsubscribes every connection from it.
func (c *Coordinator) EndChat(roomID string) []event.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()

	recipients := c.subscribers(roomID, nil)
	logSize := c.store.Len(roomID)

	c.store.Clear(roomID)
	c.removeRoom(roomID)
	delete(c.groups, roomID)
	metrics.SetActiveRooms(len(c.groups))

	c.logger.Info().
		Str("room_id", roomID).
		Int("subscribers", len(recipients)).
		Int("messages_cleared", logSize).
		Msg("Chat ended.")

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeChatEnded, Payload: event.ChatEnded{RoomID: roomID}}, recipients...),
	}
}

// Peers returns the room's subscribers other than except.
func (c *Coordinator) Peers(roomID string, except event.Recipient) []event.Recipient {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.subscribers(roomID, except)
}

// Rooms returns the sorted room ids active for userID.
func (c *Coordinator) Rooms(userID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := lo.Keys(c.membership[userID])
	slices.Sort(rooms)
	return rooms
}

// IsMember reports whether roomID is active for userID.
func (c *Coordinator) IsMember(userID, roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isMember(userID, roomID)
}

// Subscribers returns the sorted connection ids subscribed to roomID.
func (c *Coordinator) Subscribers(roomID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := lo.Keys(c.groups[roomID])
	slices.Sort(ids)
	return ids
}

// HasMembershipKey reports whether userID has any membership entry at all.
func (c *Coordinator) HasMembershipKey(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.membership[userID]
	return ok
}

// The helpers below require c.mu.

func (c *Coordinator) isMember(userID, roomID string) bool {
	_, ok := c.membership[userID][roomID]
	return ok
}

func (c *Coordinator) addMember(userID, roomID string) {
	rooms, ok := c.membership[userID]
	if !ok {
		rooms = make(map[string]struct{})
		c.membership[userID] = rooms
	}
	rooms[roomID] = struct{}{}
}

// removeRoom drops roomID from every user's membership, pruning emptied users.
func (c *Coordinator) removeRoom(roomID string) {
	for userID, rooms := range c.membership {
		if _, ok := rooms[roomID]; !ok {
			continue
		}
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(c.membership, userID)
		}
	}
}

func (c *Coordinator) subscribe(roomID string, conn event.Recipient) {
	group, ok := c.groups[roomID]
	if !ok {
		group = make(map[string]event.Recipient)
		c.groups[roomID] = group
	}
	group[conn.ID()] = conn
	metrics.SetActiveRooms(len(c.groups))
}

// unsubscribeAll removes conn from every group, pruning emptied groups.
func (c *Coordinator) unsubscribeAll(conn event.Recipient) {
	for roomID, group := range c.groups {
		delete(group, conn.ID())
		if len(group) == 0 {
			delete(c.groups, roomID)
		}
	}
	metrics.SetActiveRooms(len(c.groups))
}

// subscribers snapshots the room's connections, optionally without one of them.
func (c *Coordinator) subscribers(roomID string, except event.Recipient) []event.Recipient {
	group := c.groups[roomID]
	out := make([]event.Recipient, 0, len(group))
	for id, conn := range group {
		if except != nil && id == except.ID() {
			continue
		}
		out = append(out, conn)
	}
	return out
}

// roster lists the identified users among the room's connections, sorted by id.
func (c *Coordinator) roster(roomID string) []user.User {
	users := make([]user.User, 0, len(c.groups[roomID]))
	for _, conn := range c.groups[roomID] {
		who, ok := c.presence.Identity(conn)
		if !ok {
			continue
		}
		users = append(users, user.User{ID: who.ID, Name: who.DisplayName()})
	}

	slices.SortFunc(users, func(a, b user.User) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return users
}
