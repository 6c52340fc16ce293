/*
Package presence tracks live connections and which user id each one speaks for.

Every accepted connection is known to the registry from Connect until Disconnect.
A connection becomes the presence of a user id on join; a later join for the same
id overwrites the mapping, last writer wins.
*/
package presence

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"pairchat/internal/app/event"
	"pairchat/internal/app/user"
	"pairchat/internal/pkg/logx"
)

// entry is the identity bound to one connection.
type entry struct {
	conn event.Recipient
	user user.User

	// joined is set once the connection has issued a join.
	joined bool
}

// Registry owns the connection set and the user id → connection map.
type Registry struct {
	mu sync.RWMutex

	// conns holds every live connection, keyed by connection id.
	conns map[string]*entry

	// online maps a user id to the entry of the connection that last joined with it.
	online map[string]*entry

	logger zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*entry),
		online: make(map[string]*entry),
		logger: logx.Component("PresenceRegistry"),
	}
}

// Connect makes conn reachable by "everyone" broadcasts. It does not make any user online.
func (r *Registry) Connect(conn event.Recipient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; !ok {
		r.conns[conn.ID()] = &entry{conn: conn}
	}
}

// Disconnect forgets conn. Presence entries that still point at it are left to Remove.
func (r *Registry) Disconnect(conn event.Recipient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, conn.ID())
}

// Join binds userID and displayName to conn and marks the user online.
// The caller receives the full online id list; every other connection is told the user is online.
func (r *Registry) Join(conn event.Recipient, userID, displayName string) []event.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn.ID()]
	if !ok {
		e = &entry{conn: conn}
		r.conns[conn.ID()] = e
	}

	if prev, taken := r.online[userID]; taken && prev.conn.ID() != conn.ID() {
		r.logger.Warn().
			Str("user_id", userID).
			Str("previous_conn_id", prev.conn.ID()).
			Str("conn_id", conn.ID()).
			Msg("User id joined again from another connection. Presence taken over.")
	}

	e.user = user.User{ID: userID, Name: displayName}
	e.joined = true
	r.online[userID] = e

	others := make([]event.Recipient, 0, len(r.conns))
	for id, other := range r.conns {
		if id != conn.ID() {
			others = append(others, other.conn)
		}
	}

	r.logger.Info().
		Str("user_id", userID).
		Str("name", displayName).
		Int("online_users", len(r.online)).
		Msg("User online.")

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeOnlineUsers, Payload: r.onlineIDs()}, conn),
		event.To(event.Event{Type: event.TypeUserOnline, Payload: event.UserPresence{UserID: userID}}, others...),
	}
}

// IsOnline reports whether userID currently has a presence entry.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.online[userID]
	return ok
}

// Lookup returns the connection currently holding userID's presence.
func (r *Registry) Lookup(userID string) (event.Recipient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.online[userID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Identity returns the user bound to a connection by its last join.
func (r *Registry) Identity(conn event.Recipient) (user.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[conn.ID()]
	if !ok || !e.joined {
		return user.User{}, false
	}
	return e.user, true
}

// Remove deletes userID's presence entry and tells every connection the user is offline.
// Removing an absent id does nothing.
func (r *Registry) Remove(userID string) []event.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.online[userID]; !ok {
		return nil
	}
	delete(r.online, userID)

	r.logger.Info().
		Str("user_id", userID).
		Int("online_users", len(r.online)).
		Msg("User offline.")

	everyone := lo.MapToSlice(r.conns, func(_ string, e *entry) event.Recipient {
		return e.conn
	})

	return []event.Outbound{
		event.To(event.Event{Type: event.TypeUserOffline, Payload: event.UserPresence{UserID: userID}}, everyone...),
	}
}

// OnlineIDs returns the sorted list of online user ids.
func (r *Registry) OnlineIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.onlineIDs()
}

// OnlineCount returns the number of online user ids.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.online)
}

// Connections returns every live connection.
func (r *Registry) Connections() []event.Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.conns, func(_ string, e *entry) event.Recipient {
		return e.conn
	})
}

func (r *Registry) onlineIDs() []string {
	ids := lo.Keys(r.online)
	slices.Sort(ids)
	return ids
}
