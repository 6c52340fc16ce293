/*
Package chat contains the core logic of two-party chat.

This file defines the Manager, the entry point used by the transport layer. It
owns one instance of every component, decodes inbound envelopes, routes them to
the component that handles them, and delivers whatever that component returns.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"pairchat/internal/app/event"
	"pairchat/internal/app/presence"
	"pairchat/internal/app/store"
	"pairchat/internal/configs"
	"pairchat/internal/pkg/errs"
	"pairchat/internal/pkg/logx"
	"pairchat/internal/pkg/metrics"
	"pairchat/internal/pkg/req"
)

// Kicker is a connection the Manager can close from the server side.
type Kicker interface {
	Kick(reason string)
}

// Manager wires the chat components together for one process.
type Manager struct {
	// config holds the application's read-only configuration settings.
	config *configs.AppConfig

	presence    *presence.Registry
	store       *store.Store
	coordinator *Coordinator
	typing      *TypingSignaler
	lifecycle   *Lifecycle

	// closed is set once Shutdown has started; later registrations are refused.
	closed bool
	mu     sync.Mutex

	logger zerolog.Logger
}

// NewManager constructs a Manager and its components from cfg.
func NewManager(cfg *configs.AppConfig, opts CoordinatorOptions) *Manager {
	if opts.Greeting == "" {
		opts.Greeting = cfg.Greeting
	}

	reg := presence.NewRegistry()
	st := store.New()
	coordinator := NewCoordinator(reg, st, opts)

	return &Manager{
		config:      cfg,
		presence:    reg,
		store:       st,
		coordinator: coordinator,
		typing:      NewTypingSignaler(reg, coordinator),
		lifecycle:   NewLifecycle(coordinator),
		logger:      logx.Component("Manager"),
	}
}

// Presence exposes the registry for read-only status endpoints.
func (m *Manager) Presence() *presence.Registry {
	return m.presence
}

// Store exposes the message store.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Coordinator exposes the session coordinator.
func (m *Manager) Coordinator() *Coordinator {
	return m.coordinator
}

// Register makes a newly accepted connection known. It reports false after Shutdown.
func (m *Manager) Register(conn event.Recipient) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.presence.Connect(conn)
	metrics.IncWSActive()
	m.logger.Debug().Str("conn_id", conn.ID()).Msg("Connection registered.")
	return true
}

// Disconnect runs the teardown for conn and delivers the resulting notifications.
// It must be called once per registered connection.
func (m *Manager) Disconnect(conn event.Recipient) {
	outs := m.lifecycle.HandleDisconnect(conn)
	m.deliver(outs, "disconnect")
	metrics.DecWSActive()
	metrics.SetOnlineUsers(m.presence.OnlineCount())
}

// Dispatch decodes one inbound frame from conn and applies it.
// Undecodable frames, unknown types and invalid payloads are dropped without reply.
func (m *Manager) Dispatch(conn event.Recipient, raw []byte) {
	var in event.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		m.drop(conn, "", errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	outs, err := m.route(conn, in)
	if err != nil {
		m.drop(conn, in.Type, err)
		return
	}

	metrics.IncWSEvent(string(in.Type))
	m.deliver(outs, string(in.Type))
}

// route applies one decoded envelope. Every error it returns is an *errs.CustomError.
func (m *Manager) route(conn event.Recipient, in event.Inbound) ([]event.Outbound, error) {
	switch in.Type {
	case event.TypeJoin:
		var p event.JoinPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		outs := m.presence.Join(conn, p.UserID, p.Name)
		metrics.SetOnlineUsers(m.presence.OnlineCount())
		return outs, nil

	case event.TypeCheckUserOnline:
		var p event.UserPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		status := event.UserStatus{UserID: p.UserID, IsOnline: m.presence.IsOnline(p.UserID)}
		return []event.Outbound{event.To(event.Event{Type: event.TypeUserStatus, Payload: status}, conn)}, nil

	case event.TypeChatRequest:
		var p event.PairPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		return m.coordinator.RequestChat(conn, p.FromID, p.ToID), nil

	case event.TypeAcceptRequest:
		var p event.PairPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		return m.coordinator.AcceptChat(conn, p.FromID, p.ToID), nil

	case event.TypeJoinRoom:
		var p event.RoomPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		m.coordinator.JoinRoom(conn, p.RoomID)
		return nil, nil

	case event.TypeSendMessage:
		var p event.SendMessagePayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		if len(p.Message) > m.config.MaxMessageBytes {
			return nil, errs.NewError(errs.ErrMessageContentTooLong)
		}
		return m.coordinator.SendMessage(conn, p.RoomID, p.Message), nil

	case event.TypeEditMessage:
		var p event.EditMessagePayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		if len(p.NewMessage) > m.config.MaxMessageBytes {
			return nil, errs.NewError(errs.ErrMessageContentTooLong)
		}
		return m.coordinator.EditMessage(conn, p.RoomID, p.MessageID, p.NewMessage), nil

	case event.TypeDeleteMessage:
		var p event.DeleteMessagePayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		return m.coordinator.DeleteMessage(conn, p.RoomID, p.MessageID), nil

	case event.TypeMarkRead:
		var p event.MarkReadPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		return m.coordinator.MarkRead(conn, p.RoomID, p.MessageIDs), nil

	case event.TypeTyping:
		var p event.RoomPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		return m.typing.Typing(conn, p.RoomID), nil

	case event.TypeStopTyping:
		var p event.RoomPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		return m.typing.StopTyping(conn, p.RoomID), nil

	case event.TypeEndChat:
		var p event.RoomPayload
		if cerr := req.BindPayload(in.Payload, &p); cerr != nil {
			return nil, cerr
		}
		return m.coordinator.EndChat(p.RoomID), nil
	}

	return nil, errs.NewError(errs.ErrUnknownEventType, in.Type)
}

func (m *Manager) deliver(outs []event.Outbound, source string) {
	if dropped := event.Deliver(outs); dropped > 0 {
		m.logger.Debug().Str("event", source).Int("dropped", dropped).Msg("Outbound events dropped on full queues.")
	}
}

func (m *Manager) drop(conn event.Recipient, typ event.Type, err error) {
	code := errs.CodeOf(err)

	label := string(typ)
	if code == errs.ErrUnknownEventType {
		// client-chosen names must not become label values
		label = "unknown"
	}
	metrics.IncWSDropped(label, dropReason(code))
	m.logger.Debug().
		Str("conn_id", conn.ID()).
		Str("event", string(typ)).
		Int("code", code).
		Err(err).
		Msg("Inbound event dropped.")
}

func dropReason(code int) string {
	switch code {
	case errs.ErrInvalidJSONFormat:
		return "invalid_json"
	case errs.ErrUnknownEventType:
		return "unknown_type"
	case errs.ErrInvalidPayload:
		return "invalid_payload"
	case errs.ErrMessageContentTooLong:
		return "too_long"
	}
	return "other"
}

// Shutdown refuses new connections and kicks every live one.
// Each kicked connection runs its own teardown as its read loop exits.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	conns := m.presence.Connections()
	m.logger.Info().Int("connections", len(conns)).Msg("Shutting down Manager...")

	for _, conn := range conns {
		if k, ok := conn.(Kicker); ok {
			k.Kick("server shutting down")
		}
	}

	m.logger.Info().Msg("Manager shutdown complete.")
}
