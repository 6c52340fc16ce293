package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/internal/app/event"
	"pairchat/internal/app/presence"
	"pairchat/internal/app/store"
	"pairchat/internal/app/user"
	"pairchat/internal/testutil"
)

const greeting = "hello there"

var t0 = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

type fixture struct {
	reg   *presence.Registry
	store *store.Store
	coord *Coordinator
	ticks int
	ids   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{reg: presence.NewRegistry(), store: store.New()}
	f.coord = NewCoordinator(f.reg, f.store, CoordinatorOptions{
		Greeting: greeting,
		Clock: func() time.Time {
			f.ticks++
			return t0.Add(time.Duration(f.ticks) * time.Second)
		},
		NewID: func() string {
			f.ids++
			return fmt.Sprintf("m%d", f.ids)
		},
	})
	return f
}

// join connects a recorder for userID and makes it online; join events are discarded.
func (f *fixture) join(userID, name string) *testutil.Recorder {
	rec := testutil.NewRecorder("c-" + userID)
	f.reg.Connect(rec)
	f.reg.Join(rec, userID, name)
	return rec
}

// pair runs the request/accept handshake between from and to and clears their inboxes.
func (f *fixture) pair(from, to *testutil.Recorder, fromID, toID string) string {
	event.Deliver(f.coord.RequestChat(from, fromID, toID))
	event.Deliver(f.coord.AcceptChat(to, fromID, toID))
	from.Reset()
	to.Reset()
	return RoomID(fromID, toID)
}

func TestCoordinator_RequestAndAccept(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	requester := f.join("100", "Ann")
	accepter := f.join("999", "")

	// When 100 requests a chat with 999
	event.Deliver(f.coord.RequestChat(requester, "100", "999"))

	// Then only 999 is asked
	req.Empty(requester.Events())
	incoming := accepter.OfType(event.TypeIncomingRequest)
	req.Len(incoming, 1)
	req.Equal(event.IncomingRequest{FromID: "100"}, incoming[0].Payload)
	req.Empty(f.coord.Rooms("100"))

	// When 999 accepts
	event.Deliver(f.coord.AcceptChat(accepter, "100", "999"))

	// Then both are members and subscribers of the canonical room
	req.Equal([]string{"100-999"}, f.coord.Rooms("100"))
	req.Equal([]string{"100-999"}, f.coord.Rooms("999"))
	req.Equal([]string{"c-100", "c-999"}, f.coord.Subscribers("100-999"))

	// And both receive chat_started with the roster, then the seeded greeting
	for _, rec := range []*testutil.Recorder{requester, accepter} {
		req.Equal([]event.Type{event.TypeChatStarted, event.TypeReceiveMessage}, rec.Types()[len(rec.Types())-2:])

		started := rec.OfType(event.TypeChatStarted)
		req.Len(started, 1)
		req.Equal(event.ChatStarted{
			RoomID: "100-999",
			Users:  []user.User{{ID: "100", Name: "Ann"}, {ID: "999", Name: user.DefaultName}},
		}, started[0].Payload)

		seeded := rec.OfType(event.TypeReceiveMessage)
		req.Len(seeded, 1)
		msg, ok := seeded[0].Payload.(store.Message)
		req.True(ok)
		req.Equal("m1", msg.ID)
		req.Equal("100-999", msg.RoomID)
		req.Equal("100", msg.Sender)
		req.Equal(greeting, msg.Text)
		req.Equal(t0.Add(time.Second), msg.Timestamp)
	}

	req.Equal(1, f.store.Len("100-999"))
}

func TestCoordinator_RequestChat_Offline(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", "")

	event.Deliver(f.coord.RequestChat(alice, "alice", "ghost"))

	offline := alice.OfType(event.TypeUserOffline)
	require.Len(t, offline, 1)
	assert.Nil(t, offline[0].Payload)
	assert.False(t, f.coord.HasMembershipKey("alice"))
	assert.False(t, f.coord.HasMembershipKey("ghost"))
}

func TestCoordinator_AcceptChat_RequesterGone(t *testing.T) {
	f := newFixture(t)
	bob := f.join("bob", "Bob")

	event.Deliver(f.coord.AcceptChat(bob, "alice", "bob"))

	assert.True(t, f.coord.IsMember("alice", "alice-bob"))
	assert.True(t, f.coord.IsMember("bob", "alice-bob"))
	assert.Equal(t, []string{"c-bob"}, f.coord.Subscribers("alice-bob"))

	started := bob.OfType(event.TypeChatStarted)
	require.Len(t, started, 1)
	assert.Equal(t, []user.User{{ID: "bob", Name: "Bob"}}, started[0].Payload.(event.ChatStarted).Users)

	seeded := bob.OfType(event.TypeReceiveMessage)
	require.Len(t, seeded, 1)
	assert.Equal(t, "alice", seeded[0].Payload.(store.Message).Sender)
}

func TestCoordinator_AcceptChat_Duplicate(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")

	event.Deliver(f.coord.AcceptChat(bob, "alice", "bob"))
	event.Deliver(f.coord.AcceptChat(bob, "alice", "bob"))

	assert.Equal(t, []string{"alice-bob"}, f.coord.Rooms("alice"))
	assert.Len(t, alice.OfType(event.TypeChatStarted), 2)
	assert.Len(t, bob.OfType(event.TypeReceiveMessage), 2)
	assert.Equal(t, 2, f.store.Len("alice-bob"))
}

func TestCoordinator_JoinRoom(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")
	carol := f.join("carol", "")
	room := f.pair(alice, bob, "alice", "bob")

	t.Run("non-member is ignored", func(t *testing.T) {
		assert.False(t, f.coord.JoinRoom(carol, room))
		assert.NotContains(t, f.coord.Subscribers(room), "c-carol")
	})

	t.Run("anonymous connection is ignored", func(t *testing.T) {
		anon := testutil.NewRecorder("c-anon")
		f.reg.Connect(anon)
		assert.False(t, f.coord.JoinRoom(anon, room))
	})

	t.Run("member's second connection subscribes", func(t *testing.T) {
		tab := testutil.NewRecorder("c-alice-2")
		f.reg.Connect(tab)
		f.reg.Join(tab, "alice", "")

		assert.True(t, f.coord.JoinRoom(tab, room))
		assert.Equal(t, []string{"c-alice", "c-alice-2", "c-bob"}, f.coord.Subscribers(room))
	})
}

func TestCoordinator_SendMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")
	carol := f.join("carol", "")
	room := f.pair(alice, bob, "alice", "bob")

	// Given a non-member writes to the room
	event.Deliver(f.coord.SendMessage(carol, room, "let me in"))

	// Then nothing happens
	req.Empty(alice.Events())
	req.Empty(bob.Events())
	req.Equal(1, f.store.Len(room))

	// When a member writes
	event.Deliver(f.coord.SendMessage(bob, room, "hi alice"))

	// Then both subscribers receive the stored record
	for _, rec := range []*testutil.Recorder{alice, bob} {
		got := rec.OfType(event.TypeReceiveMessage)
		req.Len(got, 1)
		msg := got[0].Payload.(store.Message)
		req.Equal("bob", msg.Sender)
		req.Equal("hi alice", msg.Text)
		req.Equal(room, msg.RoomID)
		req.Empty(msg.ReadBy)
	}

	msgs := f.store.Messages(room)
	req.Len(msgs, 2)
	req.Equal("hi alice", msgs[1].Text)
}

func TestCoordinator_EditMessage(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")
	room := f.pair(alice, bob, "alice", "bob")
	event.Deliver(f.coord.SendMessage(alice, room, "helo"))
	sent := alice.OfType(event.TypeReceiveMessage)[0].Payload.(store.Message)
	alice.Reset()
	bob.Reset()

	t.Run("others cannot edit", func(t *testing.T) {
		assert.Empty(t, f.coord.EditMessage(bob, room, sent.ID, "pwned"))
		got, _ := f.store.Find(room, sent.ID)
		assert.Equal(t, "helo", got.Text)
	})

	t.Run("sender edits", func(t *testing.T) {
		event.Deliver(f.coord.EditMessage(alice, room, sent.ID, "hello"))

		edited := bob.OfType(event.TypeMessageEdited)
		require.Len(t, edited, 1)
		payload := edited[0].Payload.(event.MessageEdited)
		assert.Equal(t, room, payload.RoomID)
		assert.Equal(t, sent.ID, payload.MessageID)
		assert.Equal(t, "hello", payload.Message)
		assert.True(t, payload.EditedAt.After(sent.Timestamp))
		assert.Len(t, alice.OfType(event.TypeMessageEdited), 1)
	})
}

func TestCoordinator_DeleteMessage(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")
	room := f.pair(alice, bob, "alice", "bob")
	event.Deliver(f.coord.SendMessage(alice, room, "oops"))
	sent := bob.OfType(event.TypeReceiveMessage)[0].Payload.(store.Message)

	assert.Empty(t, f.coord.DeleteMessage(bob, room, sent.ID))

	event.Deliver(f.coord.DeleteMessage(alice, room, sent.ID))
	event.Deliver(f.coord.DeleteMessage(alice, room, sent.ID))

	deleted := bob.OfType(event.TypeMessageDeleted)
	require.Len(t, deleted, 2)
	first := deleted[0].Payload.(event.MessageDeleted)
	second := deleted[1].Payload.(event.MessageDeleted)
	assert.Equal(t, sent.ID, first.MessageID)
	assert.Equal(t, first.DeletedAt, second.DeletedAt)

	got, _ := f.store.Find(room, sent.ID)
	assert.True(t, got.IsDeleted())
	assert.Empty(t, got.Text)
}

func TestCoordinator_MarkRead(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")
	room := f.pair(alice, bob, "alice", "bob")
	event.Deliver(f.coord.SendMessage(alice, room, "read me"))
	sent := bob.OfType(event.TypeReceiveMessage)[0].Payload.(store.Message)

	// unknown ids and repeated reads are not reported
	event.Deliver(f.coord.MarkRead(bob, room, []string{sent.ID, "ghost"}))
	event.Deliver(f.coord.MarkRead(bob, room, []string{sent.ID}))

	reads := alice.OfType(event.TypeMessageRead)
	require.Len(t, reads, 1)
	payload := reads[0].Payload.(event.MessageRead)
	assert.Equal(t, []string{sent.ID}, payload.MessageIDs)
	assert.Equal(t, "bob", payload.ReadBy)
	assert.Equal(t, room, payload.RoomID)

	got, _ := f.store.Find(room, sent.ID)
	assert.Equal(t, map[string]time.Time{"bob": payload.ReadAt}, got.ReadBy)

	assert.Empty(t, f.coord.MarkRead(alice, room, []string{sent.ID}), "sender cannot mark own message")
}

func TestCoordinator_EndChat(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")
	room := f.pair(alice, bob, "alice", "bob")
	event.Deliver(f.coord.SendMessage(alice, room, "bye"))
	alice.Reset()
	bob.Reset()

	event.Deliver(f.coord.EndChat(room))

	for _, rec := range []*testutil.Recorder{alice, bob} {
		ended := rec.OfType(event.TypeChatEnded)
		req.Len(ended, 1)
		req.Equal(event.ChatEnded{RoomID: room}, ended[0].Payload)
	}

	req.Equal(0, f.store.Len(room))
	req.False(f.coord.HasMembershipKey("alice"))
	req.False(f.coord.HasMembershipKey("bob"))
	req.Empty(f.coord.Subscribers(room))

	// the room is gone for good
	req.Empty(f.coord.SendMessage(alice, room, "anyone?"))
	req.Empty(f.coord.EndChat(room)[0].To)
}

func TestCoordinator_EndChat_KeepsOtherRooms(t *testing.T) {
	f := newFixture(t)
	alice := f.join("alice", "")
	bob := f.join("bob", "")
	carol := f.join("carol", "")
	ab := f.pair(alice, bob, "alice", "bob")
	ac := f.pair(alice, carol, "alice", "carol")

	event.Deliver(f.coord.EndChat(ab))

	assert.Equal(t, []string{ac}, f.coord.Rooms("alice"))
	assert.False(t, f.coord.HasMembershipKey("bob"))
	assert.Empty(t, carol.OfType(event.TypeChatEnded))
}
