// Package testutil holds fakes shared by package tests.
package testutil

import (
	"sync"

	"pairchat/internal/app/event"
)

// Recorder is an event.Recipient that keeps every event it is sent.
type Recorder struct {
	id string

	mu     sync.Mutex
	events []event.Event
	full   bool
}

// NewRecorder returns a recorder with the given connection id.
func NewRecorder(id string) *Recorder {
	return &Recorder{id: id}
}

func (r *Recorder) ID() string {
	return r.id
}

// Send records ev unless the recorder was marked full.
func (r *Recorder) Send(ev event.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

// SetFull makes subsequent sends fail, like a saturated send queue.
func (r *Recorder) SetFull(full bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.full = full
}

// Events returns a copy of everything received so far.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]event.Event(nil), r.events...)
}

// Types returns the type of every received event, in order.
func (r *Recorder) Types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]event.Type, 0, len(r.events))
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

// OfType returns the received events of type t, in order.
func (r *Recorder) OfType(t event.Type) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []event.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Reset forgets everything received so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}
