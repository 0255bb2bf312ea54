package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
)

type delivery struct {
	to domain.ParticipantID
	ev core.Event
}

type recorder struct {
	mu   sync.Mutex
	sent []delivery
}

func (r *recorder) Deliver(to domain.ParticipantID, ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{to: to, ev: ev})
}

// take returns and clears everything recorded so far.
func (r *recorder) take() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent
	r.sent = nil
	return out
}

func (r *recorder) to(id domain.ParticipantID) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Event
	for _, d := range r.sent {
		if d.to == id {
			out = append(out, d.ev)
		}
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMatchmaker() (*Matchmaker, *recorder) {
	rec := &recorder{}
	m := NewMatchmaker(rec)
	n := 0
	m.newRoomID = func() domain.RoomID {
		n++
		return domain.RoomID(fmt.Sprintf("call_%d", n))
	}
	return m, rec
}

// checkInvariants asserts the pool/table/index agree with each other.
func checkInvariants(t *testing.T, m *Matchmaker) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[domain.ParticipantID]bool)
	for _, w := range m.waiting {
		if seen[w.id] {
			t.Fatalf("participant %s waiting twice", w.id)
		}
		seen[w.id] = true
		if room, ok := m.roomOf[w.id]; ok {
			t.Fatalf("participant %s both waiting and in %s", w.id, room)
		}
	}
	if len(m.waiting) > 1 {
		t.Fatalf("waiting pool holds %d entries; a join with a non-empty pool must pair", len(m.waiting))
	}
	for room, sess := range m.sessions {
		if sess.ID != room {
			t.Fatalf("session %s stored under %s", sess.ID, room)
		}
		if sess.Initiator == sess.Responder {
			t.Fatalf("session %s pairs %s with itself", room, sess.Initiator)
		}
		for _, p := range sess.Participants() {
			if seen[p] {
				t.Fatalf("participant %s appears twice across pool/sessions", p)
			}
			seen[p] = true
			if m.roomOf[p] != room {
				t.Fatalf("index for %s = %q, want %s", p, m.roomOf[p], room)
			}
		}
	}
	for p, room := range m.roomOf {
		sess, ok := m.sessions[room]
		if !ok || !sess.Has(p) {
			t.Fatalf("stale index entry %s -> %s", p, room)
		}
	}
}
