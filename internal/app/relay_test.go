package app

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dkeye/VoiceMatch/internal/core"
)

func TestForward_OnlyToOtherParticipant(t *testing.T) {
	m, rec := newTestMatchmaker()
	_ = m.RequestSession("a")
	_ = m.RequestSession("b")
	_ = m.RequestSession("c")
	_ = m.RequestSession("d")
	rec.take()

	sig := json.RawMessage(`{"type":"candidate","candidate":{"candidate":"x"}}`)
	if err := m.Forward("b", sig); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	got := rec.take()
	if len(got) != 1 {
		t.Fatalf("deliveries=%d, want 1", len(got))
	}
	if got[0].to != "a" {
		t.Fatalf("delivered to %s, want a", got[0].to)
	}
	sr := got[0].ev.(core.SignalReceived)
	if sr.From != "b" || string(sr.Signal) != string(sig) {
		t.Fatalf("event=%+v", sr)
	}
}

func TestForward_WithoutSessionIsDiscarded(t *testing.T) {
	m, rec := newTestMatchmaker()
	_ = m.RequestSession("a")
	rec.take()

	if err := m.Forward("a", json.RawMessage(`{}`)); !errors.Is(err, ErrNotInSession) {
		t.Fatalf("waiting sender: err=%v, want ErrNotInSession", err)
	}
	if err := m.Forward("nobody", json.RawMessage(`{}`)); !errors.Is(err, ErrNotInSession) {
		t.Fatalf("unknown sender: err=%v, want ErrNotInSession", err)
	}
	if err := m.Forward("a", nil); !errors.Is(err, ErrEmptySignal) {
		t.Fatalf("empty: err=%v, want ErrEmptySignal", err)
	}
	if got := rec.take(); len(got) != 0 {
		t.Fatalf("deliveries=%+v, want none", got)
	}
	checkInvariants(t, m)
}

func TestBroadcastRoom(t *testing.T) {
	m, rec := newTestMatchmaker()
	_ = m.RequestSession("a")
	_ = m.RequestSession("b")
	room, _ := m.RoomOf("a")
	rec.take()

	if err := m.BroadcastRoom(room, core.NewTTSStream(room, "hi", []byte{1, 2})); err != nil {
		t.Fatalf("BroadcastRoom: %v", err)
	}
	if len(rec.to("a")) != 1 || len(rec.to("b")) != 1 {
		t.Fatalf("deliveries=%+v", rec.take())
	}
	if err := m.BroadcastRoom("call_missing", core.NewPong()); !errors.Is(err, ErrNoSuchRoom) {
		t.Fatalf("err=%v, want ErrNoSuchRoom", err)
	}
}
