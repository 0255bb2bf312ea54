package app

import (
	"encoding/json"

	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/rs/zerolog/log"
)

// Forward relays an opaque negotiation signal from sender to the other participant of
// sender's call. The payload is not inspected.
func (m *Matchmaker) Forward(sender domain.ParticipantID, signal json.RawMessage) error {
	if len(signal) == 0 {
		return ErrEmptySignal
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.roomOf[sender]
	if !ok {
		return ErrNotInSession
	}
	sess, ok := m.sessions[room]
	if !ok {
		return ErrNotInSession
	}
	other, _ := sess.Other(sender)
	m.out.Deliver(other, core.NewSignalReceived(signal, sender))
	log.Debug().
		Str("module", "app.relay").
		Str("room", string(room)).
		Str("from", string(sender)).
		Str("to", string(other)).
		Int("bytes", len(signal)).
		Msg("signal relayed")
	return nil
}

// BroadcastRoom sends ev to both participants of room. It carries out-of-band
// payloads such as synthesized speech and never touches call state.
func (m *Matchmaker) BroadcastRoom(room domain.RoomID, ev core.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[room]
	if !ok {
		return ErrNoSuchRoom
	}
	for _, p := range sess.Participants() {
		m.out.Deliver(p, ev)
	}
	return nil
}
