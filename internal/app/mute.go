package app

import (
	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/rs/zerolog/log"
)

// ToggleMute flips id's self-mute flag in room and tells both participants the full
// resulting mute set.
func (m *Matchmaker) ToggleMute(room domain.RoomID, id domain.ParticipantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[room]
	if !ok {
		return ErrNoSuchRoom
	}
	if !sess.Has(id) {
		return ErrNotParticipant
	}

	muted := sess.ToggleMute(id)
	ev := core.NewMuteStatusChanged(sess.MutedParticipants())
	for _, p := range sess.Participants() {
		m.out.Deliver(p, ev)
	}
	log.Info().Str("module", "app.mute").Str("room", string(room)).Str("sid", string(id)).Bool("muted", muted).Msg("mute toggled")
	return nil
}
