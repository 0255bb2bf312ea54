package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/VoiceMatch/internal/app"
	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(sid domain.ParticipantID, conn core.SignalConnection) {
	if ctl.Limiter != nil && !ctl.Limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join rate limited")
		ctl.sendJSON(conn, core.NewError("rate_limited"))
		return
	}
	err := ctl.Matchmaker.RequestSession(sid)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrAlreadyWaiting), errors.Is(err, app.ErrAlreadyInSession):
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("duplicate join")
		ctl.sendJSON(conn, core.NewError("already_joined"))
	default:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join failed")
	}
}

// handleLeave ends the current call or wait; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid domain.ParticipantID) {
	outcome := ctl.Matchmaker.EndSession(sid)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Stringer("teardown", outcome).Msg("leave")
}

func (ctl *SignalWSController) handleRelay(sid domain.ParticipantID, data []byte) {
	var p struct {
		Signal json.RawMessage `json:"signal"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad signal payload")
		return
	}
	if len(p.Signal) == 0 {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("signal without payload")
		return
	}
	if err := ctl.Matchmaker.Forward(sid, p.Signal); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("signal discarded")
	}
}

func (ctl *SignalWSController) handleToggleMute(sid domain.ParticipantID, data []byte) {
	var p struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad toggle_mute payload")
		return
	}
	if err := ctl.Matchmaker.ToggleMute(domain.RoomID(p.Room), sid); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("toggle_mute discarded")
	}
}
