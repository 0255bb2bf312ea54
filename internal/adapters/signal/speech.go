package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/rs/zerolog/log"
)

const maxTTSText = 500

// handleInjectTTS synthesizes text and plays it into the sender's own call.
func (ctl *SignalWSController) handleInjectTTS(ctx context.Context, sid domain.ParticipantID, conn core.SignalConnection, data []byte) {
	var p struct {
		Room string `json:"room"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad inject_tts payload")
		return
	}
	if p.Text == "" || p.Room == "" {
		return
	}
	if ctl.Speech == nil {
		ctl.sendJSON(conn, core.NewTTSError("speech synthesis disabled"))
		return
	}
	room := domain.RoomID(p.Room)
	if current, ok := ctl.Matchmaker.RoomOf(sid); !ok || current != room {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("inject_tts outside own room")
		return
	}
	text := p.Text
	if len(text) > maxTTSText {
		text = text[:maxTTSText]
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, ctl.Cfg.TTS.Timeout)
		defer cancel()

		audio, err := ctl.Speech.Synthesize(ctx, text)
		var ev core.Event = core.NewTTSStream(room, text, audio)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Str("room", p.Room).Msg("tts failed")
			ev = core.NewTTSError(err.Error())
		}
		if err := ctl.Matchmaker.BroadcastRoom(room, ev); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("room", p.Room).Msg("tts room gone")
		}
	}()
}
