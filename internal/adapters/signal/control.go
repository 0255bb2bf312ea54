package signal

import (
	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
)

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	ctl.sendJSON(conn, core.NewPong())
}

func (ctl *SignalWSController) handleWhoAmI(sid domain.ParticipantID, conn core.SignalConnection) {
	room, _ := ctl.Matchmaker.RoomOf(sid)
	ctl.sendJSON(conn, core.NewWhoAmI(sid, room))
}
