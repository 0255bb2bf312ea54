package core

import (
	"encoding/json"

	"github.com/dkeye/VoiceMatch/internal/domain"
)

// Outbound event types.
const (
	EventWaitingForPeer    = "waiting_for_peer"
	EventSessionConnected  = "session_connected"
	EventSignalReceived    = "signal_received"
	EventPeerLeft          = "peer_left"
	EventMuteStatusChanged = "mute_status_changed"
	EventWaitExpired       = "wait_expired"
	EventWhoAmI            = "whoami"
	EventPong              = "pong"
	EventError             = "error"
	EventTTSStream         = "tts_stream"
	EventTTSError          = "tts_error"
)

// Event is anything that can be sent to a participant as a JSON text frame.
type Event interface {
	Kind() string
}

// Header carries the "type" discriminator shared by every event.
type Header struct {
	Type string `json:"type"`
}

func (h Header) Kind() string { return h.Type }

type WaitingForPeer struct {
	Header
}

type SessionConnected struct {
	Header
	Room        domain.RoomID `json:"room"`
	IsInitiator bool          `json:"isInitiator"`
}

type SignalReceived struct {
	Header
	Signal json.RawMessage      `json:"signal"`
	From   domain.ParticipantID `json:"from"`
}

type PeerLeft struct {
	Header
	From domain.ParticipantID `json:"from"`
}

type MuteStatusChanged struct {
	Header
	MutedParticipants []domain.ParticipantID `json:"mutedParticipants"`
}

type WaitExpired struct {
	Header
}

type WhoAmI struct {
	Header
	ID   domain.ParticipantID `json:"id"`
	Room domain.RoomID        `json:"room,omitempty"`
}

type Pong struct {
	Header
}

type Error struct {
	Header
	Error string `json:"error"`
}

type TTSStream struct {
	Header
	Room  domain.RoomID `json:"room"`
	Text  string        `json:"text"`
	Audio []byte        `json:"audio"`
}

type TTSError struct {
	Header
	Message string `json:"message"`
}

func NewWaitingForPeer() WaitingForPeer {
	return WaitingForPeer{Header{EventWaitingForPeer}}
}

func NewSessionConnected(room domain.RoomID, initiator bool) SessionConnected {
	return SessionConnected{Header: Header{EventSessionConnected}, Room: room, IsInitiator: initiator}
}

func NewSignalReceived(signal json.RawMessage, from domain.ParticipantID) SignalReceived {
	return SignalReceived{Header: Header{EventSignalReceived}, Signal: signal, From: from}
}

func NewPeerLeft(from domain.ParticipantID) PeerLeft {
	return PeerLeft{Header: Header{EventPeerLeft}, From: from}
}

func NewMuteStatusChanged(muted []domain.ParticipantID) MuteStatusChanged {
	return MuteStatusChanged{Header: Header{EventMuteStatusChanged}, MutedParticipants: muted}
}

func NewWaitExpired() WaitExpired {
	return WaitExpired{Header{EventWaitExpired}}
}

func NewWhoAmI(id domain.ParticipantID, room domain.RoomID) WhoAmI {
	return WhoAmI{Header: Header{EventWhoAmI}, ID: id, Room: room}
}

func NewPong() Pong {
	return Pong{Header{EventPong}}
}

func NewError(reason string) Error {
	return Error{Header: Header{EventError}, Error: reason}
}

func NewTTSStream(room domain.RoomID, text string, audio []byte) TTSStream {
	return TTSStream{Header: Header{EventTTSStream}, Room: room, Text: text, Audio: audio}
}

func NewTTSError(msg string) TTSError {
	return TTSError{Header: Header{EventTTSError}, Message: msg}
}

// Encode renders ev as a text frame.
func Encode(ev Event) (Frame, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
