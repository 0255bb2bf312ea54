package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const roomPrefix = "call_"

var (
	ErrSameParticipant  = errors.New("session needs two distinct participants")
	ErrEmptyParticipant = errors.New("empty participant id")
)

type RoomID string

func NewRoomID() RoomID {
	return RoomID(roomPrefix + uuid.NewString())
}

func (id RoomID) Valid() bool {
	return strings.HasPrefix(string(id), roomPrefix) && len(id) > len(roomPrefix)
}

// Session is a two-party call. Roles are fixed at creation: the participant that was
// waiting is the initiator. Not safe for concurrent use; the owner serializes access.
type Session struct {
	ID        RoomID
	Initiator ParticipantID
	Responder ParticipantID
	CreatedAt time.Time

	muted map[ParticipantID]struct{}
}

func NewSession(id RoomID, initiator, responder ParticipantID, now time.Time) (*Session, error) {
	if initiator == "" || responder == "" {
		return nil, ErrEmptyParticipant
	}
	if initiator == responder {
		return nil, ErrSameParticipant
	}
	return &Session{
		ID:        id,
		Initiator: initiator,
		Responder: responder,
		CreatedAt: now,
		muted:     make(map[ParticipantID]struct{}),
	}, nil
}

func (s *Session) Participants() [2]ParticipantID {
	return [2]ParticipantID{s.Initiator, s.Responder}
}

func (s *Session) Has(p ParticipantID) bool {
	return p == s.Initiator || p == s.Responder
}

// Other returns the slot that is not p. ok is false when p is not in the session.
func (s *Session) Other(p ParticipantID) (other ParticipantID, ok bool) {
	switch p {
	case s.Initiator:
		return s.Responder, true
	case s.Responder:
		return s.Initiator, true
	}
	return "", false
}

// ToggleMute flips p in the mute set and reports whether p is muted afterwards.
func (s *Session) ToggleMute(p ParticipantID) bool {
	if _, ok := s.muted[p]; ok {
		delete(s.muted, p)
		return false
	}
	s.muted[p] = struct{}{}
	return true
}

func (s *Session) IsMuted(p ParticipantID) bool {
	_, ok := s.muted[p]
	return ok
}

// MutedParticipants returns the mute set sorted, so both ends see the same list.
func (s *Session) MutedParticipants() []ParticipantID {
	out := make([]ParticipantID, 0, len(s.muted))
	for p := range s.muted {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
