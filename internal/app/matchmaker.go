package app

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/rs/zerolog/log"
)

type Teardown int

const (
	TeardownNone Teardown = iota
	TeardownWaiting
	TeardownSession
)

func (t Teardown) String() string {
	switch t {
	case TeardownWaiting:
		return "waiting"
	case TeardownSession:
		return "session"
	default:
		return "none"
	}
}

type waiter struct {
	id    domain.ParticipantID
	since time.Time
}

type Stats struct {
	Waiting  int `json:"waiting"`
	Sessions int `json:"sessions"`
}

// Matchmaker owns the waiting pool and the session table. Every read-decide-write
// sequence over them runs under mu, and events are handed to the outbox before mu is
// released so each participant sees events in state order.
type Matchmaker struct {
	mu       sync.Mutex
	waiting  []waiter
	sessions map[domain.RoomID]*domain.Session
	roomOf   map[domain.ParticipantID]domain.RoomID

	out       Outbox
	now       func() time.Time
	newRoomID func() domain.RoomID
}

func NewMatchmaker(out Outbox) *Matchmaker {
	return &Matchmaker{
		sessions:  make(map[domain.RoomID]*domain.Session),
		roomOf:    make(map[domain.ParticipantID]domain.RoomID),
		out:       out,
		now:       time.Now,
		newRoomID: domain.NewRoomID,
	}
}

// RequestSession puts id in the waiting pool, or pairs it with the oldest waiter.
// A participant that is already waiting or in a call is rejected.
func (m *Matchmaker) RequestSession(id domain.ParticipantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.roomOf[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyInSession, room)
	}
	if m.waitingIndex(id) >= 0 {
		return ErrAlreadyWaiting
	}

	if len(m.waiting) == 0 {
		m.waiting = append(m.waiting, waiter{id: id, since: m.now()})
		m.out.Deliver(id, core.NewWaitingForPeer())
		log.Info().Str("module", "app.matchmaker").Str("sid", string(id)).Msg("waiting for peer")
		return nil
	}

	w := m.waiting[0]
	room := m.allocRoomID()
	sess, err := domain.NewSession(room, w.id, id, m.now())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	m.waiting = slices.Delete(m.waiting, 0, 1)
	m.sessions[room] = sess
	m.roomOf[w.id] = room
	m.roomOf[id] = room

	m.out.Deliver(w.id, core.NewSessionConnected(room, true))
	m.out.Deliver(id, core.NewSessionConnected(room, false))
	log.Info().
		Str("module", "app.matchmaker").
		Str("room", string(room)).
		Str("initiator", string(w.id)).
		Str("responder", string(id)).
		Dur("waited", m.now().Sub(w.since)).
		Msg("session connected")
	return nil
}

// EndSession handles an explicit leave.
func (m *Matchmaker) EndSession(id domain.ParticipantID) Teardown {
	return m.teardown(id, "leave")
}

// OnDisconnect handles transport loss. It resolves exactly like EndSession.
func (m *Matchmaker) OnDisconnect(id domain.ParticipantID) Teardown {
	return m.teardown(id, "disconnect")
}

func (m *Matchmaker) teardown(id domain.ParticipantID, reason string) Teardown {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.roomOf[id]; ok {
		sess, ok := m.sessions[room]
		if !ok {
			log.Error().Str("module", "app.matchmaker").Str("sid", string(id)).Str("room", string(room)).Msg("index points at missing session")
			delete(m.roomOf, id)
			return TeardownNone
		}
		other, _ := sess.Other(id)
		delete(m.sessions, room)
		delete(m.roomOf, sess.Initiator)
		delete(m.roomOf, sess.Responder)

		m.out.Deliver(other, core.NewPeerLeft(id))
		log.Info().
			Str("module", "app.matchmaker").
			Str("sid", string(id)).
			Str("room", string(room)).
			Str("reason", reason).
			Dur("duration", m.now().Sub(sess.CreatedAt)).
			Msg("session ended")
		return TeardownSession
	}

	if i := m.waitingIndex(id); i >= 0 {
		m.waiting = slices.Delete(m.waiting, i, i+1)
		log.Info().Str("module", "app.matchmaker").Str("sid", string(id)).Str("reason", reason).Msg("left waiting pool")
		return TeardownWaiting
	}
	return TeardownNone
}

func (m *Matchmaker) RoomOf(id domain.ParticipantID) (domain.RoomID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.roomOf[id]
	return room, ok
}

func (m *Matchmaker) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Waiting: len(m.waiting), Sessions: len(m.sessions)}
}

func (m *Matchmaker) waitingIndex(id domain.ParticipantID) int {
	return slices.IndexFunc(m.waiting, func(w waiter) bool { return w.id == id })
}

func (m *Matchmaker) allocRoomID() domain.RoomID {
	for {
		id := m.newRoomID()
		if _, taken := m.sessions[id]; !taken {
			return id
		}
	}
}
