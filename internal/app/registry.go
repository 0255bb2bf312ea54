package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbox delivers one event to one participant. Implementations must not block:
// the matchmaker calls Deliver while holding its lock.
type Outbox interface {
	Deliver(to domain.ParticipantID, ev core.Event)
}

type connEntry struct {
	Conn      core.SignalConnection
	Client    string
	Cancel    context.CancelFunc
	Connected time.Time
}

// Registry maps live participant ids to their signaling connection.
type Registry struct {
	mu     sync.RWMutex
	conns  map[domain.ParticipantID]*connEntry
	policy Policy
}

func NewRegistry(policy Policy) *Registry {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Registry{
		conns:  make(map[domain.ParticipantID]*connEntry),
		policy: policy,
	}
}

// Bind registers conn under id. client is the browser token, kept for log correlation only.
func (r *Registry) Bind(id domain.ParticipantID, conn core.SignalConnection, client string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{Conn: conn, Client: client, Cancel: cancel, Connected: time.Now()}
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Str("client", client).Msg("bound connection")
}

func (r *Registry) Unbind(id domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("unbound connection")
}

func (r *Registry) Conn(id domain.ParticipantID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Kick cancels the connection context and closes the transport; the adapter's read
// loop then runs the normal disconnect path.
func (r *Registry) Kick(id domain.ParticipantID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	go e.Conn.Close()
	log.Warn().Str("module", "app.registry").Str("sid", string(id)).Msg("kicked connection")
	return true
}

func (r *Registry) Deliver(to domain.ParticipantID, ev core.Event) {
	conn, ok := r.Conn(to)
	if !ok {
		log.Debug().Str("module", "app.registry").Str("sid", string(to)).Str("event", ev.Kind()).Msg("deliver: no connection")
		return
	}
	frame, err := core.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.registry").Str("event", ev.Kind()).Msg("deliver: encode")
		return
	}
	err = conn.TrySend(frame)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrBackpressure):
		switch r.policy.OnBackPressure(to, ev) {
		case KickMember:
			r.Kick(to)
		case DropFrame, NoAction:
			log.Warn().Str("module", "app.registry").Str("sid", string(to)).Str("event", ev.Kind()).Msg("deliver: dropped on backpressure")
		}
	default:
		log.Debug().Err(err).Str("module", "app.registry").Str("sid", string(to)).Str("event", ev.Kind()).Msg("deliver failed")
	}
}
