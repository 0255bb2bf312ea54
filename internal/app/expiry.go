package app

import (
	"context"
	"time"

	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/rs/zerolog/log"
)

const minExpiryTick = time.Second

// ExpireWaiting drops waiters older than maxWait and tells them so.
func (m *Matchmaker) ExpireWaiting(maxWait time.Duration) []domain.ParticipantID {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var expired []domain.ParticipantID
	kept := m.waiting[:0]
	for _, w := range m.waiting {
		if now.Sub(w.since) >= maxWait {
			expired = append(expired, w.id)
			continue
		}
		kept = append(kept, w)
	}
	m.waiting = kept

	for _, id := range expired {
		m.out.Deliver(id, core.NewWaitExpired())
		log.Info().Str("module", "app.matchmaker").Str("sid", string(id)).Dur("max_wait", maxWait).Msg("wait expired")
	}
	return expired
}

// RunExpiry evicts stale waiters until ctx is done. A non-positive maxWait disables it.
func (m *Matchmaker) RunExpiry(ctx context.Context, maxWait time.Duration) {
	if maxWait <= 0 {
		return
	}
	ticker := time.NewTicker(max(maxWait/4, minExpiryTick))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ExpireWaiting(maxWait)
		}
	}
}
