package signal

import (
	"sync"
	"time"

	"github.com/dkeye/VoiceMatch/internal/domain"
)

// RoomRateLimiter is a sliding-window limiter for join attempts.
type RoomRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.ParticipantID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		history:  make(map[domain.ParticipantID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RoomRateLimiter) Allow(sid domain.ParticipantID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	// 1. Берем историю участника
	attempts := rl.history[sid]

	// 2. Убираем старые попытки
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	// 3. Если свежих попыток >= лимита → блок
	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}

	// 4. Иначе добавить текущую попытку
	rl.history[sid] = append(fresh, now)
	return true
}

// Forget drops the history of a disconnected participant.
func (rl *RoomRateLimiter) Forget(sid domain.ParticipantID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, sid)
}
