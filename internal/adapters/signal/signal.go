package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/dkeye/VoiceMatch/internal/app"
	"github.com/dkeye/VoiceMatch/internal/config"
	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Cfg        *config.Config
	Matchmaker *app.Matchmaker
	Registry   *app.Registry
	// Limiter throttles join requests per participant; nil disables throttling.
	Limiter *RoomRateLimiter
	// Speech serves inject_tts; nil disables it.
	Speech core.Synthesizer
}

func NewSignalWSController(cfg *config.Config, mm *app.Matchmaker, reg *app.Registry, speech core.Synthesizer) *SignalWSController {
	ctl := &SignalWSController{
		Cfg:        cfg,
		Matchmaker: mm,
		Registry:   reg,
		Speech:     speech,
	}
	if cfg.JoinRate.Limit > 0 {
		ctl.Limiter = NewRoomRateLimiter(cfg.JoinRate.Limit, cfg.JoinRate.Interval)
	}
	return ctl
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it drops.
// Every connection gets a fresh participant id.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	client := c.GetString("client_token")
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.NewParticipantID()
	log.Info().Str("module", "signal").Str("sid", string(id)).Str("client", client).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}
	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(id, conn, client, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
