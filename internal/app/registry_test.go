package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.frames {
		var h core.Header
		if err := json.Unmarshal(f, &h); err != nil {
			t.Fatalf("bad frame %s: %v", f, err)
		}
		out = append(out, h.Type)
	}
	return out
}

func TestRegistry_DeliverEncodesToConnection(t *testing.T) {
	reg := NewRegistry(nil)
	conn := newFakeConn()
	reg.Bind("a", conn, "client-1", func() {})

	reg.Deliver("a", core.NewWaitingForPeer())
	reg.Deliver("missing", core.NewWaitingForPeer())

	if got := conn.types(t); len(got) != 1 || got[0] != core.EventWaitingForPeer {
		t.Fatalf("frames=%v", got)
	}
	if reg.Count() != 1 {
		t.Fatalf("count=%d, want 1", reg.Count())
	}
	reg.Unbind("a")
	if _, ok := reg.Conn("a"); ok {
		t.Fatalf("a still bound")
	}
}

func TestRegistry_KickPolicyClosesSlowConnection(t *testing.T) {
	reg := NewRegistry(KickPolicy{})
	conn := newFakeConn()
	conn.full = true
	ctx, cancel := context.WithCancel(context.Background())
	reg.Bind("slow", conn, "", cancel)

	reg.Deliver("slow", core.NewPong())

	select {
	case <-conn.closed:
	case <-time.After(time.Second):
		t.Fatalf("connection was not closed")
	}
	if ctx.Err() == nil {
		t.Fatalf("connection context not canceled")
	}
}

func TestRegistry_DropPolicyKeepsConnection(t *testing.T) {
	reg := NewRegistry(DropPolicy{})
	conn := newFakeConn()
	conn.full = true
	reg.Bind("slow", conn, "", func() {})

	reg.Deliver("slow", core.NewPong())

	select {
	case <-conn.closed:
		t.Fatalf("drop policy closed the connection")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPolicyByName(t *testing.T) {
	if _, ok := PolicyByName("kick").(KickPolicy); !ok {
		t.Fatalf("kick -> %T", PolicyByName("kick"))
	}
	if _, ok := PolicyByName("drop").(DropPolicy); !ok {
		t.Fatalf("drop -> %T", PolicyByName("drop"))
	}
	var id domain.ParticipantID = "x"
	if a := (DropPolicy{}).OnBackPressure(id, core.NewPong()); a != DropFrame {
		t.Fatalf("action=%v", a)
	}
}
