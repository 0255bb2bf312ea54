package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	router "github.com/dkeye/VoiceMatch/internal/adapters/http"
	"github.com/dkeye/VoiceMatch/internal/adapters/signal"
	"github.com/dkeye/VoiceMatch/internal/app"
	"github.com/dkeye/VoiceMatch/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Mode:          "test",
		Port:          8080,
		StaticPath:    dir,
		RecordingPath: filepath.Join(dir, "output.wav"),
		ReadLimit:     32768,
		PingPeriod:    time.Second,
		WriteWait:     time.Second,
		SendBuffer:    16,
		Secret:        "test-secret",
		Policy:        "drop",
		TTS:           config.TTSConfig{Timeout: time.Second},
	}
}

func newServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := app.NewRegistry(app.PolicyByName(cfg.Policy))
	mm := app.NewMatchmaker(reg)
	ctrl := signal.NewSignalWSController(cfg, mm, reg, nil)
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, ctrl))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, c *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read (want %s): %v", wantType, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("bad json %s: %v", data, err)
	}
	if m["type"] != wantType {
		t.Fatalf("type=%v, want %s (%s)", m["type"], wantType, data)
	}
	return m
}

func whoami(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	send(t, c, `{"type":"whoami"}`)
	id, _ := recv(t, c, "whoami")["id"].(string)
	if id == "" {
		t.Fatalf("empty participant id")
	}
	return id
}

func getStats(t *testing.T, srv *httptest.Server) map[string]float64 {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()
	var st map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	return st
}

func TestSignalWS_CallLifecycle(t *testing.T) {
	srv := newServer(t, testConfig(t))
	a := dial(t, srv)
	b := dial(t, srv)
	aID := whoami(t, a)
	bID := whoami(t, b)
	if aID == bID {
		t.Fatalf("connections share id %s", aID)
	}

	send(t, a, `{"type":"join"}`)
	recv(t, a, "waiting_for_peer")

	send(t, b, `{"type":"join"}`)
	am := recv(t, a, "session_connected")
	bm := recv(t, b, "session_connected")
	if am["isInitiator"] != true || bm["isInitiator"] != false {
		t.Fatalf("roles A=%v B=%v", am["isInitiator"], bm["isInitiator"])
	}
	if am["room"] != bm["room"] {
		t.Fatalf("room mismatch %v vs %v", am["room"], bm["room"])
	}

	send(t, a, `{"type":"signal","signal":{"type":"offer","sdp":"X"}}`)
	got := recv(t, b, "signal_received")
	if got["from"] != aID {
		t.Fatalf("from=%v, want %s", got["from"], aID)
	}
	sig, _ := got["signal"].(map[string]any)
	if sig["sdp"] != "X" {
		t.Fatalf("signal=%v", got["signal"])
	}

	send(t, b, `{"type":"signal","signal":{"type":"answer","sdp":"Y"}}`)
	if got := recv(t, a, "signal_received"); got["from"] != bID {
		t.Fatalf("from=%v, want %s", got["from"], bID)
	}

	if st := getStats(t, srv); st["sessions"] != 1 || st["connections"] != 2 {
		t.Fatalf("stats=%v", st)
	}

	// Dropping the socket must look exactly like leave to the peer.
	_ = a.Close()
	if got := recv(t, b, "peer_left"); got["from"] != aID {
		t.Fatalf("peer_left from=%v, want %s", got["from"], aID)
	}

	send(t, b, `{"type":"whoami"}`)
	if got := recv(t, b, "whoami"); got["room"] != nil {
		t.Fatalf("B still reports room %v", got["room"])
	}
}

func TestSignalWS_LeaveThenRejoin(t *testing.T) {
	srv := newServer(t, testConfig(t))
	a := dial(t, srv)
	b := dial(t, srv)
	c := dial(t, srv)

	send(t, a, `{"type":"join"}`)
	recv(t, a, "waiting_for_peer")
	send(t, b, `{"type":"join"}`)
	recv(t, a, "session_connected")
	recv(t, b, "session_connected")

	send(t, a, `{"type":"leave"}`)
	recv(t, b, "peer_left")

	send(t, a, `{"type":"join"}`)
	recv(t, a, "waiting_for_peer")
	send(t, c, `{"type":"join"}`)
	recv(t, a, "session_connected")
	recv(t, c, "session_connected")

	send(t, a, `{"type":"join"}`)
	if got := recv(t, a, "error"); got["error"] != "already_joined" {
		t.Fatalf("error=%v, want already_joined", got["error"])
	}
}

func TestHealth(t *testing.T) {
	srv := newServer(t, testConfig(t))
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, body)
	}
}

func TestDownload(t *testing.T) {
	cfg := testConfig(t)
	srv := newServer(t, cfg)

	resp, err := http.Get(srv.URL + "/download")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || string(body) != "No recording found" {
		t.Fatalf("missing recording: status=%d body=%q", resp.StatusCode, body)
	}

	if err := os.WriteFile(cfg.RecordingPath, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	resp, err = http.Get(srv.URL + "/download")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ = io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "RIFFdata" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("content-type=%q, want audio/wav", ct)
	}
}

func TestClientTokenCookie(t *testing.T) {
	srv := newServer(t, testConfig(t))
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	found := false
	for _, ck := range resp.Cookies() {
		if ck.Name == "VoiceSessions" && ck.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("session cookie not set: %v", resp.Cookies())
	}
}
