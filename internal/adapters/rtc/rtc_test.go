package rtc

import (
	"context"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"
)

func newPair(t *testing.T) (*WebRTCConnection, *WebRTCConnection) {
	t.Helper()
	api, err := NewAPI(APIOptions{})
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}
	a, err := NewWebRTCConnection(api, webrtc.Configuration{}, "a")
	if err != nil {
		t.Fatalf("NewWebRTCConnection(a): %v", err)
	}
	b, err := NewWebRTCConnection(api, webrtc.Configuration{}, "b")
	if err != nil {
		t.Fatalf("NewWebRTCConnection(b): %v", err)
	}
	t.Cleanup(a.Close)
	t.Cleanup(b.Close)
	for _, c := range []*WebRTCConnection{a, b} {
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	return a, b
}

func TestNegotiation_OfferAnswer(t *testing.T) {
	a, b := newPair(t)

	track, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "a")
	if err != nil {
		t.Fatalf("NewTrackLocalStaticRTP: %v", err)
	}
	if _, err := a.AddLocalTrack(track); err != nil {
		t.Fatalf("AddLocalTrack: %v", err)
	}

	offer, err := a.CreateAndSetOffer()
	if err != nil {
		t.Fatalf("CreateAndSetOffer: %v", err)
	}
	if offer.Type != webrtc.SDPTypeOffer || !strings.Contains(offer.SDP, "m=audio") {
		t.Fatalf("offer=%v", offer.Type)
	}
	if b.HasRemoteDescription() {
		t.Fatalf("b must not have a remote description yet")
	}

	answer, err := b.ApplyOfferAndCreateAnswer(*offer)
	if err != nil {
		t.Fatalf("ApplyOfferAndCreateAnswer: %v", err)
	}
	if answer.Type != webrtc.SDPTypeAnswer {
		t.Fatalf("answer type=%v", answer.Type)
	}
	if err := a.ApplyAnswer(*answer); err != nil {
		t.Fatalf("ApplyAnswer: %v", err)
	}
	if !a.HasRemoteDescription() || !b.HasRemoteDescription() {
		t.Fatalf("both sides must have remote descriptions")
	}
}

func TestClose_FiresOnClosedOnce(t *testing.T) {
	a, _ := newPair(t)
	calls := 0
	a.OnClosed(func() { calls++ })

	a.Close()
	a.Close()
	if !a.IsClosed() {
		t.Fatalf("IsClosed=false after Close")
	}
	if calls != 1 {
		t.Fatalf("OnClosed calls=%d, want 1", calls)
	}
}

func TestZerologFactory(t *testing.T) {
	l := ZerologFactory{}.NewLogger("ice")
	l.Debugf("candidate %d", 1)
	l.Warn("plain")
}
