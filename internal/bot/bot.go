// Package bot implements callbot, a headless call participant that joins through the
// signaling server, negotiates a real WebRTC audio call and sends silence.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceMatch/internal/core"
)

var ErrDisconnected = errors.New("signaling connection lost")

type Transport interface {
	Send(Request) error
	Incoming() <-chan *Message
}

// MediaFactory opens a fresh peer connection for one call.
type MediaFactory func(label string) (core.MediaConnection, error)

type Options struct {
	// Once stops the bot after its first call ends instead of re-joining.
	Once bool
	// Say is spoken into every call through inject_tts when set.
	Say string
}

// negotiation is the payload the bot puts inside signal. Browsers use the same shape.
type negotiation struct {
	Type      string                   `json:"type"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

type Bot struct {
	tr       Transport
	newMedia MediaFactory
	opts     Options

	id      string
	room    string
	calls   int
	media   core.MediaConnection
	source  *SilentSource
	pending []webrtc.ICECandidateInit
	hangup  context.CancelFunc
}

func New(tr Transport, newMedia MediaFactory, opts Options) *Bot {
	return &Bot{tr: tr, newMedia: newMedia, opts: opts}
}

// Calls returns how many calls have ended so far.
func (b *Bot) Calls() int { return b.calls }

func (b *Bot) Run(ctx context.Context) error {
	defer b.endCall()

	if err := b.tr.Send(Request{Type: "whoami"}); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-b.tr.Incoming():
			if !ok {
				return ErrDisconnected
			}
			done, err := b.handle(ctx, msg)
			if err != nil {
				log.Error().Err(err).Str("module", "bot").Str("event", msg.Type).Msg("handle event")
			}
			if done {
				return nil
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *Message) (done bool, err error) {
	switch msg.Type {
	case core.EventWhoAmI:
		if b.id != "" {
			return false, nil
		}
		b.id = msg.ID
		log.Info().Str("module", "bot").Str("id", b.id).Msg("joining")
		return false, b.tr.Send(Request{Type: "join"})

	case core.EventWaitingForPeer:
		log.Info().Str("module", "bot").Msg("waiting for peer")

	case core.EventSessionConnected:
		b.room = msg.Room
		log.Info().Str("module", "bot").Str("room", b.room).Bool("initiator", msg.IsInitiator).Msg("call connected")
		if err := b.startCall(ctx, msg.IsInitiator); err != nil {
			b.endCall()
			_ = b.tr.Send(Request{Type: "leave"})
			return b.opts.Once, err
		}

	case core.EventSignalReceived:
		return false, b.onSignal(msg.Signal)

	case core.EventMuteStatusChanged:
		if b.source == nil {
			return false, nil
		}
		if slices.Contains(msg.MutedParticipants, b.id) {
			b.source.MarkMuted()
		} else {
			b.source.MarkLive()
		}
		log.Info().Str("module", "bot").Strs("muted", msg.MutedParticipants).Msg("mute status changed")

	case core.EventPeerLeft:
		log.Info().Str("module", "bot").Str("from", msg.From).Msg("peer left")
		b.endCall()
		b.calls++
		if b.opts.Once {
			return true, nil
		}
		return false, b.tr.Send(Request{Type: "join"})

	case core.EventWaitExpired:
		if b.opts.Once {
			return true, nil
		}
		return false, b.tr.Send(Request{Type: "join"})

	case core.EventTTSStream:
		log.Info().Str("module", "bot").Str("text", msg.Text).Int("bytes", len(msg.Audio)).Msg("tts received")

	case core.EventTTSError:
		log.Warn().Str("module", "bot").Str("message", msg.Message).Msg("tts failed")

	case core.EventError:
		log.Warn().Str("module", "bot").Str("error", msg.Error).Msg("server error")

	case core.EventPong:

	default:
		log.Debug().Str("module", "bot").Str("type", msg.Type).Msg("unhandled event")
	}
	return false, nil
}

func (b *Bot) startCall(ctx context.Context, initiator bool) error {
	media, err := b.newMedia(b.id)
	if err != nil {
		return fmt.Errorf("new media: %w", err)
	}
	callCtx, cancel := context.WithCancel(ctx)
	b.media = media
	b.hangup = cancel

	if err := media.Start(callCtx); err != nil {
		return fmt.Errorf("start media: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "callbot-"+b.id,
	)
	if err != nil {
		return fmt.Errorf("new track: %w", err)
	}
	if _, err := media.AddLocalTrack(track); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	media.OnTrack(drainRemote)
	media.OnICECandidate(func(c webrtc.ICECandidateInit) {
		if err := b.sendSignal(negotiation{Type: "candidate", Candidate: &c}); err != nil {
			log.Warn().Err(err).Str("module", "bot").Msg("send candidate")
		}
	})

	b.source = NewSilentSource(track, rand.Uint32())
	go b.source.Run(callCtx)

	if initiator {
		offer, err := media.CreateAndSetOffer()
		if err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
		if err := b.sendSignal(negotiation{Type: "offer", SDP: offer.SDP}); err != nil {
			return err
		}
	}

	if b.opts.Say != "" {
		return b.tr.Send(Request{Type: "inject_tts", Room: b.room, Text: b.opts.Say})
	}
	return nil
}

func (b *Bot) onSignal(raw json.RawMessage) error {
	if b.media == nil {
		log.Warn().Str("module", "bot").Msg("signal outside a call")
		return nil
	}
	var n negotiation
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("bad signal: %w", err)
	}

	switch n.Type {
	case "offer":
		answer, err := b.media.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: n.SDP})
		if err != nil {
			return fmt.Errorf("apply offer: %w", err)
		}
		b.flushCandidates()
		return b.sendSignal(negotiation{Type: "answer", SDP: answer.SDP})

	case "answer":
		if err := b.media.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: n.SDP}); err != nil {
			return fmt.Errorf("apply answer: %w", err)
		}
		b.flushCandidates()

	case "candidate":
		if n.Candidate == nil {
			return nil
		}
		// Candidates may overtake the description they belong to.
		if !b.media.HasRemoteDescription() {
			b.pending = append(b.pending, *n.Candidate)
			return nil
		}
		return b.media.AddICECandidate(*n.Candidate)

	default:
		log.Debug().Str("module", "bot").Str("type", n.Type).Msg("unknown signal type")
	}
	return nil
}

func (b *Bot) flushCandidates() {
	for _, c := range b.pending {
		if err := b.media.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "bot").Msg("add pending candidate")
		}
	}
	b.pending = nil
}

func (b *Bot) sendSignal(n negotiation) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.tr.Send(Request{Type: "signal", Signal: raw})
}

func (b *Bot) endCall() {
	if b.source != nil {
		b.source.MarkStopped()
		b.source = nil
	}
	if b.hangup != nil {
		b.hangup()
		b.hangup = nil
	}
	if b.media != nil {
		b.media.Close()
		b.media = nil
	}
	b.pending = nil
	b.room = ""
}
