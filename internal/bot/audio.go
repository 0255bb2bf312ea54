package bot

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const (
	frameDuration   = 20 * time.Millisecond
	samplesPerFrame = 960 // 20ms at 48kHz
	opusPayloadType = 111
)

// Opus TOC + payload for one 20ms frame of silence.
var silenceFrame = []byte{0xf8, 0xff, 0xfe}

type SourceState int32

const (
	SourceLive SourceState = iota
	SourceMuted
	SourceStopped
)

type rtpWriter interface {
	WriteRTP(*rtp.Packet) error
}

// SilentSource feeds an outgoing audio track with Opus silence at real-time pace.
// While muted it keeps the RTP clock running but sends nothing.
type SilentSource struct {
	out   rtpWriter
	state atomic.Int32 // Zero by default (SourceLive)

	ssrc uint32
	seq  uint16
	ts   uint32
}

func NewSilentSource(out rtpWriter, ssrc uint32) *SilentSource {
	return &SilentSource{out: out, ssrc: ssrc}
}

func (s *SilentSource) State() SourceState {
	return SourceState(s.state.Load())
}

func (s *SilentSource) MarkLive() {
	s.state.CompareAndSwap(int32(SourceMuted), int32(SourceLive))
}

func (s *SilentSource) MarkMuted() {
	s.state.CompareAndSwap(int32(SourceLive), int32(SourceMuted))
}

func (s *SilentSource) MarkStopped() {
	s.state.Store(int32(SourceStopped))
}

// step emits one frame interval. It returns false once the source is stopped.
func (s *SilentSource) step() bool {
	switch s.State() {
	case SourceStopped:
		return false
	case SourceMuted:
		s.ts += samplesPerFrame
		return true
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: s.seq,
			Timestamp:      s.ts,
			SSRC:           s.ssrc,
		},
		Payload: silenceFrame,
	}
	s.seq++
	s.ts += samplesPerFrame

	if err := s.out.WriteRTP(pkt); err != nil {
		log.Error().Err(err).Str("module", "bot.audio").Msg("write RTP error, stopping source")
		s.MarkStopped()
		return false
	}
	return true
}

func (s *SilentSource) Run(ctx context.Context) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.MarkStopped()
			return
		case <-ticker.C:
			if !s.step() {
				return
			}
		}
	}
}

// drainRemote reads the peer's audio until the track ends.
func drainRemote(ctx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	logger := log.With().Str("module", "bot.audio").Str("track_id", track.ID()).Logger()
	packets := 0
	defer func() {
		logger.Info().Int("packets", packets).Msg("remote track ended")
	}()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
		packets++
	}
}
