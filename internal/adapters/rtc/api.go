package rtc

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

type APIOptions struct {
	// UDPPortMin and UDPPortMax restrict ICE sockets to a port range when both are set.
	UDPPortMin uint16
	UDPPortMax uint16
	// IncludeLoopback gathers 127.0.0.1 candidates, needed for same-host calls.
	IncludeLoopback bool
}

// NewAPI builds a pion API with the default codecs and zerolog-backed pion logging.
func NewAPI(opts APIOptions) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	se := webrtc.SettingEngine{LoggerFactory: ZerologFactory{}}
	if opts.UDPPortMin != 0 && opts.UDPPortMax != 0 {
		if err := se.SetEphemeralUDPPortRange(opts.UDPPortMin, opts.UDPPortMax); err != nil {
			return nil, fmt.Errorf("set ephemeral udp port range: %w", err)
		}
	}
	if opts.IncludeLoopback {
		se.SetIncludeLoopbackCandidate(true)
	}

	return webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(se)), nil
}
