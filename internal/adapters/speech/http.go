// Package speech turns text into audio through an HTTP speech backend.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceMatch/internal/config"
)

const defaultMaxAudio = 4 << 20

var ErrAudioTooLarge = errors.New("speech: audio exceeds size limit")

// HTTPSynthesizer fetches audio with GET <URL>?q=<text>&tl=<lang>.
type HTTPSynthesizer struct {
	URL      string
	Lang     string
	MaxBytes int64
	Client   *http.Client
}

func NewHTTPSynthesizer(cfg config.TTSConfig) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		URL:      cfg.URL,
		Lang:     cfg.Lang,
		MaxBytes: defaultMaxAudio,
		Client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, fmt.Errorf("speech: bad url: %w", err)
	}
	q := u.Query()
	q.Set("q", text)
	q.Set("tl", s.Lang)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("speech: build request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech: unexpected status %d", resp.StatusCode)
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = defaultMaxAudio
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("speech: read body: %w", err)
	}
	if int64(len(audio)) > limit {
		return nil, ErrAudioTooLarge
	}
	log.Debug().Str("module", "speech").Int("bytes", len(audio)).Str("lang", s.Lang).Msg("synthesized")
	return audio, nil
}
