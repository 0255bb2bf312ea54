package core

import "context"

// Synthesizer turns text into encoded audio bytes (e.g. MP3).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
