// Package reveal implements the presentation pacing for completed answers:
// a complete response string is replayed word by word at a fixed interval so
// the client can render it as if it were streamed. The pacing is fully
// decoupled from the network call, so a true streaming transport can replace
// this package without touching the request logic.
package reveal

import (
	"context"
	"strings"
	"time"
)

// DefaultInterval is the pause between consecutive words.
const DefaultInterval = 40 * time.Millisecond

// Chunk is one step of the reveal. Word is empty on the final chunk, which
// only signals completion.
type Chunk struct {
	Word string
	Done bool
}

// Streamer replays complete strings as paced word streams.
type Streamer struct {
	interval time.Duration
}

// NewStreamer creates a Streamer with the given inter-word interval.
// A non-positive interval falls back to DefaultInterval.
func NewStreamer(interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Streamer{interval: interval}
}

// Words splits text the same way the reveal does. Joining the result with
// single spaces reconstructs the revealed output exactly.
func Words(text string) []string {
	return strings.Fields(text)
}

// Stream emits the words of text in order on the returned channel, pausing
// for the configured interval between words, then a final Done chunk. The
// channel is closed when the stream ends.
//
// Cancellation is checked between every word: when ctx is canceled the
// channel closes promptly without a Done chunk, and no further words are
// emitted.
func (s *Streamer) Stream(ctx context.Context, text string) <-chan Chunk {
	ch := make(chan Chunk)

	go func() {
		defer close(ch)

		words := Words(text)
		timer := time.NewTimer(0)
		defer timer.Stop()

		for i, word := range words {
			if i > 0 {
				timer.Reset(s.interval)
				select {
				case <-timer.C:
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- Chunk{Word: word}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case ch <- Chunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return ch
}
