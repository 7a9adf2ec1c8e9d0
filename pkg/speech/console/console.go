// Package console provides a speech.Synthesizer that writes utterances to an
// io.Writer and simulates speaking time from word count and rate. It backs
// the CLI narration mode and any headless environment where real audio
// output is unavailable but playback pacing should still feel natural.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"metrovoice/pkg/speech"
)

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Synthesizer)(nil)

// defaultWPM is the assumed speaking pace at rate 1.0.
const defaultWPM = 160

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithWordsPerMinute overrides the simulated speaking pace at rate 1.0.
// Default: 160.
func WithWordsPerMinute(wpm int) Option {
	return func(s *Synthesizer) {
		if wpm > 0 {
			s.wpm = wpm
		}
	}
}

// Synthesizer writes each utterance as a line to out and fires the completion
// callback after a simulated speaking duration.
type Synthesizer struct {
	out io.Writer
	wpm int

	mu      sync.Mutex
	timer   *time.Timer
	pending func(error)
}

// New creates a console Synthesizer writing to out.
func New(out io.Writer, opts ...Option) *Synthesizer {
	s := &Synthesizer{out: out, wpm: defaultWPM}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Speak writes the utterance and schedules its completion. Duration scales
// inversely with rate: a rate of 2.0 halves the simulated speaking time.
func (s *Synthesizer) Speak(text string, rate float64, done func(err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	if _, err := fmt.Fprintf(s.out, "🔊 %s\n", text); err != nil {
		return fmt.Errorf("console: write utterance: %w", err)
	}

	if rate <= 0 {
		rate = 1.0
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	d := time.Duration(float64(words) / (float64(s.wpm) * rate) * float64(time.Minute))

	s.pending = done
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		cb := s.pending
		s.pending = nil
		s.timer = nil
		s.mu.Unlock()
		if cb != nil {
			cb(nil)
		}
	})
	return nil
}

// CancelAll stops the pending utterance timer and suppresses its callback.
func (s *Synthesizer) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Synthesizer) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}

// Available always reports true; writing text cannot fail in a way worth
// degrading over.
func (s *Synthesizer) Available() bool {
	return true
}
