// Package mock provides a test double for the speech.Synthesizer interface.
//
// Tests drive the narrator deterministically by inspecting Utterances and
// firing completions by hand:
//
//	syn := mock.New()
//	n.Play(segments, 0)
//	syn.CompleteCurrent(nil) // finishes the first utterance
package mock

import (
	"sync"

	"metrovoice/pkg/speech"
)

// Utterance records a single invocation of Speak.
type Utterance struct {
	// Text is the text passed to Speak.
	Text string

	// Rate is the rate multiplier passed to Speak.
	Rate float64
}

// Synthesizer is a mock implementation of speech.Synthesizer. Completions are
// never fired automatically; tests call CompleteCurrent to step the consumer.
type Synthesizer struct {
	mu sync.Mutex

	// Unavailable makes Available report false. Speak still records the
	// utterance so tests can assert that nothing was spoken.
	Unavailable bool

	// SpeakErr, if non-nil, is returned from Speak instead of starting an
	// utterance.
	SpeakErr error

	// Utterances records every Speak call in order. Read after the test.
	Utterances []Utterance

	// CancelCount is the number of CancelAll calls observed.
	CancelCount int

	pending func(error)
}

// New returns an available mock Synthesizer.
func New() *Synthesizer {
	return &Synthesizer{}
}

// Speak records the utterance and stores done as the pending completion.
// A previously pending completion is discarded, mirroring the last-writer-wins
// contract real backends follow after CancelAll.
func (s *Synthesizer) Speak(text string, rate float64, done func(err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SpeakErr != nil {
		return s.SpeakErr
	}
	s.Utterances = append(s.Utterances, Utterance{Text: text, Rate: rate})
	s.pending = done
	return nil
}

// CancelAll suppresses the pending completion.
func (s *Synthesizer) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CancelCount++
	s.pending = nil
}

// Available reports the configured availability.
func (s *Synthesizer) Available() bool {
	return !s.Unavailable
}

// CompleteCurrent fires the pending completion callback with err. It returns
// false when no utterance is pending (never started or already cancelled).
// The callback runs without the mock's lock held, so it may call back into
// Speak or CancelAll.
func (s *Synthesizer) CompleteCurrent(err error) bool {
	s.mu.Lock()
	done := s.pending
	s.pending = nil
	s.mu.Unlock()

	if done == nil {
		return false
	}
	done(err)
	return true
}

// Pending reports whether an utterance is awaiting completion.
func (s *Synthesizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Last returns the most recent utterance and true, or a zero value and false
// when nothing has been spoken.
func (s *Synthesizer) Last() (Utterance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Utterances) == 0 {
		return Utterance{}, false
	}
	return s.Utterances[len(s.Utterances)-1], true
}

// Ensure Synthesizer implements speech.Synthesizer at compile time.
var _ speech.Synthesizer = (*Synthesizer)(nil)
