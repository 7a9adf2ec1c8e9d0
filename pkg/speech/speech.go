// Package speech defines the Synthesizer interface for narration backends.
//
// A Synthesizer speaks arbitrary short strings at a rate multiplier and
// reports completion through a callback. At most one utterance is in flight
// system-wide; starting a new one requires cancelling the current one first,
// which the narrator does on every transition. CancelAll suppresses the
// pending completion callback — a cancelled utterance completes silently,
// never through done.
//
// Implementations must be safe for concurrent use.
package speech

// Synthesizer is the abstraction over any speech synthesis backend.
type Synthesizer interface {
	// Speak begins synthesising text at the given rate multiplier and returns
	// once synthesis has been started. done is invoked exactly once when the
	// utterance finishes or fails — unless the utterance is cancelled first,
	// in which case done is never invoked. done must never be invoked
	// synchronously from within Speak; callers may hold locks across the
	// Speak call that done re-acquires.
	//
	// Returns a non-nil error only when the utterance cannot be started.
	Speak(text string, rate float64, done func(err error)) error

	// CancelAll stops any in-flight utterance immediately and suppresses its
	// pending done callback. Calling CancelAll with nothing in flight is a
	// no-op.
	CancelAll()

	// Available reports whether the backend can produce audio. Callers probe
	// it once and cache the result; a backend's availability must not change
	// over its lifetime.
	Available() bool
}
