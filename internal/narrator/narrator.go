// Package narrator implements sequential narration of an ordered list of
// text segments: one utterance at a time, an audible gap between segments,
// and play/pause/resume/replay/jump control mid-journey.
//
// The narrator is an explicit state machine over its playback state, driven
// by utterance-completion events, and is decoupled from the synthesis
// backend's own callback mechanics: a test can step the machine with a mock
// synthesizer and no real audio. A monotonically increasing generation
// counter invalidates completion callbacks from utterances that were
// cancelled or superseded, which keeps the at-most-one-active-utterance
// invariant even though backends complete asynchronously.
//
// When the synthesis backend is unavailable the narrator degrades silently:
// speaking operations become no-ops, but the step index still moves so the
// rider can navigate a journey without audio. Availability is probed once at
// construction and cached.
package narrator

import (
	"log/slog"
	"sync"
	"time"

	"metrovoice/pkg/speech"
)

// Status is the playback state of the narrator.
type Status string

const (
	// StatusIdle means nothing is playing and nothing is pending.
	StatusIdle Status = "idle"

	// StatusPlaying means an utterance is in flight or a gap timer is
	// pending before the next segment.
	StatusPlaying Status = "playing"

	// StatusPaused means playback stopped mid-sequence; Resume continues
	// from the current segment, restarting its full text.
	StatusPaused Status = "paused"
)

// Rate bounds for the speech rate multiplier.
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// defaultSegmentGap is the audible separation between consecutive segments.
const defaultSegmentGap = 800 * time.Millisecond

// EventKind classifies narrator events.
type EventKind string

const (
	// EventStep fires when a segment starts speaking (or would have, with
	// audio unavailable it fires on index changes from JumpTo).
	EventStep EventKind = "step"

	// EventFinished fires when the final segment of a sequence completes.
	EventFinished EventKind = "finished"
)

// Event is a playback notification for observers such as the journey
// websocket session.
type Event struct {
	Kind    EventKind
	Index   int
	Segment string
}

// Option is a functional option for configuring a Narrator.
type Option func(*Narrator)

// WithSegmentGap sets the pause inserted between consecutive segments.
// Default: 800ms. A gap of zero advances synchronously on completion, which
// tests rely on for determinism.
func WithSegmentGap(d time.Duration) Option {
	return func(n *Narrator) {
		if d >= 0 {
			n.gap = d
		}
	}
}

// WithRate sets the initial speech rate, clamped to [MinRate, MaxRate].
func WithRate(rate float64) Option {
	return func(n *Narrator) { n.rate = clampRate(rate) }
}

// WithEvents attaches a channel that receives playback events. Sends are
// non-blocking; events are dropped when the channel is full rather than
// stalling narration.
func WithEvents(ch chan<- Event) Option {
	return func(n *Narrator) { n.events = ch }
}

// Narrator drives one-at-a-time playback of a segment sequence. All methods
// are safe for concurrent use.
type Narrator struct {
	syn       speech.Synthesizer
	available bool
	gap       time.Duration
	events    chan<- Event

	mu       sync.Mutex
	segments []string
	index    int
	status   Status
	rate     float64
	oneShot  bool
	gen      uint64
	gapTimer *time.Timer
}

// New constructs a Narrator over the given synthesis backend. Backend
// availability is detected here, once, and cached for the narrator's
// lifetime.
func New(syn speech.Synthesizer, opts ...Option) *Narrator {
	n := &Narrator{
		syn:    syn,
		gap:    defaultSegmentGap,
		status: StatusIdle,
		rate:   1.0,
	}
	if syn != nil {
		n.available = syn.Available()
	}
	if !n.available {
		slog.Warn("narrator: synthesis backend unavailable, degrading to silent step navigation")
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Play cancels any in-flight speech, loads segments as the active sequence
// and begins speaking at fromIndex. An empty sequence or an out-of-bounds
// fromIndex is a no-op.
func (n *Narrator) Play(segments []string, fromIndex int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(segments) == 0 || fromIndex < 0 || fromIndex >= len(segments) {
		return
	}

	n.cancelLocked()
	n.segments = make([]string, len(segments))
	copy(n.segments, segments)
	n.index = fromIndex
	n.oneShot = false
	n.status = StatusPlaying
	n.speakCurrentLocked()
}

// Resume continues a paused sequence. The current segment is re-spoken in
// full — word-level resume is not supported — and playback then proceeds to
// the end of the sequence. A no-op unless the narrator is paused.
func (n *Narrator) Resume() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusPaused || len(n.segments) == 0 {
		return
	}
	n.cancelLocked()
	n.oneShot = false
	n.status = StatusPlaying
	n.speakCurrentLocked()
}

// Pause cancels the current utterance and freezes the sequence at the
// current index. A no-op unless the narrator is playing.
func (n *Narrator) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusPlaying {
		return
	}
	n.cancelLocked()
	n.status = StatusPaused
}

// Replay cancels the current utterance and re-speaks only the current
// segment as a one-shot. It never advances the index and never resumes the
// remainder of the sequence.
func (n *Narrator) Replay() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.segments) == 0 {
		return
	}
	n.cancelLocked()
	n.oneShot = true
	n.status = StatusPlaying
	n.speakCurrentLocked()
}

// JumpTo moves to the segment at index and speaks it as a one-shot.
// Out-of-bounds indexes are no-ops. With audio unavailable the index still
// moves, so step navigation keeps working silently.
func (n *Narrator) JumpTo(index int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if index < 0 || index >= len(n.segments) {
		return
	}
	n.cancelLocked()
	n.index = index
	n.oneShot = true
	n.status = StatusPlaying
	n.speakCurrentLocked()
}

// Next jumps to the segment after the current one.
func (n *Narrator) Next() {
	n.mu.Lock()
	idx := n.index + 1
	n.mu.Unlock()
	n.JumpTo(idx)
}

// Previous jumps to the segment before the current one.
func (n *Narrator) Previous() {
	n.mu.Lock()
	idx := n.index - 1
	n.mu.Unlock()
	n.JumpTo(idx)
}

// Stop cancels any speech and returns the narrator to idle without
// forgetting the loaded sequence.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelLocked()
	n.status = StatusIdle
}

// SetRate updates the speech rate, clamped to [MinRate, MaxRate]. The new
// rate takes effect on the next spoken segment, not the one in flight.
func (n *Narrator) SetRate(rate float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rate = clampRate(rate)
}

// Rate returns the current speech rate.
func (n *Narrator) Rate() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rate
}

// Index returns the current segment index.
func (n *Narrator) Index() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index
}

// Status returns the current playback status.
func (n *Narrator) State() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// Available reports whether the synthesis backend can produce audio.
func (n *Narrator) Available() bool {
	return n.available
}

// ─── internals ───────────────────────────────────────────────────────────────

// cancelLocked invalidates any in-flight utterance and pending gap timer.
// Callers must hold n.mu.
func (n *Narrator) cancelLocked() {
	n.gen++
	if n.gapTimer != nil {
		n.gapTimer.Stop()
		n.gapTimer = nil
	}
	if n.available {
		n.syn.CancelAll()
	}
}

// speakCurrentLocked emits the step event and dispatches the current segment
// to the backend. Callers must hold n.mu.
func (n *Narrator) speakCurrentLocked() {
	seg := n.segments[n.index]
	n.emitLocked(Event{Kind: EventStep, Index: n.index, Segment: seg})

	if !n.available {
		// Silent degradation: no utterance, no completion, index stays put
		// until the rider navigates again.
		n.status = StatusIdle
		return
	}

	gen := n.gen
	if err := n.syn.Speak(seg, n.rate, func(err error) { n.onUtteranceDone(gen, err) }); err != nil {
		slog.Warn("narrator: failed to start utterance", "index", n.index, "err", err)
		n.status = StatusIdle
	}
}

// onUtteranceDone is the single completion event driving the machine.
func (n *Narrator) onUtteranceDone(gen uint64, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if gen != n.gen || n.status != StatusPlaying {
		// Stale callback from a cancelled or superseded utterance.
		return
	}
	if err != nil {
		slog.Warn("narrator: utterance failed", "index", n.index, "err", err)
		n.status = StatusIdle
		return
	}

	if n.oneShot || n.index == len(n.segments)-1 {
		// End of a one-shot or of the whole sequence. The index stays on the
		// last spoken segment for display purposes.
		n.status = StatusIdle
		if !n.oneShot {
			n.emitLocked(Event{Kind: EventFinished, Index: n.index})
		}
		return
	}

	if n.gap == 0 {
		n.index++
		n.speakCurrentLocked()
		return
	}

	n.gapTimer = time.AfterFunc(n.gap, func() { n.advance(gen) })
}

// advance moves to the next segment after the inter-segment gap elapses.
func (n *Narrator) advance(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if gen != n.gen || n.status != StatusPlaying {
		return
	}
	n.gapTimer = nil
	n.index++
	n.speakCurrentLocked()
}

// emitLocked performs a non-blocking event send.
func (n *Narrator) emitLocked(e Event) {
	if n.events == nil {
		return
	}
	select {
	case n.events <- e:
	default:
	}
}

func clampRate(rate float64) float64 {
	switch {
	case rate < MinRate:
		return MinRate
	case rate > MaxRate:
		return MaxRate
	default:
		return rate
	}
}
