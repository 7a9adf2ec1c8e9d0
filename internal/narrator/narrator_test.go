package narrator_test

import (
	"errors"
	"testing"

	"metrovoice/internal/narrator"
	"metrovoice/pkg/speech/mock"
)

// newNarrator returns a narrator with a zero segment gap so completions
// advance synchronously and tests stay deterministic.
func newNarrator(syn *mock.Synthesizer, opts ...narrator.Option) *narrator.Narrator {
	return narrator.New(syn, append([]narrator.Option{narrator.WithSegmentGap(0)}, opts...)...)
}

func segments() []string { return []string{"first", "second", "third"} }

func TestNarrator_PlaysSequenceInOrder(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 0)
	if got := n.State(); got != narrator.StatusPlaying {
		t.Fatalf("State() = %q, want playing", got)
	}

	// Each completion starts the next segment.
	syn.CompleteCurrent(nil)
	syn.CompleteCurrent(nil)
	syn.CompleteCurrent(nil)

	want := segments()
	if len(syn.Utterances) != len(want) {
		t.Fatalf("utterances = %v, want %v", syn.Utterances, want)
	}
	for i, u := range syn.Utterances {
		if u.Text != want[i] {
			t.Fatalf("utterance[%d] = %q, want %q", i, u.Text, want[i])
		}
	}

	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() after last segment = %q, want idle", got)
	}
	// The index stays on the last spoken segment for display.
	if got := n.Index(); got != 2 {
		t.Errorf("Index() after finish = %d, want 2", got)
	}
}

func TestNarrator_PlayFromOffset(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 1)
	u, ok := syn.Last()
	if !ok || u.Text != "second" {
		t.Fatalf("first utterance = %+v, want the second segment", u)
	}
}

func TestNarrator_PlayInvalidInput(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(nil, 0)
	n.Play(segments(), -1)
	n.Play(segments(), 3)

	if len(syn.Utterances) != 0 {
		t.Errorf("utterances = %v, want none", syn.Utterances)
	}
	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() = %q, want idle", got)
	}
}

func TestNarrator_PauseResume(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 0)
	syn.CompleteCurrent(nil) // now speaking "second"

	n.Pause()
	if got := n.State(); got != narrator.StatusPaused {
		t.Fatalf("State() = %q, want paused", got)
	}
	if syn.Pending() {
		t.Error("utterance still pending after Pause, want cancelled")
	}

	// Resume re-speaks the current segment in full, then continues.
	n.Resume()
	u, _ := syn.Last()
	if u.Text != "second" {
		t.Fatalf("resumed utterance = %q, want %q", u.Text, "second")
	}
	syn.CompleteCurrent(nil)
	u, _ = syn.Last()
	if u.Text != "third" {
		t.Errorf("utterance after resume completion = %q, want %q", u.Text, "third")
	}
}

func TestNarrator_PauseWhenIdleIsNoop(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Pause()
	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() = %q, want idle", got)
	}
	n.Resume()
	if len(syn.Utterances) != 0 {
		t.Errorf("Resume when idle spoke %v, want nothing", syn.Utterances)
	}
}

func TestNarrator_ReplayDoesNotAdvance(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 0)
	syn.CompleteCurrent(nil) // speaking "second"

	n.Replay()
	u, _ := syn.Last()
	if u.Text != "second" {
		t.Fatalf("replayed utterance = %q, want %q", u.Text, "second")
	}

	// Completing a replay ends the one-shot; the sequence does not continue.
	syn.CompleteCurrent(nil)
	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() after replay completes = %q, want idle", got)
	}
	if got := n.Index(); got != 1 {
		t.Errorf("Index() after replay = %d, want 1", got)
	}
	u, _ = syn.Last()
	if u.Text != "second" {
		t.Errorf("last utterance = %q, want no advance past %q", u.Text, "second")
	}
}

func TestNarrator_JumpTo(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 0)
	n.JumpTo(2)

	if got := n.Index(); got != 2 {
		t.Fatalf("Index() = %d, want 2", got)
	}
	u, _ := syn.Last()
	if u.Text != "third" {
		t.Fatalf("jumped utterance = %q, want %q", u.Text, "third")
	}

	// A jump is a one-shot: completing it goes idle, no auto-continue.
	syn.CompleteCurrent(nil)
	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() after jump completes = %q, want idle", got)
	}

	// Out-of-bounds jumps are no-ops.
	before := len(syn.Utterances)
	n.JumpTo(-1)
	n.JumpTo(3)
	if len(syn.Utterances) != before {
		t.Errorf("out-of-bounds JumpTo spoke something, want no-op")
	}
}

func TestNarrator_NextPrevious(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 1)
	n.Next()
	if got := n.Index(); got != 2 {
		t.Fatalf("Index() after Next = %d, want 2", got)
	}
	n.Previous()
	if got := n.Index(); got != 1 {
		t.Fatalf("Index() after Previous = %d, want 1", got)
	}

	// Previous at the start of the sequence is a no-op.
	n.JumpTo(0)
	n.Previous()
	if got := n.Index(); got != 0 {
		t.Errorf("Index() after Previous at 0 = %d, want 0", got)
	}
}

func TestNarrator_RateClamping(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn, narrator.WithRate(0.85))

	if got := n.Rate(); got != 0.85 {
		t.Fatalf("Rate() = %v, want 0.85", got)
	}

	n.SetRate(0.1)
	if got := n.Rate(); got != narrator.MinRate {
		t.Errorf("Rate() after SetRate(0.1) = %v, want %v", got, narrator.MinRate)
	}
	n.SetRate(9)
	if got := n.Rate(); got != narrator.MaxRate {
		t.Errorf("Rate() after SetRate(9) = %v, want %v", got, narrator.MaxRate)
	}

	// The clamped rate reaches the backend on the next utterance.
	n.Play(segments(), 0)
	u, _ := syn.Last()
	if u.Rate != narrator.MaxRate {
		t.Errorf("utterance rate = %v, want %v", u.Rate, narrator.MaxRate)
	}
}

func TestNarrator_StopCancelsSpeech(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 0)
	n.Stop()

	if got := n.State(); got != narrator.StatusIdle {
		t.Fatalf("State() = %q, want idle", got)
	}
	if syn.CancelCount == 0 {
		t.Error("Stop did not cancel the backend")
	}
	// A stale completion from the cancelled utterance must not restart
	// playback.
	syn.CompleteCurrent(nil)
	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() after stale completion = %q, want idle", got)
	}
}

func TestNarrator_UtteranceErrorStopsSequence(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 0)
	syn.CompleteCurrent(errors.New("device gone"))

	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() after failed utterance = %q, want idle", got)
	}
	if got := len(syn.Utterances); got != 1 {
		t.Errorf("utterances = %d, want 1 (no advance past the failure)", got)
	}
}

func TestNarrator_UnavailableBackendDegradesSilently(t *testing.T) {
	t.Parallel()

	syn := &mock.Synthesizer{Unavailable: true}
	n := newNarrator(syn)

	if n.Available() {
		t.Fatal("Available() = true, want false")
	}

	n.Play(segments(), 0)
	if len(syn.Utterances) != 0 {
		t.Errorf("utterances = %v, want none with audio unavailable", syn.Utterances)
	}

	// Step navigation keeps working without audio.
	n.JumpTo(2)
	if got := n.Index(); got != 2 {
		t.Errorf("Index() = %d, want 2", got)
	}
	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() = %q, want idle (nothing in flight)", got)
	}
}

func TestNarrator_EventsFireInOrder(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	events := make(chan narrator.Event, 8)
	n := newNarrator(syn, narrator.WithEvents(events))

	n.Play([]string{"a", "b"}, 0)
	syn.CompleteCurrent(nil)
	syn.CompleteCurrent(nil)

	want := []narrator.Event{
		{Kind: narrator.EventStep, Index: 0, Segment: "a"},
		{Kind: narrator.EventStep, Index: 1, Segment: "b"},
		{Kind: narrator.EventFinished, Index: 1},
	}
	for i, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Fatalf("event[%d] = %+v, want %+v", i, got, w)
			}
		default:
			t.Fatalf("missing event[%d], want %+v", i, w)
		}
	}
}

func TestNarrator_PlayReplacesSequence(t *testing.T) {
	t.Parallel()

	syn := mock.New()
	n := newNarrator(syn)

	n.Play(segments(), 0)
	n.Play([]string{"new route"}, 0)

	u, _ := syn.Last()
	if u.Text != "new route" {
		t.Fatalf("utterance = %q, want the replacement sequence", u.Text)
	}

	// The superseded utterance's completion must be inert; only the new
	// sequence's completion finishes playback.
	syn.CompleteCurrent(nil)
	if got := n.State(); got != narrator.StatusIdle {
		t.Errorf("State() = %q, want idle after the single new segment", got)
	}
	if got := len(syn.Utterances); got != 2 {
		t.Errorf("utterances = %d, want 2", got)
	}
}
