package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// waitDone blocks until the done callback fires or the timeout elapses.
func waitDone(t *testing.T, done <-chan error, timeout time.Duration) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		t.Fatal("done callback never fired")
		return nil
	}
}

func TestSpeak_WritesUtteranceAndCompletes(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	// 60000 words per minute makes the simulated duration negligible.
	s := New(&out, WithWordsPerMinute(60000))

	done := make(chan error, 1)
	if err := s.Speak("Walk to Platform 2.", 1.0, func(err error) { done <- err }); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if err := waitDone(t, done, 2*time.Second); err != nil {
		t.Fatalf("done callback error: %v", err)
	}

	if !strings.Contains(out.String(), "Walk to Platform 2.") {
		t.Errorf("output = %q, want utterance text", out.String())
	}
}

func TestSpeak_WriteErrorSurfacesSynchronously(t *testing.T) {
	t.Parallel()

	s := New(failingWriter{})
	err := s.Speak("anything", 1.0, func(error) { t.Error("done callback fired on write error") })
	if err == nil {
		t.Fatal("expected write error, got nil")
	}
	if !strings.Contains(err.Error(), "console:") {
		t.Errorf("error %q missing 'console:' prefix", err.Error())
	}
}

func TestCancelAll_SuppressesPendingCallback(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	// One word per minute keeps the timer pending long enough to cancel.
	s := New(&out, WithWordsPerMinute(1))

	fired := make(chan error, 1)
	if err := s.Speak("slow utterance", 1.0, func(err error) { fired <- err }); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	s.CancelAll()

	select {
	case err := <-fired:
		t.Fatalf("done callback fired after CancelAll with err=%v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSpeak_SupersedesPrevious(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := New(&out, WithWordsPerMinute(1))

	firstDone := make(chan error, 1)
	if err := s.Speak("first", 1.0, func(err error) { firstDone <- err }); err != nil {
		t.Fatalf("Speak(first): %v", err)
	}

	secondDone := make(chan error, 1)
	if err := s.Speak("second", 60000, func(err error) { secondDone <- err }); err != nil {
		t.Fatalf("Speak(second): %v", err)
	}

	if err := waitDone(t, secondDone, 2*time.Second); err != nil {
		t.Fatalf("second done error: %v", err)
	}
	select {
	case <-firstDone:
		t.Fatal("superseded utterance's done callback fired")
	default:
	}

	if got := strings.Count(out.String(), "🔊"); got != 2 {
		t.Errorf("wrote %d utterances, want 2", got)
	}
}

func TestSpeak_ZeroRateDefaultsToFullSpeed(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := New(&out, WithWordsPerMinute(60000))

	done := make(chan error, 1)
	if err := s.Speak("hello", 0, func(err error) { done <- err }); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if err := waitDone(t, done, 2*time.Second); err != nil {
		t.Fatalf("done callback error: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("sink closed") }
