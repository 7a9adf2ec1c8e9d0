// Package coqui provides a speech.Synthesizer backed by a local Coqui TTS
// server. Both server flavours are supported:
//
//   - APIModeStandard (default): the standard Coqui TTS server
//     (ghcr.io/coqui-ai/tts-cpu). Synthesis via GET /api/tts with URL query
//     parameters. The standard server has no native rate control, so the rate
//     multiplier is ignored in this mode.
//
//   - APIModeXTTS: the Coqui XTTS v2 API server. Synthesis via
//     POST /tts_to_audio/ with a JSON body; the rate multiplier maps to the
//     XTTS "speed" parameter.
//
// The server operates in batch mode — one HTTP call per utterance — so an
// utterance completes when the full WAV response has been written to the
// configured sink. Playing the audio (a sound device, a pipe into a player
// process, an HTTP response body) is the sink's concern.
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"metrovoice/pkg/speech"
)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second

	ttsEndpoint    = "/tts_to_audio/"
	apiTTSEndpoint = "/api/tts"
)

// APIMode selects which Coqui server API the synthesizer targets.
type APIMode string

const (
	// APIModeStandard targets the standard Coqui TTS server.
	APIModeStandard APIMode = "standard"

	// APIModeXTTS targets the Coqui XTTS v2 API server.
	APIModeXTTS APIMode = "xtts"
)

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithLanguage sets the synthesis language code. Default: "en".
func WithLanguage(lang string) Option {
	return func(s *Synthesizer) { s.language = lang }
}

// WithSpeaker sets the speaker/voice identifier passed to the server.
func WithSpeaker(speaker string) Option {
	return func(s *Synthesizer) { s.speaker = speaker }
}

// WithAPIMode selects the server API flavour. Default: APIModeStandard.
func WithAPIMode(mode APIMode) Option {
	return func(s *Synthesizer) { s.mode = mode }
}

// WithTimeout sets the per-utterance HTTP timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// Synthesizer implements speech.Synthesizer against a Coqui TTS server,
// writing the synthesised WAV bytes to sink.
type Synthesizer struct {
	baseURL    string
	sink       io.Writer
	language   string
	speaker    string
	mode       APIMode
	httpClient *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Compile-time interface assertion.
var _ speech.Synthesizer = (*Synthesizer)(nil)

// New creates a Synthesizer targeting the Coqui server at baseURL, writing
// audio to sink.
func New(baseURL string, sink io.Writer, opts ...Option) (*Synthesizer, error) {
	if baseURL == "" {
		return nil, errors.New("coqui: baseURL must not be empty")
	}
	if sink == nil {
		return nil, errors.New("coqui: sink must not be nil")
	}
	s := &Synthesizer{
		baseURL:    baseURL,
		sink:       sink,
		language:   defaultLanguage,
		mode:       APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// xttsRequest is the JSON body for POST /tts_to_audio/.
type xttsRequest struct {
	Text       string  `json:"text"`
	SpeakerWav string  `json:"speaker_wav,omitempty"`
	Language   string  `json:"language"`
	Speed      float64 `json:"speed,omitempty"`
}

// Speak dispatches one synthesis request in a background goroutine. done
// fires after the full WAV payload has been written to the sink, or with the
// request error. A CancelAll issued before completion aborts the request and
// suppresses done.
func (s *Synthesizer) Speak(text string, rate float64, done func(err error)) error {
	s.mu.Lock()
	s.cancelLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go func() {
		err := s.synthesize(ctx, text, rate)

		s.mu.Lock()
		stale := gen != s.gen || ctx.Err() != nil
		if !stale {
			s.cancel = nil
		}
		s.mu.Unlock()

		if stale {
			return
		}
		done(err)
	}()
	return nil
}

func (s *Synthesizer) synthesize(ctx context.Context, text string, rate float64) error {
	var (
		req *http.Request
		err error
	)
	switch s.mode {
	case APIModeXTTS:
		body, merr := json.Marshal(xttsRequest{
			Text:       text,
			SpeakerWav: s.speaker,
			Language:   s.language,
			Speed:      rate,
		})
		if merr != nil {
			return fmt.Errorf("coqui: marshal request: %w", merr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+ttsEndpoint, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	default:
		q := url.Values{}
		q.Set("text", text)
		if s.speaker != "" {
			q.Set("speaker_id", s.speaker)
		}
		q.Set("language_id", s.language)
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+apiTTSEndpoint+"?"+q.Encode(), nil)
	}
	if err != nil {
		return fmt.Errorf("coqui: build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coqui: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coqui: server returned %s", resp.Status)
	}
	if _, err := io.Copy(s.sink, resp.Body); err != nil {
		return fmt.Errorf("coqui: write audio to sink: %w", err)
	}
	return nil
}

// CancelAll aborts the in-flight synthesis request, if any, and suppresses
// its completion callback.
func (s *Synthesizer) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.gen++
}

func (s *Synthesizer) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Available always reports true once construction succeeded; transient server
// failures surface through the done callback instead.
func (s *Synthesizer) Available() bool {
	return true
}
