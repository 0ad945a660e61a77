package foundry

import (
	"context"
	"net/http"
	"sync"

	"github.com/bud-foundry/foundry-go/pkg/core/events"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
	"github.com/bud-foundry/foundry-go/pkg/core/ws"
)

// TTSService creates streaming text-to-speech sessions and performs one-shot
// synthesis over REST.
type TTSService struct {
	client *Client
}

// TTSOptions configure a TTS session. A nil Config uses the gateway
// defaults.
type TTSOptions struct {
	Config  *types.TTSConfig
	LiveKit *types.LiveKitConfig
}

// NewSession creates a disconnected TTS session.
func (s *TTSService) NewSession(opts TTSOptions) *TTSSession {
	cfg := opts.Config
	if cfg == nil {
		defaults := types.DefaultTTSConfig()
		cfg = &defaults
	}
	return &TTSSession{
		session: ws.NewSession(s.client.sessionConfig(nil, cfg, opts.LiveKit)),
	}
}

// Connect creates a session and connects it. A named provider must be one
// the gateway ships with.
func (s *TTSService) Connect(ctx context.Context, opts TTSOptions) (*TTSSession, error) {
	if err := validateTTSProvider(opts.Config); err != nil {
		return nil, err
	}
	session := s.NewSession(opts)
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// SynthesizeRequest is a one-shot synthesis request.
type SynthesizeRequest struct {
	Text       string `json:"text"`
	Provider   string `json:"provider,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Voice      string `json:"voice,omitempty"`
	VoiceID    string `json:"voice_id,omitempty"`
	Model      string `json:"model,omitempty"`
}

// Synthesize renders text to audio in a single request and returns the raw
// audio bytes.
func (s *TTSService) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	return s.client.doBytes(ctx, http.MethodPost, "/speak", nil, req)
}

// TTSSession streams text up and synthesized audio down.
type TTSSession struct {
	session *ws.Session

	audioOnce sync.Once
	audio     chan types.AudioEvent
}

// Connect establishes the session.
func (s *TTSSession) Connect(ctx context.Context) error {
	return s.session.Connect(ctx)
}

// Close disconnects the session.
func (s *TTSSession) Close() error {
	return s.session.Disconnect()
}

// Speak queues text for synthesis.
func (s *TTSSession) Speak(text string, opts ws.SpeakOptions) error {
	return s.session.Speak(text, opts)
}

// Clear stops playback and drops queued synthesis.
func (s *TTSSession) Clear() error {
	return s.session.Clear()
}

// On registers a raw session event handler.
func (s *TTSSession) On(event string, handler events.Handler) {
	s.session.On(event, handler)
}

// StreamID returns the gateway stream ID once connected.
func (s *TTSSession) StreamID() string {
	return s.session.StreamID()
}

// Metrics returns session performance metrics.
func (s *TTSSession) Metrics() ws.SessionMetrics {
	return s.session.Metrics()
}

// Audio yields synthesized audio chunks. The channel closes when the session
// ends. Audio consumes the session's event stream, so it cannot be combined
// with reading the raw events channel.
func (s *TTSSession) Audio() <-chan types.AudioEvent {
	s.audioOnce.Do(func() {
		s.audio = make(chan types.AudioEvent)
		go func() {
			defer close(s.audio)
			for ev := range s.session.Events() {
				if chunk, ok := ev.(ws.AudioChunkEvent); ok {
					s.audio <- chunk.Audio
				}
			}
		}()
	})
	return s.audio
}
