package foundry

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bud-foundry/foundry-go/pkg/core/events"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
	"github.com/bud-foundry/foundry-go/pkg/core/ws"
)

// STTService creates streaming speech-to-text sessions.
type STTService struct {
	client *Client
}

// STTOptions configure an STT session. A nil Config uses the gateway
// defaults.
type STTOptions struct {
	Config  *types.STTConfig
	LiveKit *types.LiveKitConfig
}

// NewSession creates a disconnected STT session.
func (s *STTService) NewSession(opts STTOptions) *STTSession {
	cfg := opts.Config
	if cfg == nil {
		defaults := types.DefaultSTTConfig()
		cfg = &defaults
	}
	return &STTSession{
		session: ws.NewSession(s.client.sessionConfig(cfg, nil, opts.LiveKit)),
	}
}

// Connect creates a session and connects it. A named provider must be one
// the gateway ships with.
func (s *STTService) Connect(ctx context.Context, opts STTOptions) (*STTSession, error) {
	if err := validateSTTProvider(opts.Config); err != nil {
		return nil, err
	}
	session := s.NewSession(opts)
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// STTSession streams audio up and transcripts down.
type STTSession struct {
	session *ws.Session

	resultsOnce sync.Once
	results     chan types.STTResult
}

// Connect establishes the session.
func (s *STTSession) Connect(ctx context.Context) error {
	return s.session.Connect(ctx)
}

// Close disconnects the session.
func (s *STTSession) Close() error {
	return s.session.Disconnect()
}

// SendAudio streams a chunk of audio for transcription. Audio sent before
// Connect is buffered.
func (s *STTSession) SendAudio(audio []byte) error {
	return s.session.SendAudio(audio)
}

// On registers a raw session event handler.
func (s *STTSession) On(event string, handler events.Handler) {
	s.session.On(event, handler)
}

// StreamID returns the gateway stream ID once connected.
func (s *STTSession) StreamID() string {
	return s.session.StreamID()
}

// Metrics returns session performance metrics.
func (s *STTSession) Metrics() ws.SessionMetrics {
	return s.session.Metrics()
}

// Results yields transcription results. The channel closes when the session
// ends. Results consumes the session's event stream, so it cannot be
// combined with reading the raw events channel.
func (s *STTSession) Results() <-chan types.STTResult {
	s.resultsOnce.Do(func() {
		s.results = make(chan types.STTResult)
		go func() {
			defer close(s.results)
			for ev := range s.session.Events() {
				if transcript, ok := ev.(ws.TranscriptEvent); ok {
					s.results <- transcript.Result
				}
			}
		}()
	})
	return s.results
}

// TranscribeStream pumps audio from the source channel while yielding
// transcription results. The source must be closed by the caller to end the
// upload; the result channel closes when the session ends or ctx is done.
func (s *STTSession) TranscribeStream(ctx context.Context, audio <-chan []byte) (<-chan types.STTResult, error) {
	if err := s.session.Connect(ctx); err != nil {
		return nil, err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for {
			select {
			case chunk, ok := <-audio:
				if !ok {
					return nil
				}
				if err := s.session.SendAudio(chunk); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	out := make(chan types.STTResult)
	go func() {
		defer close(out)
		defer func() { _ = group.Wait() }()
		for {
			select {
			case result, ok := <-s.Results():
				if !ok {
					return
				}
				select {
				case out <- result:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
