package foundry

import (
	"context"

	"github.com/bud-foundry/foundry-go/pkg/core/events"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
	"github.com/bud-foundry/foundry-go/pkg/core/ws"
)

// TalkService creates full-duplex voice conversation sessions: caller audio
// up, transcripts and agent speech down, on one connection.
type TalkService struct {
	client *Client
}

// TalkOptions configure a conversation session. Nil configs use the gateway
// defaults for their pipeline.
type TalkOptions struct {
	STT     *types.STTConfig
	TTS     *types.TTSConfig
	LiveKit *types.LiveKitConfig
}

// NewSession creates a disconnected conversation session.
func (s *TalkService) NewSession(opts TalkOptions) *TalkSession {
	stt := opts.STT
	if stt == nil {
		defaults := types.DefaultSTTConfig()
		stt = &defaults
	}
	tts := opts.TTS
	if tts == nil {
		defaults := types.DefaultTTSConfig()
		tts = &defaults
	}
	return &TalkSession{
		session: ws.NewSession(s.client.sessionConfig(stt, tts, opts.LiveKit)),
	}
}

// Connect creates a session and connects it. Named providers must be ones
// the gateway ships with.
func (s *TalkService) Connect(ctx context.Context, opts TalkOptions) (*TalkSession, error) {
	if err := validateSTTProvider(opts.STT); err != nil {
		return nil, err
	}
	if err := validateTTSProvider(opts.TTS); err != nil {
		return nil, err
	}
	session := s.NewSession(opts)
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// TalkSession is a full-duplex voice conversation. It exposes the complete
// event stream: transcripts, audio, playback notifications, data messages,
// and errors, via Events() or per-event handlers.
type TalkSession struct {
	session *ws.Session
}

// Connect establishes the session.
func (s *TalkSession) Connect(ctx context.Context) error {
	return s.session.Connect(ctx)
}

// Close disconnects the session.
func (s *TalkSession) Close() error {
	return s.session.Disconnect()
}

// SendAudio streams caller audio. Audio sent before Connect is buffered.
func (s *TalkSession) SendAudio(audio []byte) error {
	return s.session.SendAudio(audio)
}

// Speak queues agent speech.
func (s *TalkSession) Speak(text string, opts ws.SpeakOptions) error {
	return s.session.Speak(text, opts)
}

// Clear stops agent speech and drops queued synthesis.
func (s *TalkSession) Clear() error {
	return s.session.Clear()
}

// SendMessage sends a data message to other participants.
func (s *TalkSession) SendMessage(message, role, topic string) error {
	return s.session.SendMessage(message, role, topic)
}

// SIPTransfer transfers an active SIP call to another number.
func (s *TalkSession) SIPTransfer(transferTo string) error {
	return s.session.SIPTransfer(transferTo)
}

// Ping probes the gateway; a pong event answers.
func (s *TalkSession) Ping() error {
	return s.session.Ping()
}

// On registers a session event handler.
func (s *TalkSession) On(event string, handler events.Handler) {
	s.session.On(event, handler)
}

// Off removes a session event handler.
func (s *TalkSession) Off(event string, handler events.Handler) {
	s.session.Off(event, handler)
}

// Events yields the full classified event stream. The channel closes when
// the session ends.
func (s *TalkSession) Events() <-chan ws.Event {
	return s.session.Events()
}

// Connected reports whether the session holds a live connection.
func (s *TalkSession) Connected() bool {
	return s.session.Connected()
}

// StreamID returns the gateway stream ID once connected.
func (s *TalkSession) StreamID() string {
	return s.session.StreamID()
}

// Metrics returns session performance metrics.
func (s *TalkSession) Metrics() ws.SessionMetrics {
	return s.session.Metrics()
}

// ResetMetrics clears collected metrics.
func (s *TalkSession) ResetMetrics() {
	s.session.ResetMetrics()
}
