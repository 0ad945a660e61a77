package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bud-foundry/foundry-go/pkg/core"
	"github.com/bud-foundry/foundry-go/pkg/core/events"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

const defaultConnectTimeout = 10 * time.Second

// ReconnectConfig controls automatic reconnection after an unexpected close.
type ReconnectConfig struct {
	Enabled      bool
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxRetries   int
	Jitter       float64
}

// DefaultReconnectConfig returns the gateway-recommended backoff settings.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		Enabled:      true,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   1.5,
		MaxRetries:   10,
		Jitter:       0.2,
	}
}

// Config configures a Session.
type Config struct {
	URL     string
	APIKey  string
	STT     *types.STTConfig
	TTS     *types.TTSConfig
	LiveKit *types.LiveKitConfig

	// Reconnect defaults to DefaultReconnectConfig when nil.
	Reconnect *ReconnectConfig

	// ConnectTimeout bounds the dial and the ready wait; defaults to 10s.
	ConnectTimeout time.Duration

	Logger *slog.Logger
}

// Session is a streaming websocket session against the gateway. It owns a
// single connection and a single receive goroutine; all writes (audio and
// control frames) are serialized through a write mutex.
//
// Incoming frames are delivered both to registered handlers (On) and to the
// Events() channel, which closes once the session is terminally disconnected
// and all queued events have been consumed.
type Session struct {
	cfg     Config
	logger  *slog.Logger
	emitter *events.Emitter
	metrics *MetricsCollector
	queue   *eventQueue

	connectMu sync.Mutex
	writeMu   sync.Mutex

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	flushed      bool
	closed       bool
	streamID     string
	readyCh      chan struct{}
	readyFired   bool
	pendingAudio [][]byte
	recvDone     chan struct{}

	// Latency stamps. configSentAt arms TTFT on the first config send of the
	// session only; speakStartAt arms TTFB on each Speak.
	configSentAt      time.Time
	speakStartAt      time.Time
	initialConfigSent bool
}

// NewSession creates a session. Connect must be called before sending
// control frames; audio sent earlier is buffered.
func NewSession(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Reconnect == nil {
		rc := DefaultReconnectConfig()
		cfg.Reconnect = &rc
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &Session{
		cfg:     cfg,
		logger:  cfg.Logger,
		emitter: events.New(cfg.Logger),
		metrics: NewMetricsCollector(),
		queue:   newEventQueue(),
	}
}

// Connected reports whether the session currently holds a live connection.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// StreamID returns the gateway-assigned stream ID, once ready.
func (s *Session) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// On registers a handler for an event (ready, transcript, audio,
// playback_complete, message, participant_disconnected, error, pong,
// reconnect, close).
func (s *Session) On(event string, handler events.Handler) {
	s.emitter.On(event, handler)
}

// Off removes a handler; a nil handler removes all handlers for the event.
func (s *Session) Off(event string, handler events.Handler) {
	s.emitter.Off(event, handler)
}

// Events yields classified inbound frames. The channel closes after the
// session is terminally disconnected and the queue has drained.
func (s *Session) Events() <-chan Event {
	return s.queue.events()
}

// Metrics returns a snapshot of session performance metrics.
func (s *Session) Metrics() SessionMetrics {
	return s.metrics.Metrics()
}

// ResetMetrics clears all collected metrics.
func (s *Session) ResetMetrics() {
	s.metrics.Reset()
}

// Connect dials the gateway, sends the session configuration, and waits for
// the ready frame. Concurrent calls are serialized; calling Connect on an
// already connected session is a no-op. Audio buffered before Connect is
// flushed, in order, before any new sends.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	if s.closed {
		s.mu.Unlock()
		return core.NewConnectionError(s.cfg.URL, errors.New("session is closed"))
	}
	s.readyCh = make(chan struct{})
	s.readyFired = false
	s.mu.Unlock()

	timeout := s.cfg.ConnectTimeout
	start := time.Now()

	header := make(http.Header)
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := &websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := dialer.DialContext(dialCtx, s.cfg.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return core.NewTimeoutError("connect", timeout)
		}
		return core.NewConnectionError(s.cfg.URL, err)
	}

	s.metrics.RecordWSConnect(float64(time.Since(start)) / float64(time.Millisecond))

	recvDone := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		// Disconnect landed while the dial was in flight.
		s.mu.Unlock()
		conn.Close()
		return core.NewConnectionError(s.cfg.URL, errors.New("session is closed"))
	}
	s.conn = conn
	s.connected = true
	s.flushed = false
	s.recvDone = recvDone
	readyCh := s.readyCh
	s.mu.Unlock()

	go s.receiveLoop(conn, recvDone)

	if err := s.sendConfig(conn); err != nil {
		s.teardown(conn, recvDone)
		return core.NewConnectionError(s.cfg.URL, err)
	}

	select {
	case <-readyCh:
	case <-time.After(timeout):
		s.teardown(conn, recvDone)
		return core.NewTimeoutError("ready", timeout)
	case <-ctx.Done():
		s.teardown(conn, recvDone)
		return core.NewConnectionError(s.cfg.URL, ctx.Err())
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.teardown(conn, recvDone)
		return core.NewConnectionError(s.cfg.URL, errors.New("session is closed"))
	}

	if err := s.flushPendingAudio(conn); err != nil {
		s.teardown(conn, recvDone)
		return core.NewConnectionError(s.cfg.URL, err)
	}

	s.mu.Lock()
	streamID := s.streamID
	s.mu.Unlock()
	s.emitter.Emit("ready", streamID)
	return nil
}

// teardown reverts a partially established connection. The receive loop sees
// the closed socket and exits; reconnect is suppressed because connected was
// already cleared.
func (s *Session) teardown(conn *websocket.Conn, recvDone chan struct{}) {
	s.mu.Lock()
	s.connected = false
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
	<-recvDone
}

func (s *Session) sendConfig(conn *websocket.Conn) error {
	frame := newConfigFrame(s.cfg.STT, s.cfg.TTS, s.cfg.LiveKit)

	s.mu.Lock()
	if !s.initialConfigSent {
		s.configSentAt = time.Now()
		s.initialConfigSent = true
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteJSON(frame); err != nil {
		return err
	}
	s.metrics.RecordMessageSent()
	return nil
}

// flushPendingAudio drains buffered audio and then opens the direct audio
// path, all under the write lock, so a chunk sent during the handshake cannot
// overtake the buffered ones.
func (s *Session) flushPendingAudio(conn *websocket.Conn) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for {
		s.mu.Lock()
		pending := s.pendingAudio
		s.pendingAudio = nil
		if len(pending) == 0 {
			s.flushed = true
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		for _, chunk := range pending {
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return err
			}
			s.metrics.RecordAudioSent(len(chunk))
		}
	}
}

// Disconnect closes the session permanently. It is safe to call more than
// once; subsequent calls return nil immediately.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	conn := s.conn
	s.conn = nil
	recvDone := s.recvDone
	s.mu.Unlock()

	if conn != nil {
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		conn.Close()
	}

	if recvDone != nil {
		<-recvDone
	} else {
		// Never connected; the receive loop will not run the close path.
		s.emitter.Emit("close", nil)
		s.queue.close()
	}
	return nil
}

// SendAudio sends a binary PCM frame. While disconnected, or until the
// buffered backlog has been flushed on a fresh connection, the chunk is
// buffered so audio is never reordered across a connect.
func (s *Session) SendAudio(audio []byte) error {
	s.mu.Lock()
	if !s.connected || !s.flushed {
		buf := make([]byte, len(audio))
		copy(buf, audio)
		s.pendingAudio = append(s.pendingAudio, buf)
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return core.NewConnectionError(s.cfg.URL, errors.New("not connected"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return err
	}
	s.metrics.RecordAudioSent(len(audio))
	return nil
}

// SpeakOptions control a Speak call.
type SpeakOptions struct {
	// Flush asks the gateway to synthesize immediately instead of buffering.
	Flush bool
	// AllowInterruption lets incoming speech cut this utterance off.
	AllowInterruption bool
}

// Speak sends text for synthesis. The time to the first audio frame after a
// Speak is recorded as TTS TTFB.
func (s *Session) Speak(text string, opts SpeakOptions) error {
	s.mu.Lock()
	s.speakStartAt = time.Now()
	s.mu.Unlock()
	return s.sendJSON(speakFrame{
		Type:              "speak",
		Text:              text,
		Flush:             opts.Flush,
		AllowInterruption: opts.AllowInterruption,
	})
}

// Clear stops current TTS playback.
func (s *Session) Clear() error {
	return s.sendJSON(clearFrame{Type: "clear"})
}

// SendMessage sends a data message to other participants. Role defaults to
// "user" when empty.
func (s *Session) SendMessage(message, role, topic string) error {
	if role == "" {
		role = "user"
	}
	return s.sendJSON(sendMessageFrame{
		Type:    "send_message",
		Message: message,
		Role:    role,
		Topic:   topic,
	})
}

// SIPTransfer transfers an active SIP call to another number.
func (s *Session) SIPTransfer(transferTo string) error {
	return s.sendJSON(sipTransferFrame{Type: "sip_transfer", TransferTo: transferTo})
}

// Ping sends an application-level ping; the gateway answers with a pong
// frame.
func (s *Session) Ping() error {
	return s.sendJSON(pingFrame{Type: "ping", Timestamp: time.Now().UnixMilli()})
}

func (s *Session) sendJSON(v any) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.connected
	s.mu.Unlock()

	if !connected || conn == nil {
		return core.NewConnectionError(s.cfg.URL, errors.New("not connected"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return err
	}
	s.metrics.RecordMessageSent()
	return nil
}

// dispatch delivers a classified frame to both consumption paths.
func (s *Session) dispatch(ev Event) {
	switch e := ev.(type) {
	case TranscriptEvent:
		s.emitter.Emit("transcript", e.Result)
	case AudioChunkEvent:
		s.emitter.Emit("audio", e.Audio)
	case PlaybackCompleteEvent:
		s.emitter.Emit("playback_complete", e.Timestamp)
	case MessageEvent:
		s.emitter.Emit("message", e.Message)
	case ParticipantDisconnectedEvent:
		s.emitter.Emit("participant_disconnected", e.Participant)
	case ErrorEvent:
		s.emitter.Emit("error", e.Err)
	default:
		s.emitter.Emit(ev.eventType(), ev)
	}
	s.queue.push(ev)
}

func (s *Session) receiveLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.handleConnectionLost(conn)
			return
		}

		s.metrics.RecordMessageReceived()

		switch messageType {
		case websocket.BinaryMessage:
			s.handleBinaryAudio(data)
		case websocket.TextMessage:
			s.handleTextFrame(data)
		}
	}
}

func (s *Session) handleBinaryAudio(data []byte) {
	s.metrics.RecordAudioReceived(len(data))
	s.recordTTFB()

	sampleRate := 24000
	if s.cfg.TTS != nil && s.cfg.TTS.SampleRate > 0 {
		sampleRate = s.cfg.TTS.SampleRate
	}
	s.dispatch(AudioChunkEvent{Audio: types.AudioEvent{
		Audio:      data,
		Format:     "linear16",
		SampleRate: sampleRate,
	}})
}

func (s *Session) handleTextFrame(data []byte) {
	frameType, ok := decodeEnvelope(data)
	if !ok {
		return
	}

	switch frameType {
	case "ready":
		var ready serverReady
		if err := json.Unmarshal(data, &ready); err != nil {
			return
		}
		s.mu.Lock()
		if ready.StreamID != "" {
			s.streamID = ready.StreamID
		}
		if !s.readyFired && s.readyCh != nil {
			close(s.readyCh)
			s.readyFired = true
		}
		s.mu.Unlock()

	case "stt_result":
		var result serverSTTResult
		if err := json.Unmarshal(data, &result); err != nil {
			return
		}
		s.recordTTFT()
		s.dispatch(TranscriptEvent{Result: types.STTResult{
			Text:       result.Transcript,
			IsFinal:    result.IsFinal,
			Confidence: result.Confidence,
			SpeakerID:  result.SpeakerID,
		}})

	case "tts_audio":
		var frame serverTTSAudio
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		audio, err := base64.StdEncoding.DecodeString(frame.Audio)
		if err != nil {
			return
		}
		s.metrics.RecordAudioReceived(len(audio))
		s.recordTTFB()

		format := frame.Format
		if format == "" {
			format = "linear16"
		}
		sampleRate := frame.SampleRate
		if sampleRate == 0 {
			sampleRate = 24000
		}
		s.dispatch(AudioChunkEvent{Audio: types.AudioEvent{
			Audio:      audio,
			Format:     format,
			SampleRate: sampleRate,
		}})

	case "tts_playback_complete":
		var frame serverPlaybackComplete
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		s.dispatch(PlaybackCompleteEvent{Timestamp: frame.Timestamp})

	case "message":
		var frame serverMessage
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		s.dispatch(MessageEvent{Message: frame.Message})

	case "participant_disconnected":
		var frame serverParticipantDisconnected
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		s.dispatch(ParticipantDisconnectedEvent{Participant: frame.Participant})

	case "error":
		var frame serverError
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		message := frame.Message
		if message == "" {
			message = "unknown error"
		}
		s.dispatch(ErrorEvent{Err: core.NewGatewayError(message, frame.Code)})

	case "pong":
		var frame serverPong
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		s.emitter.Emit("pong", frame.Timestamp)
	}
}

func (s *Session) recordTTFT() {
	s.mu.Lock()
	armed := !s.configSentAt.IsZero()
	sentAt := s.configSentAt
	s.configSentAt = time.Time{}
	s.mu.Unlock()
	if armed {
		s.metrics.RecordSTTTTFT(float64(time.Since(sentAt)) / float64(time.Millisecond))
	}
}

func (s *Session) recordTTFB() {
	s.mu.Lock()
	armed := !s.speakStartAt.IsZero()
	startAt := s.speakStartAt
	s.speakStartAt = time.Time{}
	s.mu.Unlock()
	if armed {
		s.metrics.RecordTTSTTFB(float64(time.Since(startAt)) / float64(time.Millisecond))
	}
}

// handleConnectionLost runs when the receive loop exits. It decides between
// a quiet exit (connect teardown), a terminal close, and reconnection.
func (s *Session) handleConnectionLost(conn *websocket.Conn) {
	s.mu.Lock()
	if !s.connected || s.conn != conn {
		// Teardown during Connect, or an older connection superseded by a
		// reconnect. Terminal close is signalled elsewhere if at all.
		closed := s.closed
		s.mu.Unlock()
		if closed {
			s.emitter.Emit("close", nil)
			s.queue.close()
		}
		return
	}
	s.connected = false
	s.conn = nil
	closed := s.closed
	s.mu.Unlock()

	s.emitter.Emit("close", nil)

	if closed || !s.cfg.Reconnect.Enabled {
		s.queue.close()
		return
	}

	if err := s.reconnect(); err != nil {
		s.dispatch(ErrorEvent{Err: err})
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.emitter.Emit("close", nil)
		s.queue.close()
	}
}

// reconnect retries Connect with exponential backoff and jitter, sleeping
// before every attempt. On success it records the reconnect metric and emits
// a reconnect event with the attempt number.
func (s *Session) reconnect() error {
	rc := *s.cfg.Reconnect
	delay := rc.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= rc.MaxRetries; attempt++ {
		jitter := time.Duration(float64(delay) * rc.Jitter * (rand.Float64()*2 - 1))
		time.Sleep(delay + jitter)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return &core.ReconnectError{Attempts: attempt - 1, LastErr: lastErr}
		}
		s.mu.Unlock()

		if err := s.Connect(context.Background()); err != nil {
			lastErr = err
			s.logger.Debug("reconnect attempt failed", "attempt", attempt, "error", err)
			next := time.Duration(float64(delay) * rc.Multiplier)
			if next > rc.MaxDelay {
				next = rc.MaxDelay
			}
			delay = next
			continue
		}

		s.metrics.RecordReconnect()
		s.emitter.Emit("reconnect", attempt)
		return nil
	}

	return &core.ReconnectError{Attempts: rc.MaxRetries, LastErr: lastErr}
}
