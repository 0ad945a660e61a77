package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bud-foundry/foundry-go/pkg/core"
	"github.com/bud-foundry/foundry-go/pkg/core/events"
)

var (
	reconnectBaseDelay  = time.Second
	reconnectMaxRetries = 3
)

var sessionEvents = []string{
	"audio", "transcript", "function_call", "emotion",
	"connected", "disconnected", "state_change", "error",
}

// Session is a speech-to-speech conversation with one realtime provider.
// All provider differences live behind the protocol; the session handles
// lifecycle, tool synchronization, and event fan-out.
type Session struct {
	cfg     Config
	logger  *slog.Logger
	proto   protocol
	emitter *events.Emitter

	connectMu sync.Mutex
	writeMu   sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	state    State
	tools    []Tool
	recvDone chan struct{}
}

// NewSession creates a session for the configured provider. The provider
// must be a supported realtime backend.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}

	proto, ok := protocolFor(cfg.Provider)
	if !ok {
		return nil, core.NewConfigurationError(
			fmt.Sprintf("unsupported realtime provider %q", cfg.Provider), "provider")
	}

	return &Session{
		cfg:     cfg,
		logger:  cfg.Logger,
		proto:   proto,
		emitter: events.NewRestricted(cfg.Logger, sessionEvents...),
		state:   StateDisconnected,
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// On registers a handler for one of: audio, transcript, function_call,
// emotion, connected, disconnected, state_change, error. Unknown event names
// are logged and ignored.
func (s *Session) On(event string, handler events.Handler) {
	s.emitter.On(event, handler)
}

// Off removes a handler; a nil handler removes all handlers for the event.
func (s *Session) Off(event string, handler events.Handler) {
	s.emitter.Off(event, handler)
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.emitter.Emit("state_change", StateChangeEvent{Previous: prev, Current: next})
	}
}

// Connect dials the provider and pushes the session configuration. Calling
// Connect while connected is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	return s.connectLocked(ctx, false)
}

// connectLocked runs one connection attempt. While reconnecting, failures
// leave the session in Reconnecting so the retry loop owns the terminal
// Error transition; a fresh Connect fails straight to Error.
func (s *Session) connectLocked(ctx context.Context, reconnecting bool) error {
	s.mu.Lock()
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if !reconnecting {
		s.setState(StateConnecting)
	}

	header := make(http.Header)
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	dialer := &websocket.Dialer{HandshakeTimeout: s.cfg.SendTimeout}
	conn, resp, err := dialer.DialContext(ctx, s.dialURL(), header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if !reconnecting {
			s.setState(StateError)
			s.emitter.Emit("disconnected", nil)
		}
		return core.NewConnectionError(s.cfg.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	tools := append([]Tool(nil), s.tools...)
	s.mu.Unlock()

	s.setState(StateConnected)
	s.emitter.Emit("connected", nil)

	if err := s.writeFrame(conn, jsonFrame(s.proto.sessionConfig(&s.cfg, tools))); err != nil {
		// The provider accepted the socket but rejected or lost the config
		// push; a half-configured session is unusable, so tear it down.
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		if reconnecting {
			s.setState(StateReconnecting)
		} else {
			s.setState(StateError)
			s.emitter.Emit("disconnected", nil)
		}
		return core.NewConnectionError(s.cfg.URL, err)
	}

	// The receive loop starts only once the provider holds a valid session
	// configuration.
	recvDone := make(chan struct{})
	s.mu.Lock()
	s.recvDone = recvDone
	s.mu.Unlock()
	go s.receiveLoop(conn, recvDone)
	return nil
}

// dialURL carries the provider selection and model as query parameters so
// the endpoint can route to the right backend.
func (s *Session) dialURL() string {
	query := url.Values{}
	query.Set("provider", string(s.cfg.Provider))
	if s.cfg.Provider == ProviderOpenAI && s.cfg.Model != "" {
		query.Set("model", s.cfg.Model)
	}
	separator := "?"
	if strings.Contains(s.cfg.URL, "?") {
		separator = "&"
	}
	return s.cfg.URL + separator + query.Encode()
}

// Disconnect closes the session cleanly.
func (s *Session) Disconnect() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	recvDone := s.recvDone
	s.recvDone = nil
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
	}

	s.setState(StateDisconnected)
	if conn != nil {
		s.emitter.Emit("disconnected", nil)
	}
	return nil
}

// SendAudio streams a chunk of caller audio to the model.
func (s *Session) SendAudio(audio []byte) error {
	return s.send(s.proto.audioFrames(audio))
}

// SendText injects a typed user turn and asks the model to respond.
func (s *Session) SendText(text string) error {
	return s.send(s.proto.textFrames(text))
}

// SubmitFunctionResult returns a tool invocation result to the model. The
// result is JSON-encoded on the wire.
func (s *Session) SubmitFunctionResult(callID string, result any) error {
	frames, err := s.proto.functionResultFrames(callID, result)
	if err != nil {
		return err
	}
	return s.send(frames)
}

// Interrupt cancels the in-flight model response.
func (s *Session) Interrupt() error {
	return s.send(s.proto.interruptFrames())
}

// CommitAudioBuffer finalizes the pending input audio as a complete turn.
// Providers without an explicit commit treat this as a no-op.
func (s *Session) CommitAudioBuffer() error {
	frames := s.proto.commitFrames()
	if frames == nil {
		return nil
	}
	return s.send(frames)
}

// AddTool declares a tool; a tool with the same name is replaced. When
// connected, the session configuration is re-pushed so the provider sees the
// updated set.
func (s *Session) AddTool(tool Tool) error {
	s.mu.Lock()
	replaced := false
	for i := range s.tools {
		if s.tools[i].Name == tool.Name {
			s.tools[i] = tool
			replaced = true
			break
		}
	}
	if !replaced {
		s.tools = append(s.tools, tool)
	}
	s.mu.Unlock()
	return s.syncTools()
}

// RemoveTool withdraws a tool by name. Removing an unknown tool is a no-op.
func (s *Session) RemoveTool(name string) error {
	s.mu.Lock()
	kept := s.tools[:0]
	for _, tool := range s.tools {
		if tool.Name != name {
			kept = append(kept, tool)
		}
	}
	s.tools = kept
	s.mu.Unlock()
	return s.syncTools()
}

// Tools returns the currently declared tool set.
func (s *Session) Tools() []Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Tool(nil), s.tools...)
}

func (s *Session) syncTools() error {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	tools := append([]Tool(nil), s.tools...)
	s.mu.Unlock()

	if !connected || conn == nil {
		return nil
	}
	return s.writeFrame(conn, jsonFrame(s.proto.sessionConfig(&s.cfg, tools)))
}

func (s *Session) send(frames []frame) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected || conn == nil {
		return core.NewConnectionError(s.cfg.URL, errors.New("session is not connected"))
	}

	for _, f := range frames {
		if err := s.writeFrame(conn, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) writeFrame(conn *websocket.Conn, f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline := time.Now().Add(s.cfg.SendTimeout)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if f.binary {
		return conn.WriteMessage(websocket.BinaryMessage, f.data)
	}
	return conn.WriteJSON(f.json)
}

func (s *Session) receiveLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.handleConnectionLost(conn, err)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.dispatch(AudioEvent{Audio: data})
		case websocket.TextMessage:
			for _, ev := range s.proto.handleText(data) {
				s.dispatch(ev)
			}
		}
	}
}

func (s *Session) dispatch(ev any) {
	switch e := ev.(type) {
	case AudioEvent:
		s.emitter.Emit("audio", e)
	case TranscriptEvent:
		s.emitter.Emit("transcript", e)
	case FunctionCallEvent:
		s.emitter.Emit("function_call", e)
	case EmotionEvent:
		s.emitter.Emit("emotion", e)
	case error:
		s.emitter.Emit("error", e)
	default:
		s.logger.Warn("dropping unrecognized event", "type", fmt.Sprintf("%T", ev))
	}
}

func (s *Session) handleConnectionLost(conn *websocket.Conn, err error) {
	s.mu.Lock()
	current := s.conn == conn
	if current {
		s.conn = nil
		s.recvDone = nil
	}
	s.mu.Unlock()
	if !current {
		// Disconnect or a newer connection already took over.
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		s.setState(StateDisconnected)
		s.emitter.Emit("disconnected", nil)
		return
	}

	s.logger.Warn("realtime connection lost", "error", err)
	s.setState(StateReconnecting)
	go s.reconnect()
}

// reconnect retries with linear backoff. The provider holds conversation
// state server-side, so a fresh connection resumes with a config re-push.
func (s *Session) reconnect() {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= reconnectMaxRetries; attempt++ {
		time.Sleep(reconnectBaseDelay * time.Duration(attempt))

		s.mu.Lock()
		state := s.state
		s.mu.Unlock()
		if state != StateReconnecting {
			return
		}

		if err := s.connectLocked(context.Background(), true); err != nil {
			lastErr = err
			continue
		}
		return
	}

	s.setState(StateError)
	s.emitter.Emit("error", &core.ReconnectError{Attempts: reconnectMaxRetries, LastErr: lastErr})
	s.emitter.Emit("disconnected", nil)
}
