package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bud-foundry/foundry-go/pkg/core"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

// newGatewayTestServer starts a fake gateway that upgrades the connection and
// hands it to fn. The returned URL uses the ws scheme.
func newGatewayTestServer(t *testing.T, fn func(conn *websocket.Conn, r *http.Request)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		fn(conn, r)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// acceptConfig reads the config frame and answers with ready.
func acceptConfig(t *testing.T, conn *websocket.Conn, streamID string) map[string]any {
	t.Helper()

	var config map[string]any
	if err := conn.ReadJSON(&config); err != nil {
		t.Errorf("read config: %v", err)
		return nil
	}
	if config["type"] != "config" {
		t.Errorf("first frame type=%v, want config", config["type"])
	}
	if err := conn.WriteJSON(map[string]any{"type": "ready", "stream_id": streamID}); err != nil {
		t.Errorf("write ready: %v", err)
	}
	return config
}

func TestSessionConnectHandshake(t *testing.T) {
	t.Parallel()

	gotAuth := make(chan string, 1)
	gotConfig := make(chan map[string]any, 1)
	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		gotConfig <- acceptConfig(t, conn, "stream-1")
		conn.ReadMessage()
	})

	stt := types.DefaultSTTConfig()
	tts := types.DefaultTTSConfig()
	tts.Voice = "asteria"
	sess := NewSession(Config{
		URL:    url,
		APIKey: "test-key",
		STT:    &stt,
		TTS:    &tts,
	})

	readyID := make(chan any, 1)
	sess.On("ready", func(payload any) { readyID <- payload })

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Disconnect()

	if auth := <-gotAuth; auth != "Bearer test-key" {
		t.Fatalf("authorization=%q, want %q", auth, "Bearer test-key")
	}

	config := <-gotConfig
	if config["audio"] != true {
		t.Fatalf("config audio=%v, want true", config["audio"])
	}
	sttConfig, ok := config["stt_config"].(map[string]any)
	if !ok {
		t.Fatalf("missing stt_config in %v", config)
	}
	if sttConfig["model"] != "nova-3" {
		t.Fatalf("stt model=%v, want default nova-3", sttConfig["model"])
	}
	ttsConfig, ok := config["tts_config"].(map[string]any)
	if !ok {
		t.Fatalf("missing tts_config in %v", config)
	}
	if ttsConfig["voice_id"] != "asteria" {
		t.Fatalf("voice_id=%v, want asteria from Voice fallback", ttsConfig["voice_id"])
	}
	if ttsConfig["model"] != "aura-asteria-en" {
		t.Fatalf("tts model=%v, want default aura-asteria-en", ttsConfig["model"])
	}

	select {
	case payload := <-readyID:
		if payload != "stream-1" {
			t.Fatalf("ready payload=%v, want stream-1", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("ready event not emitted")
	}

	if sess.StreamID() != "stream-1" {
		t.Fatalf("stream id=%q, want stream-1", sess.StreamID())
	}
	if !sess.Connected() {
		t.Fatal("session should report connected")
	}
}

func TestSessionConnectIdempotent(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	connects := 0
	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		mu.Lock()
		connects++
		mu.Unlock()
		acceptConfig(t, conn, "stream-1")
		conn.ReadMessage()
	})

	sess := NewSession(Config{URL: url})
	defer sess.Disconnect()

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("second connect: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if connects != 1 {
		t.Fatalf("connects=%d, want 1", connects)
	}
}

func TestSessionConcurrentConnectSharesOneSocket(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	upgrades := 0
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Slow upgrade, so both callers are inside Connect at once.
		time.Sleep(100 * time.Millisecond)
		mu.Lock()
		upgrades++
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		acceptConfig(t, conn, "stream-1")
		conn.ReadMessage()
	}))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	sess := NewSession(Config{URL: url})
	defer sess.Disconnect()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- sess.Connect(context.Background()) }()
	}
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("connect: %v", err)
		}
	}

	if !sess.Connected() {
		t.Fatal("session should report connected")
	}
	mu.Lock()
	defer mu.Unlock()
	if upgrades != 1 {
		t.Fatalf("upgrades=%d, want a single shared socket", upgrades)
	}
}

func TestSessionReadyTimeout(t *testing.T) {
	t.Parallel()

	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		// Accept the config but never answer.
		conn.ReadMessage()
		time.Sleep(500 * time.Millisecond)
	})

	sess := NewSession(Config{URL: url, ConnectTimeout: 100 * time.Millisecond})
	err := sess.Connect(context.Background())
	if err == nil {
		t.Fatal("connect should fail without a ready frame")
	}
	var timeoutErr *core.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error type=%T, want *core.TimeoutError", err)
	}
	if timeoutErr.Op != "ready" {
		t.Fatalf("timeout op=%q, want ready", timeoutErr.Op)
	}
}

func TestSessionDialFailure(t *testing.T) {
	t.Parallel()

	sess := NewSession(Config{URL: "ws://127.0.0.1:1", ConnectTimeout: time.Second})
	err := sess.Connect(context.Background())
	if err == nil {
		t.Fatal("connect should fail against a closed port")
	}
	var connErr *core.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error type=%T, want *core.ConnectionError", err)
	}
}

func TestSessionBuffersAudioBeforeConnect(t *testing.T) {
	t.Parallel()

	received := make(chan []byte, 4)
	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		acceptConfig(t, conn, "stream-1")
		for i := 0; i < 2; i++ {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.BinaryMessage {
				received <- data
			}
		}
	})

	sess := NewSession(Config{URL: url})
	defer sess.Disconnect()

	if err := sess.SendAudio([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("buffered send: %v", err)
	}
	if err := sess.SendAudio([]byte{0x03, 0x04}); err != nil {
		t.Fatalf("buffered send: %v", err)
	}
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	want := [][]byte{{0x01, 0x02}, {0x03, 0x04}}
	for i, expected := range want {
		select {
		case got := <-received:
			if string(got) != string(expected) {
				t.Fatalf("chunk %d = %v, want %v", i, got, expected)
			}
		case <-time.After(time.Second):
			t.Fatalf("chunk %d not flushed", i)
		}
	}

	if sess.Metrics().AudioBytesSent != 4 {
		t.Fatalf("audio bytes sent=%d, want 4", sess.Metrics().AudioBytesSent)
	}
}

func TestSessionAudioOrderedAcrossConnect(t *testing.T) {
	t.Parallel()

	configReceived := make(chan struct{})
	releaseReady := make(chan struct{})
	binary := make(chan []byte, 4)
	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		var config map[string]any
		if err := conn.ReadJSON(&config); err != nil {
			return
		}
		close(configReceived)
		<-releaseReady
		if err := conn.WriteJSON(map[string]any{"type": "ready", "stream_id": "stream-1"}); err != nil {
			return
		}
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.BinaryMessage {
				binary <- data
			}
		}
	})

	sess := NewSession(Config{URL: url})
	defer sess.Disconnect()

	if err := sess.SendAudio([]byte{0x01}); err != nil {
		t.Fatalf("buffered send: %v", err)
	}
	if err := sess.SendAudio([]byte{0x02}); err != nil {
		t.Fatalf("buffered send: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Connect(context.Background()) }()

	// Mid-handshake: the socket is up but ready has not arrived. This chunk
	// must queue behind the pre-connect backlog, never overtake it.
	<-configReceived
	if err := sess.SendAudio([]byte{0x03}); err != nil {
		t.Fatalf("handshake send: %v", err)
	}
	close(releaseReady)

	if err := <-errCh; err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := sess.SendAudio([]byte{0x04}); err != nil {
		t.Fatalf("connected send: %v", err)
	}

	for i, want := range []byte{0x01, 0x02, 0x03, 0x04} {
		select {
		case got := <-binary:
			if len(got) != 1 || got[0] != want {
				t.Fatalf("chunk %d = %v, want [%d]", i, got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("chunk %d never arrived", i)
		}
	}
}

func TestSessionFrameClassification(t *testing.T) {
	t.Parallel()

	ttsAudio := base64.StdEncoding.EncodeToString([]byte("pcm-bytes"))
	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		acceptConfig(t, conn, "stream-1")

		frames := []map[string]any{
			{"type": "stt_result", "transcript": "hello there", "is_final": true, "confidence": 0.97, "speaker_id": 2},
			{"type": "tts_audio", "audio": ttsAudio, "format": "linear16", "sample_rate": 16000},
			{"type": "tts_playback_complete", "timestamp": 1234.5},
			{"type": "message", "message": map[string]any{"text": "hi"}},
			{"type": "participant_disconnected", "participant": map[string]any{"identity": "agent"}},
			{"type": "error", "message": "backend unavailable", "code": "BACKEND_DOWN"},
		}
		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		// Raw binary audio and frames the queue must not see.
		conn.WriteMessage(websocket.BinaryMessage, []byte("raw-pcm"))
		conn.WriteJSON(map[string]any{"type": "pong", "timestamp": 99})
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		conn.ReadMessage()
	})

	sess := NewSession(Config{URL: url})
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Disconnect()

	read := func() Event {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				t.Fatal("events channel closed early")
			}
			return ev
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
			return nil
		}
	}

	transcript, ok := read().(TranscriptEvent)
	if !ok || transcript.Result.Text != "hello there" {
		t.Fatalf("event 0 = %#v, want transcript hello there", transcript)
	}
	if !transcript.Result.IsFinal || transcript.Result.Confidence != 0.97 || transcript.Result.SpeakerID != 2 {
		t.Fatalf("transcript fields = %+v", transcript.Result)
	}

	audio, ok := read().(AudioChunkEvent)
	if !ok || string(audio.Audio.Audio) != "pcm-bytes" {
		t.Fatalf("event 1 = %#v, want decoded tts_audio", audio)
	}
	if audio.Audio.SampleRate != 16000 || audio.Audio.Format != "linear16" {
		t.Fatalf("audio metadata = %+v", audio.Audio)
	}

	playback, ok := read().(PlaybackCompleteEvent)
	if !ok || playback.Timestamp != 1234.5 {
		t.Fatalf("event 2 = %#v, want playback complete at 1234.5", playback)
	}

	message, ok := read().(MessageEvent)
	if !ok || message.Message["text"] != "hi" {
		t.Fatalf("event 3 = %#v, want message", message)
	}

	participant, ok := read().(ParticipantDisconnectedEvent)
	if !ok || participant.Participant["identity"] != "agent" {
		t.Fatalf("event 4 = %#v, want participant_disconnected", participant)
	}

	errEvent, ok := read().(ErrorEvent)
	if !ok {
		t.Fatalf("event 5 = %#v, want error", errEvent)
	}
	var gatewayErr *core.Error
	if !errors.As(errEvent.Err, &gatewayErr) || gatewayErr.Code != "BACKEND_DOWN" {
		t.Fatalf("error = %v, want code BACKEND_DOWN", errEvent.Err)
	}

	rawAudio, ok := read().(AudioChunkEvent)
	if !ok || string(rawAudio.Audio.Audio) != "raw-pcm" {
		t.Fatalf("event 6 = %#v, want raw binary audio", rawAudio)
	}
	// Default sample rate applies when no TTS config was given.
	if rawAudio.Audio.SampleRate != 24000 {
		t.Fatalf("raw audio sample rate=%d, want 24000", rawAudio.Audio.SampleRate)
	}
}

func TestSessionHandlersAndQueueBothReceive(t *testing.T) {
	t.Parallel()

	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		acceptConfig(t, conn, "stream-1")
		conn.WriteJSON(map[string]any{"type": "stt_result", "transcript": "both paths", "is_final": true})
		conn.ReadMessage()
	})

	sess := NewSession(Config{URL: url})
	handlerGot := make(chan types.STTResult, 1)
	sess.On("transcript", func(payload any) {
		handlerGot <- payload.(types.STTResult)
	})

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Disconnect()

	select {
	case result := <-handlerGot:
		if result.Text != "both paths" {
			t.Fatalf("handler text=%q, want both paths", result.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}

	select {
	case ev := <-sess.Events():
		transcript, ok := ev.(TranscriptEvent)
		if !ok || transcript.Result.Text != "both paths" {
			t.Fatalf("queued event = %#v, want the same transcript", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("queue never received the event")
	}
}

func TestSessionSpeakAndControlFrames(t *testing.T) {
	t.Parallel()

	frames := make(chan map[string]any, 8)
	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		acceptConfig(t, conn, "stream-1")
		for {
			var frame map[string]any
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			frames <- frame
			if frame["type"] == "ping" {
				conn.WriteJSON(map[string]any{"type": "pong", "timestamp": frame["timestamp"]})
			}
		}
	})

	sess := NewSession(Config{URL: url})
	pong := make(chan any, 1)
	sess.On("pong", func(payload any) { pong <- payload })

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Disconnect()

	if err := sess.Speak("hello world", SpeakOptions{Flush: true, AllowInterruption: true}); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if err := sess.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := sess.SendMessage("payload", "", "updates"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if err := sess.SIPTransfer("+15551234567"); err != nil {
		t.Fatalf("sip transfer: %v", err)
	}
	if err := sess.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	next := func() map[string]any {
		select {
		case frame := <-frames:
			return frame
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for frame")
			return nil
		}
	}

	speak := next()
	if speak["type"] != "speak" || speak["text"] != "hello world" || speak["flush"] != true || speak["allow_interruption"] != true {
		t.Fatalf("speak frame = %v", speak)
	}
	if clear := next(); clear["type"] != "clear" {
		t.Fatalf("clear frame = %v", clear)
	}
	message := next()
	if message["type"] != "send_message" || message["role"] != "user" || message["topic"] != "updates" {
		t.Fatalf("send_message frame = %v", message)
	}
	transfer := next()
	if transfer["type"] != "sip_transfer" || transfer["transfer_to"] != "+15551234567" {
		t.Fatalf("sip_transfer frame = %v", transfer)
	}
	if ping := next(); ping["type"] != "ping" {
		t.Fatalf("ping frame = %v", ping)
	}

	select {
	case <-pong:
	case <-time.After(time.Second):
		t.Fatal("pong event not emitted")
	}
}

func TestSessionControlFrameRequiresConnection(t *testing.T) {
	t.Parallel()

	sess := NewSession(Config{URL: "ws://example.invalid"})
	err := sess.Speak("too early", SpeakOptions{})
	var connErr *core.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error type=%T, want *core.ConnectionError", err)
	}
}

func TestSessionDisconnectClosesQueue(t *testing.T) {
	t.Parallel()

	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		acceptConfig(t, conn, "stream-1")
		conn.ReadMessage()
	})

	sess := NewSession(Config{URL: url})
	closeEvents := make(chan struct{}, 2)
	sess.On("close", func(any) { closeEvents <- struct{}{} })

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := sess.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := sess.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}

	select {
	case _, ok := <-sess.Events():
		if ok {
			t.Fatal("expected closed events channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel did not close")
	}

	select {
	case <-closeEvents:
	case <-time.After(time.Second):
		t.Fatal("close event not emitted")
	}

	if sess.Connected() {
		t.Fatal("session should not report connected after Disconnect")
	}
	if err := sess.Connect(context.Background()); err == nil {
		t.Fatal("connect after Disconnect should fail")
	}
}

func TestSessionDisconnectDuringConnect(t *testing.T) {
	t.Parallel()

	dialStarted := make(chan struct{})
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(dialStarted)
		<-release
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage()
	}))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	sess := NewSession(Config{URL: url})
	errCh := make(chan error, 1)
	go func() { errCh <- sess.Connect(context.Background()) }()

	<-dialStarted
	if err := sess.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	close(release)

	if err := <-errCh; err == nil {
		t.Fatal("connect should fail when Disconnect lands mid-dial")
	}
	if sess.Connected() {
		t.Fatal("session must not hold a connection after Disconnect")
	}

	select {
	case _, ok := <-sess.Events():
		if ok {
			t.Fatal("expected closed events channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel did not close")
	}
}

func TestSessionReconnectAfterDrop(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	connects := 0
	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		mu.Lock()
		connects++
		n := connects
		mu.Unlock()

		acceptConfig(t, conn, "stream-1")
		if n == 1 {
			// Drop the first connection abruptly.
			conn.Close()
			return
		}
		conn.ReadMessage()
	})

	sess := NewSession(Config{
		URL: url,
		Reconnect: &ReconnectConfig{
			Enabled:      true,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     50 * time.Millisecond,
			Multiplier:   1.5,
			MaxRetries:   5,
			Jitter:       0.1,
		},
	})

	reconnected := make(chan any, 1)
	sess.On("reconnect", func(payload any) { reconnected <- payload })

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Disconnect()

	select {
	case attempt := <-reconnected:
		if attempt != 1 {
			t.Fatalf("reconnect attempt=%v, want 1", attempt)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("session did not reconnect")
	}

	if sess.Metrics().ReconnectCount != 1 {
		t.Fatalf("reconnect count=%d, want 1", sess.Metrics().ReconnectCount)
	}
	if !sess.Connected() {
		t.Fatal("session should be connected after reconnect")
	}
}

func TestSessionReconnectExhaustion(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	accepted := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		first := !accepted
		accepted = true
		mu.Unlock()
		if !first {
			http.Error(w, "gone", http.StatusServiceUnavailable)
			return
		}
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		acceptConfig(t, conn, "stream-1")
	}))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	sess := NewSession(Config{
		URL: url,
		Reconnect: &ReconnectConfig{
			Enabled:      true,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     10 * time.Millisecond,
			Multiplier:   1.5,
			MaxRetries:   2,
			Jitter:       0,
		},
	})

	errEvents := make(chan any, 1)
	sess.On("error", func(payload any) { errEvents <- payload })

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	select {
	case payload := <-errEvents:
		var reconnectErr *core.ReconnectError
		if !errors.As(payload.(error), &reconnectErr) {
			t.Fatalf("error payload=%T, want *core.ReconnectError", payload)
		}
		if reconnectErr.Attempts != 2 {
			t.Fatalf("attempts=%d, want 2", reconnectErr.Attempts)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reconnect exhaustion never reported")
	}

	// Terminal: the queue must close after the error drains.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sess.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel did not close after exhaustion")
		}
	}
}

func TestSessionReconnectBackoffIncreases(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var attempts []time.Time
	accepted := false
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		first := !accepted
		accepted = true
		if !first {
			attempts = append(attempts, time.Now())
		}
		mu.Unlock()
		if !first {
			http.Error(w, "gone", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		acceptConfig(t, conn, "stream-1")
		conn.Close()
	}))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	sess := NewSession(Config{
		URL: url,
		Reconnect: &ReconnectConfig{
			Enabled:      true,
			InitialDelay: 40 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
			MaxRetries:   3,
			Jitter:       0,
		},
	})

	errEvents := make(chan any, 1)
	sess.On("error", func(payload any) { errEvents <- payload })

	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	select {
	case payload := <-errEvents:
		var reconnectErr *core.ReconnectError
		if !errors.As(payload.(error), &reconnectErr) || reconnectErr.Attempts != 3 {
			t.Fatalf("error payload=%v, want exhaustion after 3 attempts", payload)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reconnect attempts never exhausted")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 3 {
		t.Fatalf("attempts=%d, want 3", len(attempts))
	}
	firstGap := attempts[1].Sub(attempts[0])
	secondGap := attempts[2].Sub(attempts[1])
	if secondGap < firstGap {
		t.Fatalf("backoff gaps %v then %v, want non-decreasing", firstGap, secondGap)
	}
}

func TestSessionTTFBRecordedAfterSpeak(t *testing.T) {
	t.Parallel()

	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		acceptConfig(t, conn, "stream-1")
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame["type"] == "speak" {
			conn.WriteMessage(websocket.BinaryMessage, []byte("audio"))
		}
		conn.ReadMessage()
	})

	sess := NewSession(Config{URL: url})
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Disconnect()

	if err := sess.Speak("measure me", SpeakOptions{}); err != nil {
		t.Fatalf("speak: %v", err)
	}

	select {
	case <-sess.Events():
	case <-time.After(time.Second):
		t.Fatal("no audio event")
	}

	if sess.Metrics().TTSTimeToFirstByte.Count != 1 {
		t.Fatalf("ttfb count=%d, want 1", sess.Metrics().TTSTimeToFirstByte.Count)
	}
}

func TestSessionMalformedFramesDropped(t *testing.T) {
	t.Parallel()

	url := newGatewayTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		acceptConfig(t, conn, "stream-1")
		conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
		conn.WriteJSON(map[string]any{"type": "unknown_type"})
		conn.WriteJSON(map[string]any{"type": "tts_audio", "audio": "!!!not-base64!!!"})
		conn.WriteJSON(map[string]any{"type": "stt_result", "transcript": "survivor", "is_final": true})
		conn.ReadMessage()
	})

	sess := NewSession(Config{URL: url})
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sess.Disconnect()

	select {
	case ev := <-sess.Events():
		transcript, ok := ev.(TranscriptEvent)
		if !ok || transcript.Result.Text != "survivor" {
			t.Fatalf("first event = %#v, want the surviving transcript", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("surviving frame never arrived")
	}
}

func TestConfigFrameJSON(t *testing.T) {
	t.Parallel()

	stt := types.DefaultSTTConfig()
	frame := newConfigFrame(&stt, nil, &types.LiveKitConfig{RoomName: "room-1", Identity: "caller"})

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := decoded["tts_config"]; present {
		t.Fatal("tts_config should be omitted when nil")
	}
	livekit, ok := decoded["livekit"].(map[string]any)
	if !ok || livekit["room_name"] != "room-1" {
		t.Fatalf("livekit = %v, want room-1", decoded["livekit"])
	}
}
