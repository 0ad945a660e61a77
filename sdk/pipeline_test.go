package foundry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
	"github.com/bud-foundry/foundry-go/pkg/core/ws"
)

// newStreamTestClient starts a fake gateway serving websocket sessions on
// /ws and returns a client pointed at it.
func newStreamTestClient(t *testing.T, fn func(conn *websocket.Conn)) *Client {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		fn(conn)
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL)
}

// acceptSession reads the config frame and answers ready.
func acceptSession(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var config map[string]any
	if err := conn.ReadJSON(&config); err != nil {
		t.Errorf("read config: %v", err)
		return nil
	}
	if err := conn.WriteJSON(map[string]any{"type": "ready", "stream_id": "stream-1"}); err != nil {
		t.Errorf("write ready: %v", err)
	}
	return config
}

func TestSTTSessionResults(t *testing.T) {
	t.Parallel()

	c := newStreamTestClient(t, func(conn *websocket.Conn) {
		config := acceptSession(t, conn)
		if _, present := config["tts_config"]; present {
			t.Error("stt session should not carry tts config")
		}

		// Read one audio chunk, then emit interim and final transcripts.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteJSON(map[string]any{"type": "stt_result", "transcript": "hello", "is_final": false})
		conn.WriteJSON(map[string]any{"type": "stt_result", "transcript": "hello world", "is_final": true, "confidence": 0.95})
		conn.ReadMessage()
	})

	session, err := c.STT.Connect(context.Background(), STTOptions{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	if err := session.SendAudio([]byte("pcm")); err != nil {
		t.Fatalf("send audio: %v", err)
	}

	results := session.Results()
	first := <-results
	if first.Text != "hello" || first.IsFinal {
		t.Fatalf("first=%+v", first)
	}
	second := <-results
	if second.Text != "hello world" || !second.IsFinal || second.Confidence != 0.95 {
		t.Fatalf("second=%+v", second)
	}
}

func TestSTTTranscribeStream(t *testing.T) {
	t.Parallel()

	c := newStreamTestClient(t, func(conn *websocket.Conn) {
		acceptSession(t, conn)
		for i := 0; i < 2; i++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
		conn.WriteJSON(map[string]any{"type": "stt_result", "transcript": "streamed", "is_final": true})
		conn.ReadMessage()
	})

	session := c.STT.NewSession(STTOptions{})
	defer session.Close()

	audio := make(chan []byte, 2)
	audio <- []byte("chunk-1")
	audio <- []byte("chunk-2")
	close(audio)

	results, err := session.TranscribeStream(context.Background(), audio)
	if err != nil {
		t.Fatalf("transcribe stream: %v", err)
	}

	select {
	case result := <-results:
		if result.Text != "streamed" {
			t.Fatalf("result=%+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no transcription result")
	}
}

func TestTTSSessionAudio(t *testing.T) {
	t.Parallel()

	c := newStreamTestClient(t, func(conn *websocket.Conn) {
		config := acceptSession(t, conn)
		if _, present := config["stt_config"]; present {
			t.Error("tts session should not carry stt config")
		}

		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame["type"] != "speak" || frame["text"] != "hello" {
			t.Errorf("speak frame=%v", frame)
		}
		conn.WriteMessage(websocket.BinaryMessage, []byte("chunk-a"))
		conn.WriteMessage(websocket.BinaryMessage, []byte("chunk-b"))
		conn.WriteJSON(map[string]any{"type": "tts_playback_complete", "timestamp": 1.0})
		conn.ReadMessage()
	})

	session, err := c.TTS.Connect(context.Background(), TTSOptions{
		Config: &types.TTSConfig{Provider: "deepgram", SampleRate: 16000},
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	if err := session.Speak("hello", ws.SpeakOptions{Flush: true}); err != nil {
		t.Fatalf("speak: %v", err)
	}

	audio := session.Audio()
	for i, want := range []string{"chunk-a", "chunk-b"} {
		select {
		case chunk := <-audio:
			if string(chunk.Audio) != want {
				t.Fatalf("chunk %d = %q, want %q", i, chunk.Audio, want)
			}
			if chunk.SampleRate != 16000 {
				t.Fatalf("sample rate=%d, want configured 16000", chunk.SampleRate)
			}
		case <-time.After(time.Second):
			t.Fatalf("chunk %d never arrived", i)
		}
	}
}

func TestTalkSessionFullDuplex(t *testing.T) {
	t.Parallel()

	c := newStreamTestClient(t, func(conn *websocket.Conn) {
		config := acceptSession(t, conn)
		if _, present := config["stt_config"]; !present {
			t.Error("talk session must carry stt config")
		}
		if _, present := config["tts_config"]; !present {
			t.Error("talk session must carry tts config")
		}

		// Caller audio in, transcript + agent audio out.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteJSON(map[string]any{"type": "stt_result", "transcript": "hi agent", "is_final": true})
		conn.WriteMessage(websocket.BinaryMessage, []byte("agent-voice"))
		conn.ReadMessage()
	})

	session, err := c.Talk.Connect(context.Background(), TalkOptions{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	if session.StreamID() != "stream-1" {
		t.Fatalf("stream id=%q", session.StreamID())
	}
	if err := session.SendAudio([]byte("caller-voice")); err != nil {
		t.Fatalf("send audio: %v", err)
	}

	events := session.Events()

	select {
	case ev := <-events:
		transcript, ok := ev.(ws.TranscriptEvent)
		if !ok || transcript.Result.Text != "hi agent" {
			t.Fatalf("event=%#v, want transcript", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("transcript never arrived")
	}

	select {
	case ev := <-events:
		audio, ok := ev.(ws.AudioChunkEvent)
		if !ok || string(audio.Audio.Audio) != "agent-voice" {
			t.Fatalf("event=%#v, want audio", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("agent audio never arrived")
	}
}
