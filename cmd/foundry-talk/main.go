// foundry-talk is a terminal client for a Bud Foundry gateway: it opens a
// full-duplex voice session, streams a WAV file (or stdin PCM) as caller
// audio, and prints transcripts and agent events as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	foundry "github.com/bud-foundry/foundry-go/sdk"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
	"github.com/bud-foundry/foundry-go/pkg/core/ws"
)

type options struct {
	gateway     string
	apiKey      string
	audioFile   string
	say         string
	sttProvider string
	ttsProvider string
	voiceID     string
	language    string
	debug       bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	_ = godotenv.Load()

	var opt options
	flag.StringVar(&opt.gateway, "gateway", envOr("FOUNDRY_GATEWAY_URL", "http://localhost:8000"), "Gateway base URL (also reads FOUNDRY_GATEWAY_URL)")
	flag.StringVar(&opt.apiKey, "api-key", strings.TrimSpace(os.Getenv("FOUNDRY_API_KEY")), "Gateway API key (also reads FOUNDRY_API_KEY)")
	flag.StringVar(&opt.audioFile, "audio", "", "WAV file to stream as caller audio; '-' reads raw PCM from stdin")
	flag.StringVar(&opt.say, "say", "", "Text for the agent to speak at session start")
	flag.StringVar(&opt.sttProvider, "stt-provider", "deepgram", "Speech-to-text provider")
	flag.StringVar(&opt.ttsProvider, "tts-provider", "deepgram", "Text-to-speech provider")
	flag.StringVar(&opt.voiceID, "voice-id", "", "TTS voice ID (provider default when empty)")
	flag.StringVar(&opt.language, "lang", "en-US", "Transcription language")
	flag.BoolVar(&opt.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opt.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opt, logger); err != nil {
		logger.Error("session failed", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opt options, logger *slog.Logger) error {
	client := foundry.NewClient(opt.gateway,
		foundry.WithAPIKey(opt.apiKey),
		foundry.WithLogger(logger),
	)

	stt := types.DefaultSTTConfig()
	stt.Provider = opt.sttProvider
	stt.Language = opt.language
	tts := types.DefaultTTSConfig()
	tts.Provider = opt.ttsProvider
	tts.VoiceID = opt.voiceID

	session, err := client.Talk.Connect(ctx, foundry.TalkOptions{STT: &stt, TTS: &tts})
	if err != nil {
		return err
	}
	defer session.Close()

	logger.Info("session ready", "stream_id", session.StreamID())

	if opt.say != "" {
		if err := session.Speak(opt.say, ws.SpeakOptions{Flush: true}); err != nil {
			return err
		}
	}

	if opt.audioFile != "" {
		go streamAudio(opt.audioFile, session, logger)
	}

	var agentAudioBytes int
	for {
		select {
		case ev, ok := <-session.Events():
			if !ok {
				printMetrics(session.Metrics())
				return nil
			}
			switch e := ev.(type) {
			case ws.TranscriptEvent:
				marker := "…"
				if e.Result.IsFinal {
					marker = "✓"
				}
				fmt.Printf("%s %s\n", marker, e.Result.Text)
			case ws.AudioChunkEvent:
				agentAudioBytes += len(e.Audio.Audio)
				logger.Debug("agent audio", "bytes", len(e.Audio.Audio), "total", agentAudioBytes)
			case ws.PlaybackCompleteEvent:
				logger.Info("agent finished speaking")
			case ws.MessageEvent:
				fmt.Printf("@ %v\n", e.Message)
			case ws.ErrorEvent:
				logger.Error("gateway error", "error", e.Err)
			}
		case <-ctx.Done():
			printMetrics(session.Metrics())
			return session.Close()
		}
	}
}

// streamAudio paces caller audio into the session at roughly realtime for
// 16 kHz mono PCM.
func streamAudio(path string, session *foundry.TalkSession, logger *slog.Logger) {
	var source io.Reader
	if path == "-" {
		source = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			logger.Error("open audio", "path", path, "error", err)
			return
		}
		defer f.Close()
		source = f
	}

	buf := make([]byte, 3200) // 100ms of 16 kHz mono pcm16
	for {
		n, err := source.Read(buf)
		if n > 0 {
			if sendErr := session.SendAudio(buf[:n]); sendErr != nil {
				logger.Error("send audio", "error", sendErr)
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Error("read audio", "error", err)
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func printMetrics(m ws.SessionMetrics) {
	fmt.Printf("\nsession metrics:\n")
	fmt.Printf("  ws connect:     %.1f ms\n", m.WSConnectMS)
	fmt.Printf("  stt ttft p50:   %.1f ms (n=%d)\n", m.STTTimeToFirstToken.P50, m.STTTimeToFirstToken.Count)
	fmt.Printf("  tts ttfb p50:   %.1f ms (n=%d)\n", m.TTSTimeToFirstByte.P50, m.TTSTimeToFirstByte.Count)
	fmt.Printf("  audio sent:     %d bytes\n", m.AudioBytesSent)
	fmt.Printf("  audio received: %d bytes\n", m.AudioBytesReceived)
	fmt.Printf("  reconnects:     %d\n", m.ReconnectCount)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
