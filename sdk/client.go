// Package foundry provides the Bud Foundry SDK for Go.
//
// The SDK talks to a Bud Foundry gateway: streaming speech-to-text,
// text-to-speech, and full-duplex voice conversations over websocket, plus a
// REST surface for voices, recordings, rooms, and telephony hooks.
package foundry

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/bud-foundry/foundry-go/pkg/core"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
	"github.com/bud-foundry/foundry-go/pkg/core/ws"
)

const defaultBaseURL = "http://localhost:8000"

// Client is the main entry point for the SDK.
type Client struct {
	STT        *STTService
	TTS        *TTSService
	Talk       *TalkService
	Transcribe *TranscribeService
	Realtime   *RealtimeService
	Voices     *VoicesService
	Recordings *RecordingsService
	LiveKit    *LiveKitService
	SIP        *SIPService
	DAG        *DAGService
	Providers  *ProvidersService

	// Internal
	baseURL        string
	wsURL          string
	apiKey         string
	httpClient     *http.Client
	logger         *slog.Logger
	tracer         trace.Tracer
	connectTimeout time.Duration
	reconnect      *ws.ReconnectConfig
}

// NewClient creates a client against the given gateway base URL. An empty
// URL targets a local gateway. A ws(s) URL is accepted too and mapped back
// to its REST base.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if strings.HasPrefix(baseURL, "ws://") || strings.HasPrefix(baseURL, "wss://") {
		baseURL = deriveHTTPURL(baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newDefaultHTTPClient(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.wsURL = deriveWSURL(c.baseURL)

	c.STT = &STTService{client: c}
	c.TTS = &TTSService{client: c}
	c.Talk = &TalkService{client: c}
	c.Transcribe = &TranscribeService{client: c}
	c.Realtime = &RealtimeService{client: c}
	c.Voices = &VoicesService{client: c}
	c.Recordings = &RecordingsService{client: c}
	c.LiveKit = &LiveKitService{client: c}
	c.SIP = &SIPService{client: c}
	c.DAG = &DAGService{client: c}
	c.Providers = &ProvidersService{client: c}
	return c
}

// BaseURL returns the REST base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// WSURL returns the streaming endpoint derived from the base URL.
func (c *Client) WSURL() string { return c.wsURL }

// deriveWSURL maps the REST base URL to the streaming endpoint:
// http(s) becomes ws(s) and the /ws path is appended.
func deriveWSURL(baseURL string) string {
	wsURL := baseURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	return strings.TrimRight(wsURL, "/") + "/ws"
}

// deriveHTTPURL is the inverse mapping, for clients constructed from a raw
// websocket URL.
func deriveHTTPURL(wsURL string) string {
	httpURL := wsURL
	switch {
	case strings.HasPrefix(httpURL, "wss://"):
		httpURL = "https://" + strings.TrimPrefix(httpURL, "wss://")
	case strings.HasPrefix(httpURL, "ws://"):
		httpURL = "http://" + strings.TrimPrefix(httpURL, "ws://")
	}
	return strings.TrimSuffix(strings.TrimRight(httpURL, "/"), "/ws")
}

// validateSTTProvider rejects a named provider the gateway does not ship
// with. An empty name means the gateway default and is always accepted.
func validateSTTProvider(cfg *types.STTConfig) error {
	if cfg == nil || cfg.Provider == "" || types.IsValidSTTProvider(cfg.Provider) {
		return nil
	}
	return core.NewConfigurationError(
		fmt.Sprintf("unknown stt provider %q", cfg.Provider), "provider")
}

func validateTTSProvider(cfg *types.TTSConfig) error {
	if cfg == nil || cfg.Provider == "" || types.IsValidTTSProvider(cfg.Provider) {
		return nil
	}
	return core.NewConfigurationError(
		fmt.Sprintf("unknown tts provider %q", cfg.Provider), "provider")
}

func (c *Client) sessionConfig(stt *types.STTConfig, tts *types.TTSConfig, livekit *types.LiveKitConfig) ws.Config {
	return ws.Config{
		URL:            c.wsURL,
		APIKey:         c.apiKey,
		STT:            stt,
		TTS:            tts,
		LiveKit:        livekit,
		ConnectTimeout: c.connectTimeout,
		Reconnect:      c.reconnect,
		Logger:         c.logger,
	}
}
