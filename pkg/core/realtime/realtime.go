// Package realtime implements speech-to-speech sessions against realtime
// voice AI providers. The wire protocols differ per provider; a session picks
// the matching translation at connect time and exposes one provider-neutral
// surface: audio in, audio/transcripts/function calls out.
package realtime

import (
	"log/slog"
	"time"
)

// State is the session lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
)

// Provider identifiers.
const (
	ProviderOpenAI Provider = "openai-realtime"
	ProviderHume   Provider = "hume-evi"
)

// Provider names a realtime backend.
type Provider string

const (
	defaultOpenAIModel = "gpt-4o-realtime-preview"
	defaultEVIVersion  = "3"
	defaultSendTimeout = 30 * time.Second
)

// TurnDetectionConfig tunes server-side voice activity detection.
type TurnDetectionConfig struct {
	Enabled           bool    `json:"enabled"`
	Threshold         float64 `json:"threshold"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
}

// DefaultTurnDetectionConfig returns server VAD with moderate sensitivity.
func DefaultTurnDetectionConfig() TurnDetectionConfig {
	return TurnDetectionConfig{
		Enabled:           true,
		Threshold:         0.5,
		SilenceDurationMS: 500,
		PrefixPaddingMS:   300,
	}
}

// Tool declares a function the model may call during the conversation.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Config configures a realtime Session.
type Config struct {
	Provider Provider
	URL      string
	APIKey   string

	// Model applies to OpenAI; defaults to gpt-4o-realtime-preview.
	Model string
	// EVIVersion applies to Hume; defaults to "3".
	EVIVersion string

	VoiceID              string
	SystemPrompt         string
	VerboseTranscription bool
	ResumedChatGroupID   string

	Temperature *float64
	MaxTokens   *int

	TurnDetection *TurnDetectionConfig

	// SendTimeout bounds each outbound write; defaults to 30s.
	SendTimeout time.Duration

	Logger *slog.Logger
}

// AudioEvent carries a chunk of synthesized model speech.
type AudioEvent struct {
	Audio []byte
}

// TranscriptEvent carries a transcript fragment from either side of the
// conversation. Role is "user" or "assistant".
type TranscriptEvent struct {
	Text    string
	IsFinal bool
	Role    string
}

// FunctionCallEvent signals the model invoked a declared tool.
type FunctionCallEvent struct {
	Name      string
	Arguments map[string]any
	CallID    string
}

// EmotionEvent carries prosody scores, available on Hume EVI transcripts.
type EmotionEvent struct {
	Emotions   map[string]float64
	Dominant   string
	Confidence float64
}

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
}
