// Package ws implements the streaming websocket session against the
// Bud Foundry gateway, including its wire protocol and per-session metrics.
package ws

import (
	"encoding/json"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

const (
	defaultSTTModel = "nova-3"
	defaultTTSModel = "aura-asteria-en"
)

// Outbound frames.

type configFrame struct {
	Type    string               `json:"type"`
	Audio   bool                 `json:"audio"`
	STT     *sttConfigFrame      `json:"stt_config,omitempty"`
	TTS     *ttsConfigFrame      `json:"tts_config,omitempty"`
	LiveKit *types.LiveKitConfig `json:"livekit,omitempty"`
}

type sttConfigFrame struct {
	Provider    string `json:"provider"`
	Language    string `json:"language"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	Punctuation bool   `json:"punctuation"`
	Encoding    string `json:"encoding"`
	Model       string `json:"model"`
}

type ttsConfigFrame struct {
	Provider   string `json:"provider"`
	VoiceID    string `json:"voice_id,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Model      string `json:"model"`
}

func newConfigFrame(stt *types.STTConfig, tts *types.TTSConfig, livekit *types.LiveKitConfig) configFrame {
	frame := configFrame{Type: "config", Audio: true, LiveKit: livekit}

	if stt != nil {
		model := stt.Model
		if model == "" {
			model = defaultSTTModel
		}
		frame.STT = &sttConfigFrame{
			Provider:    stt.Provider,
			Language:    stt.Language,
			SampleRate:  stt.SampleRate,
			Channels:    stt.Channels,
			Punctuation: stt.Punctuate,
			Encoding:    stt.Encoding,
			Model:       model,
		}
	}

	if tts != nil {
		model := tts.Model
		if model == "" {
			model = defaultTTSModel
		}
		voiceID := tts.VoiceID
		if voiceID == "" {
			voiceID = tts.Voice
		}
		frame.TTS = &ttsConfigFrame{
			Provider:   tts.Provider,
			VoiceID:    voiceID,
			SampleRate: tts.SampleRate,
			Model:      model,
		}
	}

	return frame
}

type speakFrame struct {
	Type              string `json:"type"`
	Text              string `json:"text"`
	Flush             bool   `json:"flush"`
	AllowInterruption bool   `json:"allow_interruption"`
}

type clearFrame struct {
	Type string `json:"type"`
}

type sendMessageFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Role    string `json:"role"`
	Topic   string `json:"topic,omitempty"`
}

type sipTransferFrame struct {
	Type       string `json:"type"`
	TransferTo string `json:"transfer_to"`
}

type pingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// Inbound frames. Every JSON frame carries a type tag; unknown or malformed
// frames are dropped by the receive loop.

type serverEnvelope struct {
	Type string `json:"type"`
}

type serverReady struct {
	StreamID string `json:"stream_id"`
}

type serverSTTResult struct {
	Transcript string  `json:"transcript"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
	SpeakerID  int     `json:"speaker_id"`
}

type serverTTSAudio struct {
	Audio      string `json:"audio"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

type serverPlaybackComplete struct {
	Timestamp float64 `json:"timestamp"`
}

type serverMessage struct {
	Message map[string]any `json:"message"`
}

type serverParticipantDisconnected struct {
	Participant map[string]any `json:"participant"`
}

type serverError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type serverPong struct {
	Timestamp int64 `json:"timestamp"`
}

// Event is a classified frame from the gateway, delivered via Events().
type Event interface {
	eventType() string
}

// ReadyEvent signals the gateway accepted the session configuration.
type ReadyEvent struct {
	StreamID string
}

func (e ReadyEvent) eventType() string { return "ready" }

// TranscriptEvent carries a transcription result.
type TranscriptEvent struct {
	Result types.STTResult
}

func (e TranscriptEvent) eventType() string { return "transcript" }

// AudioChunkEvent carries synthesized audio, from either a binary frame or a
// base64 tts_audio frame.
type AudioChunkEvent struct {
	Audio types.AudioEvent
}

func (e AudioChunkEvent) eventType() string { return "audio" }

// PlaybackCompleteEvent signals the gateway finished TTS playback.
type PlaybackCompleteEvent struct {
	Timestamp float64
}

func (e PlaybackCompleteEvent) eventType() string { return "playback_complete" }

// MessageEvent carries a data message from another participant.
type MessageEvent struct {
	Message map[string]any
}

func (e MessageEvent) eventType() string { return "message" }

// ParticipantDisconnectedEvent signals a participant left the room.
type ParticipantDisconnectedEvent struct {
	Participant map[string]any
}

func (e ParticipantDisconnectedEvent) eventType() string { return "participant_disconnected" }

// ErrorEvent carries a gateway error frame or a terminal session error.
type ErrorEvent struct {
	Err error
}

func (e ErrorEvent) eventType() string { return "error" }

// PongEvent answers a ping.
type PongEvent struct {
	Timestamp int64
}

func (e PongEvent) eventType() string { return "pong" }

func decodeEnvelope(data []byte) (string, bool) {
	var env serverEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", false
	}
	return env.Type, true
}
