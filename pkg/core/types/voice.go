// Package types holds shared configuration and result types for the
// Bud Foundry gateway protocol.
package types

// STTConfig configures speech-to-text for a streaming session.
type STTConfig struct {
	Provider         string   `json:"provider"`
	Language         string   `json:"language"`
	Model            string   `json:"model,omitempty"`
	SampleRate       int      `json:"sample_rate"`
	Encoding         string   `json:"encoding"`
	Channels         int      `json:"channels"`
	InterimResults   bool     `json:"interim_results"`
	Punctuate        bool     `json:"punctuate"`
	ProfanityFilter  bool     `json:"profanity_filter"`
	SmartFormat      bool     `json:"smart_format"`
	Diarize          bool     `json:"diarize"`
	Keywords         []string `json:"keywords,omitempty"`
	CustomVocabulary []string `json:"custom_vocabulary,omitempty"`
}

// DefaultSTTConfig returns an STTConfig with gateway defaults applied.
func DefaultSTTConfig() STTConfig {
	return STTConfig{
		Provider:       "deepgram",
		Language:       "en-US",
		SampleRate:     16000,
		Encoding:       "linear16",
		Channels:       1,
		InterimResults: true,
		Punctuate:      true,
		SmartFormat:    true,
	}
}

// TTSConfig configures text-to-speech for a streaming session.
type TTSConfig struct {
	Provider    string `json:"provider"`
	Voice       string `json:"voice,omitempty"`
	VoiceID     string `json:"voice_id,omitempty"`
	Model       string `json:"model,omitempty"`
	SampleRate  int    `json:"sample_rate"`
	AudioFormat string `json:"audio_format,omitempty"`

	Speed  float64 `json:"speed,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Volume float64 `json:"volume,omitempty"`

	// ElevenLabs voice tuning.
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarity_boost,omitempty"`
	Style           float64 `json:"style,omitempty"`

	// Hume Octave.
	ActingInstructions string  `json:"acting_instructions,omitempty"`
	VoiceDescription   string  `json:"voice_description,omitempty"`
	TrailingSilence    float64 `json:"trailing_silence,omitempty"`
	InstantMode        bool    `json:"instant_mode,omitempty"`
}

// DefaultTTSConfig returns a TTSConfig with gateway defaults applied.
func DefaultTTSConfig() TTSConfig {
	return TTSConfig{
		Provider:    "deepgram",
		SampleRate:  24000,
		AudioFormat: "linear16",
	}
}

// LiveKitConfig joins the session to a LiveKit room.
type LiveKitConfig struct {
	RoomName string `json:"room_name"`
	Identity string `json:"identity,omitempty"`
	Name     string `json:"name,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

// FeatureFlags toggles audio processing features on a session.
type FeatureFlags struct {
	VAD                bool `json:"vad"`
	NoiseCancellation  bool `json:"noise_cancellation"`
	SpeakerDiarization bool `json:"speaker_diarization"`
	InterimResults     bool `json:"interim_results"`
	Punctuation        bool `json:"punctuation"`
	ProfanityFilter    bool `json:"profanity_filter"`
	SmartFormat        bool `json:"smart_format"`
	WordTimestamps     bool `json:"word_timestamps"`
	EchoCancellation   bool `json:"echo_cancellation"`
	FillerWords        bool `json:"filler_words"`
}

// DefaultFeatureFlags returns the gateway's default feature set.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{
		VAD:              true,
		InterimResults:   true,
		Punctuation:      true,
		SmartFormat:      true,
		EchoCancellation: true,
	}
}

// Word carries word-level transcription timing.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
	SpeakerID  int     `json:"speaker_id,omitempty"`
}

// STTResult is a transcription result from the gateway.
type STTResult struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence,omitempty"`
	SpeakerID  int     `json:"speaker_id,omitempty"`
	Language   string  `json:"language,omitempty"`
	StartTime  float64 `json:"start_time,omitempty"`
	EndTime    float64 `json:"end_time,omitempty"`
	Words      []Word  `json:"words,omitempty"`
}

// AudioEvent is a chunk of synthesized audio from the gateway.
type AudioEvent struct {
	Audio      []byte `json:"audio"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	IsFinal    bool   `json:"is_final,omitempty"`
	Sequence   int    `json:"sequence,omitempty"`
}

// Voice describes a TTS voice exposed by a provider.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Language    string `json:"language,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	IsCloned    bool   `json:"is_cloned,omitempty"`
}
