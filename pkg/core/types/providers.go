package types

// Static capability tables for the providers the gateway ships with. The
// live set is discoverable via the plugins endpoint; these tables let callers
// validate configuration without a round trip.

// STTCapabilities describes what a speech-to-text provider supports.
type STTCapabilities struct {
	Streaming   bool
	Diarization bool
	Languages   []string
	Models      []string
}

// TTSCapabilities describes what a text-to-speech provider supports.
type TTSCapabilities struct {
	Streaming    bool
	SSML         bool
	Emotion      bool
	VoiceCloning bool
	Languages    []string
	Models       []string
}

// RealtimeCapabilities describes what an audio-to-audio provider supports.
type RealtimeCapabilities struct {
	FunctionCalling  bool
	EmotionDetection bool
	Models           []string
	Voices           []string
}

var sttProviders = map[string]STTCapabilities{
	"deepgram": {
		Streaming:   true,
		Diarization: true,
		Languages:   []string{"en", "es", "fr", "de", "it", "pt", "nl", "ja", "ko", "zh"},
		Models:      []string{"nova-3", "nova-2", "enhanced", "base"},
	},
	"google": {
		Streaming:   true,
		Diarization: true,
		Languages:   []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:      []string{"default", "command_and_search", "phone_call", "video"},
	},
	"azure": {
		Streaming:   true,
		Diarization: true,
		Languages:   []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:      []string{"default"},
	},
	"cartesia": {
		Streaming: true,
		Languages: []string{"en"},
		Models:    []string{"default"},
	},
	"gateway": {
		Streaming:   true,
		Diarization: true,
		Languages:   []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:      []string{"whisper-large-v3", "whisper-medium", "whisper-small"},
	},
	"assemblyai": {
		Streaming:   true,
		Diarization: true,
		Languages:   []string{"en", "es", "fr", "de", "it", "pt"},
		Models:      []string{"default", "nano"},
	},
	"aws-transcribe": {
		Streaming:   true,
		Diarization: true,
		Languages:   []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:      []string{"default"},
	},
	"ibm-watson": {
		Streaming:   true,
		Diarization: true,
		Languages:   []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:      []string{"default"},
	},
	"groq": {
		Languages: []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:    []string{"whisper-large-v3-turbo"},
	},
	"openai-whisper": {
		Languages: []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:    []string{"whisper-1"},
	},
}

var ttsProviders = map[string]TTSCapabilities{
	"deepgram": {
		Streaming: true,
		Languages: []string{"en"},
		Models:    []string{"aura-asteria-en", "aura-luna-en", "aura-stella-en"},
	},
	"elevenlabs": {
		Streaming:    true,
		SSML:         true,
		Emotion:      true,
		VoiceCloning: true,
		Languages:    []string{"en", "es", "fr", "de", "it", "pt", "pl", "hi", "ar"},
		Models:       []string{"eleven_turbo_v2_5", "eleven_multilingual_v2", "eleven_monolingual_v1"},
	},
	"google": {
		Streaming: true,
		SSML:      true,
		Languages: []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:    []string{"en-US-Studio-O", "en-US-Wavenet-D"},
	},
	"azure": {
		Streaming:    true,
		SSML:         true,
		Emotion:      true,
		VoiceCloning: true,
		Languages:    []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:       []string{"en-US-JennyNeural", "en-US-GuyNeural"},
	},
	"cartesia": {
		Streaming:    true,
		Emotion:      true,
		VoiceCloning: true,
		Languages:    []string{"en"},
		Models:       []string{"sonic-3"},
	},
	"openai": {
		Streaming: true,
		Languages: []string{"en"},
		Models:    []string{"tts-1", "tts-1-hd"},
	},
	"aws-polly": {
		Streaming: true,
		SSML:      true,
		Languages: []string{"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh"},
		Models:    []string{"standard", "neural", "generative"},
	},
	"ibm-watson": {
		Streaming: true,
		SSML:      true,
		Emotion:   true,
		Languages: []string{"en", "es", "fr", "de", "it", "pt", "ja"},
		Models:    []string{"en-US_MichaelV3Voice", "en-US_AllisonV3Voice"},
	},
	"hume": {
		Streaming:    true,
		Emotion:      true,
		VoiceCloning: true,
		Languages:    []string{"en"},
		Models:       []string{"octave"},
	},
	"lmnt": {
		Streaming:    true,
		VoiceCloning: true,
		Languages:    []string{"en"},
		Models:       []string{"default"},
	},
	"playht": {
		Streaming:    true,
		Emotion:      true,
		VoiceCloning: true,
		Languages:    []string{"en"},
		Models:       []string{"PlayHT2.0", "PlayHT2.0-turbo"},
	},
	"kokoro": {
		Streaming: true,
		Languages: []string{"en", "ja", "ko", "zh"},
		Models:    []string{"kokoro-v1"},
	},
}

var realtimeProviders = map[string]RealtimeCapabilities{
	"openai-realtime": {
		FunctionCalling: true,
		Models:          []string{"gpt-4o-realtime-preview", "gpt-4o-mini-realtime-preview"},
		Voices:          []string{"alloy", "ash", "ballad", "coral", "echo", "sage", "shimmer", "verse"},
	},
	"hume-evi": {
		FunctionCalling:  true,
		EmotionDetection: true,
		Models:           []string{"evi-3", "evi-4-mini"},
	},
}

// IsValidSTTProvider reports whether the gateway knows the STT provider.
func IsValidSTTProvider(name string) bool {
	_, ok := sttProviders[name]
	return ok
}

// IsValidTTSProvider reports whether the gateway knows the TTS provider.
func IsValidTTSProvider(name string) bool {
	_, ok := ttsProviders[name]
	return ok
}

// IsValidRealtimeProvider reports whether the gateway knows the realtime provider.
func IsValidRealtimeProvider(name string) bool {
	_, ok := realtimeProviders[name]
	return ok
}

// STTProviderCapabilities returns the static capability table for an STT
// provider, if known.
func STTProviderCapabilities(name string) (STTCapabilities, bool) {
	caps, ok := sttProviders[name]
	return caps, ok
}

// TTSProviderCapabilities returns the static capability table for a TTS
// provider, if known.
func TTSProviderCapabilities(name string) (TTSCapabilities, bool) {
	caps, ok := ttsProviders[name]
	return caps, ok
}

// RealtimeProviderCapabilities returns the static capability table for a
// realtime provider, if known.
func RealtimeProviderCapabilities(name string) (RealtimeCapabilities, bool) {
	caps, ok := realtimeProviders[name]
	return caps, ok
}
