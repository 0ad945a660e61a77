package types

// DTOs for the gateway's REST surface: LiveKit, SIP, recordings, voice
// cloning, and plugin discovery.

// LiveKitToken is the response from token generation.
type LiveKitToken struct {
	Token      string `json:"token"`
	RoomName   string `json:"room_name"`
	Identity   string `json:"identity"`
	LiveKitURL string `json:"livekit_url,omitempty"`
}

// RoomInfo describes a LiveKit room.
type RoomInfo struct {
	Name            string `json:"name"`
	SID             string `json:"sid"`
	CreationTime    int64  `json:"creation_time"`
	NumParticipants int    `json:"num_participants"`
	ActiveRecording bool   `json:"active_recording"`
}

// SIPHook maps a SIP host to a webhook for incoming calls.
type SIPHook struct {
	Host       string `json:"host"`
	WebhookURL string `json:"webhook_url"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	Created    bool   `json:"created,omitempty"`
}

// RecordingInfo describes a stored session recording.
type RecordingInfo struct {
	StreamID   string  `json:"stream_id"`
	RoomName   string  `json:"room_name,omitempty"`
	Duration   float64 `json:"duration"`
	Size       int64   `json:"size"`
	Format     string  `json:"format"`
	CreatedAt  string  `json:"created_at"`
	Status     string  `json:"status"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	BitDepth   int     `json:"bit_depth,omitempty"`
}

// RecordingFilter narrows a recording listing. Dates are ISO 8601 strings;
// zero values are omitted from the query.
type RecordingFilter struct {
	Limit    int
	Offset   int
	Status   string
	FromDate string
	ToDate   string
}

// RecordingList is a paginated recording listing.
type RecordingList struct {
	Recordings []RecordingInfo `json:"recordings"`
	Total      int             `json:"total"`
	HasMore    bool            `json:"has_more"`
}

// VoiceClone is the result of a voice cloning operation.
type VoiceClone struct {
	VoiceID   string `json:"voice_id"`
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// LanguageInfo pairs a language code with its human-readable name.
type LanguageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ProviderMetrics carries usage counters for a provider plugin.
type ProviderMetrics struct {
	CallCount     int64   `json:"call_count"`
	ErrorCount    int64   `json:"error_count"`
	ErrorRate     float64 `json:"error_rate"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// ProviderInfo is the provider metadata returned by plugin discovery.
type ProviderInfo struct {
	ID             string           `json:"id"`
	DisplayName    string           `json:"display_name"`
	ProviderType   string           `json:"provider_type"`
	Description    string           `json:"description,omitempty"`
	Version        string           `json:"version,omitempty"`
	Features       []string         `json:"features,omitempty"`
	Languages      []LanguageInfo   `json:"languages,omitempty"`
	Models         []string         `json:"models,omitempty"`
	Aliases        []string         `json:"aliases,omitempty"`
	RequiredConfig []string         `json:"required_config,omitempty"`
	OptionalConfig []string         `json:"optional_config,omitempty"`
	Health         string           `json:"health,omitempty"`
	Metrics        *ProviderMetrics `json:"metrics,omitempty"`
}

// HasFeature reports whether the provider advertises a feature.
func (p ProviderInfo) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// IsAvailable reports whether the provider is healthy or degraded.
func (p ProviderInfo) IsAvailable() bool {
	return p.Health == "" || p.Health == "healthy" || p.Health == "degraded"
}

// ProcessorInfo describes an audio processor plugin.
type ProcessorInfo struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	SupportedFormats []string `json:"supported_formats,omitempty"`
}

// PluginList is the response from the plugins endpoint.
type PluginList struct {
	STT        []ProviderInfo  `json:"stt"`
	TTS        []ProviderInfo  `json:"tts"`
	Realtime   []ProviderInfo  `json:"realtime"`
	Processors []ProcessorInfo `json:"processors"`
	TotalCount int             `json:"total_count"`
}

// HealthStatus is the gateway health response.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  int64  `json:"uptime,omitempty"`
}
