package realtime

import (
	"encoding/base64"
	"encoding/json"

	"github.com/bud-foundry/foundry-go/pkg/core"
)

// humeProtocol speaks the Hume EVI dialect: input audio is raw binary,
// output audio is base64 JSON, and transcripts carry prosody scores.
type humeProtocol struct{}

func (p *humeProtocol) sessionConfig(cfg *Config, tools []Tool) any {
	version := cfg.EVIVersion
	if version == "" {
		version = defaultEVIVersion
	}

	settings := map[string]any{
		"type":                  "session_settings",
		"system_prompt":         cfg.SystemPrompt,
		"evi_version":           version,
		"verbose_transcription": cfg.VerboseTranscription,
	}
	if cfg.ResumedChatGroupID != "" {
		settings["resumed_chat_group_id"] = cfg.ResumedChatGroupID
	}
	if cfg.VoiceID != "" {
		settings["voice_id"] = cfg.VoiceID
	}
	if len(tools) > 0 {
		toolDefs := make([]map[string]any, 0, len(tools))
		for _, tool := range tools {
			toolDefs = append(toolDefs, map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			})
		}
		settings["tools"] = toolDefs
	}

	return settings
}

func (p *humeProtocol) audioFrames(audio []byte) []frame {
	return []frame{binaryFrame(audio)}
}

func (p *humeProtocol) textFrames(text string) []frame {
	return []frame{jsonFrame(map[string]any{"type": "user_message", "text": text})}
}

func (p *humeProtocol) functionResultFrames(callID string, result any) ([]frame, error) {
	content, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return []frame{jsonFrame(map[string]any{
		"type":         "tool_response",
		"tool_call_id": callID,
		"content":      string(content),
	})}, nil
}

func (p *humeProtocol) interruptFrames() []frame {
	return []frame{jsonFrame(map[string]any{"type": "user_interruption"})}
}

// Hume manages turn boundaries itself.
func (p *humeProtocol) commitFrames() []frame { return nil }

type humeMessage struct {
	Type    string `json:"type"`
	Data    string `json:"data"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Models struct {
		Prosody struct {
			Scores map[string]float64 `json:"scores"`
		} `json:"prosody"`
	} `json:"models"`
	Name       string `json:"name"`
	Parameters string `json:"parameters"`
	ToolCallID string `json:"tool_call_id"`
	Error      string `json:"error"`
	Code       string `json:"code"`
}

func (p *humeProtocol) handleText(data []byte) []any {
	var msg humeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}

	switch msg.Type {
	case "audio":
		audio, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return nil
		}
		return []any{AudioEvent{Audio: audio}}

	case "user_message", "assistant_message":
		role := "user"
		if msg.Type == "assistant_message" {
			role = "assistant"
		}
		events := []any{TranscriptEvent{Text: msg.Message.Content, IsFinal: true, Role: role}}
		if emotion, ok := dominantEmotion(msg.Models.Prosody.Scores); ok {
			events = append(events, emotion)
		}
		return events

	case "tool_call":
		params := map[string]any{}
		if msg.Parameters != "" {
			if err := json.Unmarshal([]byte(msg.Parameters), &params); err != nil {
				params = map[string]any{}
			}
		}
		return []any{FunctionCallEvent{Name: msg.Name, Arguments: params, CallID: msg.ToolCallID}}

	case "error":
		message := msg.Error
		if message == "" {
			message = "unknown provider error"
		}
		return []any{core.NewGatewayError(message, msg.Code)}
	}

	return nil
}

// dominantEmotion reduces prosody scores to the highest-scoring emotion.
func dominantEmotion(scores map[string]float64) (EmotionEvent, bool) {
	if len(scores) == 0 {
		return EmotionEvent{}, false
	}

	dominant := ""
	best := 0.0
	for name, score := range scores {
		if dominant == "" || score > best {
			dominant = name
			best = score
		}
	}

	copied := make(map[string]float64, len(scores))
	for name, score := range scores {
		copied[name] = score
	}
	return EmotionEvent{Emotions: copied, Dominant: dominant, Confidence: best}, true
}
