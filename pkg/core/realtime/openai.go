package realtime

import (
	"encoding/base64"
	"encoding/json"

	"github.com/bud-foundry/foundry-go/pkg/core"
)

// openaiProtocol speaks the OpenAI Realtime API dialect: everything is JSON,
// audio travels base64-encoded, and text turns require an explicit
// response.create to trigger generation.
type openaiProtocol struct{}

func (p *openaiProtocol) sessionConfig(cfg *Config, tools []Tool) any {
	voice := cfg.VoiceID
	if voice == "" {
		voice = "alloy"
	}

	session := map[string]any{
		"modalities":          []string{"text", "audio"},
		"instructions":        cfg.SystemPrompt,
		"voice":               voice,
		"input_audio_format":  "pcm16",
		"output_audio_format": "pcm16",
	}

	toolDefs := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		toolDefs = append(toolDefs, map[string]any{
			"type":        "function",
			"name":        tool.Name,
			"description": tool.Description,
			"parameters":  tool.Parameters,
		})
	}
	session["tools"] = toolDefs
	if len(tools) > 0 {
		session["tool_choice"] = "auto"
	} else {
		session["tool_choice"] = "none"
	}

	if td := cfg.TurnDetection; td != nil && td.Enabled {
		session["turn_detection"] = map[string]any{
			"type":                "server_vad",
			"threshold":           td.Threshold,
			"silence_duration_ms": td.SilenceDurationMS,
			"prefix_padding_ms":   td.PrefixPaddingMS,
		}
	}
	if cfg.Temperature != nil {
		session["temperature"] = *cfg.Temperature
	}
	if cfg.MaxTokens != nil {
		session["max_response_output_tokens"] = *cfg.MaxTokens
	}

	return map[string]any{"type": "session.update", "session": session}
}

func (p *openaiProtocol) audioFrames(audio []byte) []frame {
	return []frame{jsonFrame(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(audio),
	})}
}

func (p *openaiProtocol) textFrames(text string) []frame {
	return []frame{
		jsonFrame(map[string]any{
			"type": "conversation.item.create",
			"item": map[string]any{
				"type": "message",
				"role": "user",
				"content": []map[string]any{
					{"type": "input_text", "text": text},
				},
			},
		}),
		jsonFrame(map[string]any{"type": "response.create"}),
	}
}

func (p *openaiProtocol) functionResultFrames(callID string, result any) ([]frame, error) {
	output, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return []frame{
		jsonFrame(map[string]any{
			"type": "conversation.item.create",
			"item": map[string]any{
				"type":    "function_call_output",
				"call_id": callID,
				"output":  string(output),
			},
		}),
		jsonFrame(map[string]any{"type": "response.create"}),
	}, nil
}

func (p *openaiProtocol) interruptFrames() []frame {
	return []frame{jsonFrame(map[string]any{"type": "response.cancel"})}
}

func (p *openaiProtocol) commitFrames() []frame {
	return []frame{jsonFrame(map[string]any{"type": "input_audio_buffer.commit"})}
}

func (p *openaiProtocol) handleText(data []byte) []any {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	switch env.Type {
	case "response.audio.delta":
		var msg struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil
		}
		audio, err := base64.StdEncoding.DecodeString(msg.Delta)
		if err != nil {
			return nil
		}
		return []any{AudioEvent{Audio: audio}}

	case "response.audio_transcript.delta":
		var msg struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil
		}
		return []any{TranscriptEvent{Text: msg.Delta, IsFinal: false, Role: "assistant"}}

	case "response.audio_transcript.done":
		var msg struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil
		}
		return []any{TranscriptEvent{Text: msg.Transcript, IsFinal: true, Role: "assistant"}}

	case "conversation.item.input_audio_transcription.completed":
		var msg struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil
		}
		return []any{TranscriptEvent{Text: msg.Transcript, IsFinal: true, Role: "user"}}

	case "response.function_call_arguments.done":
		var msg struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
			CallID    string `json:"call_id"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil
		}
		args := map[string]any{}
		if msg.Arguments != "" {
			if err := json.Unmarshal([]byte(msg.Arguments), &args); err != nil {
				args = map[string]any{}
			}
		}
		return []any{FunctionCallEvent{Name: msg.Name, Arguments: args, CallID: msg.CallID}}

	case "error":
		var msg struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil
		}
		message := msg.Error.Message
		if message == "" {
			message = "unknown provider error"
		}
		return []any{core.NewGatewayError(message, msg.Error.Code)}
	}

	return nil
}
