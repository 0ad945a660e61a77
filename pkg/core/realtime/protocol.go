package realtime

// frame is one outbound websocket message, either raw binary audio or a JSON
// payload.
type frame struct {
	binary bool
	data   []byte
	json   any
}

func jsonFrame(v any) frame      { return frame{json: v} }
func binaryFrame(b []byte) frame { return frame{binary: true, data: b} }

// protocol translates between the neutral session surface and one provider's
// wire format. Inbound handlers return the events to dispatch, in order;
// entries are AudioEvent, TranscriptEvent, FunctionCallEvent, EmotionEvent,
// or error values.
type protocol interface {
	// sessionConfig builds the configuration frame pushed after connect and
	// whenever the tool set changes.
	sessionConfig(cfg *Config, tools []Tool) any

	audioFrames(audio []byte) []frame
	textFrames(text string) []frame
	functionResultFrames(callID string, result any) ([]frame, error)
	interruptFrames() []frame

	// commitFrames returns nil when the provider has no commit operation.
	commitFrames() []frame

	handleText(data []byte) []any
}

func protocolFor(p Provider) (protocol, bool) {
	switch p {
	case ProviderOpenAI:
		return &openaiProtocol{}, true
	case ProviderHume:
		return &humeProtocol{}, true
	default:
		return nil, false
	}
}
