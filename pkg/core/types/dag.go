package types

// DAG pipeline definitions. Validation runs server-side; these types model
// the definitions sent to and returned from the gateway.

// DAGNodeType enumerates node kinds supported in DAG definitions.
type DAGNodeType string

const (
	DAGNodeAudioInput   DAGNodeType = "audio_input"
	DAGNodeAudioOutput  DAGNodeType = "audio_output"
	DAGNodeTextInput    DAGNodeType = "text_input"
	DAGNodeTextOutput   DAGNodeType = "text_output"
	DAGNodeSTTProvider  DAGNodeType = "stt_provider"
	DAGNodeTTSProvider  DAGNodeType = "tts_provider"
	DAGNodeLLM          DAGNodeType = "llm"
	DAGNodeHTTPEndpoint DAGNodeType = "http_endpoint"
	DAGNodeWebhook      DAGNodeType = "webhook"
	DAGNodeTransform    DAGNodeType = "transform"
	DAGNodeRouter       DAGNodeType = "router"
	DAGNodeBuffer       DAGNodeType = "buffer"
	DAGNodeSwitch       DAGNodeType = "switch"
)

// DAGNode is a node in a DAG pipeline.
type DAGNode struct {
	ID     string         `json:"id"`
	Type   DAGNodeType    `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// DAGEdge connects two nodes. Condition is an optional expression evaluated
// by the gateway's routing engine.
type DAGEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
}

// DAGDefinition is a complete DAG pipeline definition.
type DAGDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Nodes       []DAGNode      `json:"nodes"`
	Edges       []DAGEdge      `json:"edges"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// DAGValidationResult is the gateway's verdict on a DAG definition.
type DAGValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
