package hook

import (
	"encoding/json"
	"time"
)

// Notification names emitted by the host. Unknown names are accepted and
// recorded verbatim; these are only the ones the engine understands.
const (
	NameSystemContext   = "system-context-ready"
	NameParameters      = "parameters-ready"
	NameTurnStart       = "turn-start"
	NameToolBefore      = "tool-before"
	NameToolAfter       = "tool-after"
	NameTurnComplete    = "turn-complete"
	NameLifecycleSignal = "lifecycle-signal"
)

// Lifecycle signal names the flush policy reacts to by default.
const (
	SignalIdle = "idle"
	SignalEnd  = "end"
)

// Event is one hook notification as delivered by the host.
type Event struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Fragment is one content piece of a conversation message.
type Fragment struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message is one entry of the ordered conversation history carried by turn-start.
type Message struct {
	Role    string     `json:"role"`
	Content []Fragment `json:"content"`
}

type SystemContextPayload struct {
	Context []string `json:"context"`
}

type ParametersPayload struct {
	Model       string   `json:"model,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

type TurnStartPayload struct {
	Messages []Message `json:"messages"`
}

type ToolBeforePayload struct {
	Tool   string          `json:"tool"`
	CallID string          `json:"call_id"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type ToolAfterPayload struct {
	Tool     string          `json:"tool"`
	CallID   string          `json:"call_id"`
	Result   json.RawMessage `json:"result,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type TurnCompletePayload struct {
	Text string `json:"text"`
}

// Usage is the token/cost accounting some lifecycle signals carry.
type Usage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

type SignalPayload struct {
	Signal string `json:"signal"`
	Usage  *Usage `json:"usage,omitempty"`
}

// CommandPayload is the durable form of a classified user command.
type CommandPayload struct {
	Command string `json:"command"`
}

// ResponsePayload is the durable form of a classified assistant response.
type ResponsePayload struct {
	Text string `json:"text"`
}

// ToolPayload is the durable form of a tool-before or tool-after notification.
// Phase distinguishes the two.
type ToolPayload struct {
	Phase    string          `json:"phase"`
	Tool     string          `json:"tool"`
	CallID   string          `json:"call_id"`
	Args     json.RawMessage `json:"args,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

const (
	ToolPhaseBefore = "before"
	ToolPhaseAfter  = "after"
)

// EventPayload is the fallback variant: lifecycle signals, context, parameters
// and any notification name the engine does not recognize. Fields carries the
// raw host payload verbatim.
type EventPayload struct {
	Name   string          `json:"name"`
	Fields json.RawMessage `json:"fields,omitempty"`
}
