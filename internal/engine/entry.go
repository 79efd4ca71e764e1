package engine

import (
	"time"

	"github.com/hooktrail/hooktrail/internal/hook"
)

// LogEntry is one durable record. Exactly one payload field matching Kind is
// set; the others stay nil and are omitted on the wire.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      hook.Kind `json:"kind"`
	RoundID   string    `json:"round_id,omitempty"`

	Command  *hook.CommandPayload  `json:"command,omitempty"`
	Response *hook.ResponsePayload `json:"response,omitempty"`
	Tool     *hook.ToolPayload     `json:"tool,omitempty"`
	Event    *hook.EventPayload    `json:"event,omitempty"`
}

// Metrics are a session's accumulated counters. They never decrease between
// flush/reset boundaries.
type Metrics struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	ToolCalls    int64   `json:"tool_calls"`
}

func (m *Metrics) addUsage(u hook.Usage) {
	m.InputTokens += u.InputTokens
	m.OutputTokens += u.OutputTokens
	m.TotalTokens += u.TotalTokens
	m.CostUSD += u.CostUSD
}

// Round is one user-request-to-assistant-response unit inside a session.
type Round struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Session is an immutable snapshot of one conversation's in-memory record.
type Session struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Entries   []LogEntry `json:"entries"`
	Metrics   Metrics    `json:"metrics"`
	OpenRound *Round     `json:"open_round,omitempty"`
}

// Document is the self-contained session record written as a single line in
// batched mode. The user/assistant/tools sequences are derived from the
// entries so a reader can replay conversational order without joins.
type Document struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	ClosedAt  time.Time          `json:"closed_at"`
	User      []string           `json:"user"`
	Assistant []string           `json:"assistant"`
	Tools     []hook.ToolPayload `json:"tools"`
	Entries   []LogEntry         `json:"entries"`
	Metrics   Metrics            `json:"metrics"`
}

// Document flattens the snapshot into its durable batched form, closed at the
// given time.
func (s Session) Document(closedAt time.Time) Document {
	doc := Document{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		ClosedAt:  closedAt,
		User:      make([]string, 0),
		Assistant: make([]string, 0),
		Tools:     make([]hook.ToolPayload, 0),
		Entries:   s.Entries,
		Metrics:   s.Metrics,
	}

	for _, entry := range s.Entries {
		switch {
		case entry.Command != nil:
			doc.User = append(doc.User, entry.Command.Command)
		case entry.Response != nil:
			doc.Assistant = append(doc.Assistant, entry.Response.Text)
		case entry.Tool != nil:
			doc.Tools = append(doc.Tools, *entry.Tool)
		}
	}

	return doc
}
