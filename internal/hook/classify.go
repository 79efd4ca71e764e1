package hook

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Kind is the semantic record kind of a classified notification, not the raw
// host notification name.
type Kind string

const (
	KindCommand  Kind = "command"
	KindResponse Kind = "response"
	KindTool     Kind = "tool"
	KindEvent    Kind = "event"
)

// RoundRole describes what a notification does to the session's round state.
type RoundRole int

const (
	RoundNone RoundRole = iota
	RoundOpens
	RoundCloses
)

// Classification is the result of mapping one host notification. Exactly one
// of the payload pointers matching Kind is set.
type Classification struct {
	Kind      Kind
	RoundRole RoundRole

	Command  *CommandPayload
	Response *ResponsePayload
	Tool     *ToolPayload
	Event    *EventPayload

	// Signal is non-empty when the notification is a lifecycle signal; Usage
	// carries accounting when the signal includes it.
	Signal string
	Usage  *Usage
}

// Classifier maps host notifications to semantic record kinds. It holds no
// per-session state.
type Classifier struct {
	logger *zap.Logger
}

func NewClassifier(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{logger: logger}
}

// Classify never fails: malformed payloads and unknown notification names fall
// through to the event kind with the raw payload preserved.
func (c *Classifier) Classify(ev Event) Classification {
	switch ev.Name {
	case NameTurnStart:
		var payload TurnStartPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.logger.Warn("malformed turn-start payload",
				zap.String("session_id", ev.SessionID),
				zap.Error(err),
			)
			return c.fallback(ev)
		}
		return Classification{
			Kind:      KindCommand,
			RoundRole: RoundOpens,
			Command:   &CommandPayload{Command: LatestUserText(payload.Messages)},
		}

	case NameTurnComplete:
		var payload TurnCompletePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.logger.Warn("malformed turn-complete payload",
				zap.String("session_id", ev.SessionID),
				zap.Error(err),
			)
			return c.fallback(ev)
		}
		return Classification{
			Kind:      KindResponse,
			RoundRole: RoundCloses,
			Response:  &ResponsePayload{Text: payload.Text},
		}

	case NameToolBefore:
		var payload ToolBeforePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.logger.Warn("malformed tool-before payload",
				zap.String("session_id", ev.SessionID),
				zap.Error(err),
			)
			return c.fallback(ev)
		}
		return Classification{
			Kind: KindTool,
			Tool: &ToolPayload{
				Phase:  ToolPhaseBefore,
				Tool:   payload.Tool,
				CallID: payload.CallID,
				Args:   payload.Args,
			},
		}

	case NameToolAfter:
		var payload ToolAfterPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.logger.Warn("malformed tool-after payload",
				zap.String("session_id", ev.SessionID),
				zap.Error(err),
			)
			return c.fallback(ev)
		}
		return Classification{
			Kind: KindTool,
			Tool: &ToolPayload{
				Phase:    ToolPhaseAfter,
				Tool:     payload.Tool,
				CallID:   payload.CallID,
				Result:   payload.Result,
				Metadata: payload.Metadata,
			},
		}

	case NameLifecycleSignal:
		var payload SignalPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.logger.Warn("malformed lifecycle signal payload",
				zap.String("session_id", ev.SessionID),
				zap.Error(err),
			)
			return c.fallback(ev)
		}
		cls := c.fallback(ev)
		cls.Signal = payload.Signal
		cls.Usage = payload.Usage
		return cls

	case NameSystemContext, NameParameters:
		return c.fallback(ev)

	default:
		c.logger.Debug("unrecognized notification name",
			zap.String("name", ev.Name),
			zap.String("session_id", ev.SessionID),
		)
		return c.fallback(ev)
	}
}

func (c *Classifier) fallback(ev Event) Classification {
	return Classification{
		Kind:  KindEvent,
		Event: &EventPayload{Name: ev.Name, Fields: ev.Payload},
	}
}

// LatestUserText scans the history from the end for the most recent user
// message and returns its first text-bearing fragment. It stops at the first
// match; an empty result is not an error.
func LatestUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		for _, fragment := range messages[i].Content {
			if fragment.Text != "" {
				return fragment.Text
			}
		}
		return ""
	}
	return ""
}
