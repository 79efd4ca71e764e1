package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hooktrail/hooktrail/internal/hook"
)

// Typed hook handlers for hosts embedding the engine as a library. Each one
// wraps its payload into the wire envelope and runs the common path.

func (e *Engine) OnSystemContext(ctx context.Context, sessionID string, contextStrings []string) error {
	return e.dispatch(ctx, sessionID, hook.NameSystemContext, hook.SystemContextPayload{Context: contextStrings})
}

func (e *Engine) OnParameters(ctx context.Context, sessionID string, params hook.ParametersPayload) error {
	return e.dispatch(ctx, sessionID, hook.NameParameters, params)
}

func (e *Engine) OnTurnStart(ctx context.Context, sessionID string, messages []hook.Message) error {
	return e.dispatch(ctx, sessionID, hook.NameTurnStart, hook.TurnStartPayload{Messages: messages})
}

func (e *Engine) OnToolBefore(ctx context.Context, sessionID string, payload hook.ToolBeforePayload) error {
	return e.dispatch(ctx, sessionID, hook.NameToolBefore, payload)
}

func (e *Engine) OnToolAfter(ctx context.Context, sessionID string, payload hook.ToolAfterPayload) error {
	return e.dispatch(ctx, sessionID, hook.NameToolAfter, payload)
}

func (e *Engine) OnTurnComplete(ctx context.Context, sessionID string, text string) error {
	return e.dispatch(ctx, sessionID, hook.NameTurnComplete, hook.TurnCompletePayload{Text: text})
}

func (e *Engine) OnSignal(ctx context.Context, sessionID string, signal string, usage *hook.Usage) error {
	return e.dispatch(ctx, sessionID, hook.NameLifecycleSignal, hook.SignalPayload{Signal: signal, Usage: usage})
}

func (e *Engine) dispatch(ctx context.Context, sessionID string, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return e.HandleEvent(ctx, hook.Event{
		Name:      name,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	})
}
