package hook

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestClassifyTurnStartExtractsLatestUserText(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	payload, _ := json.Marshal(TurnStartPayload{Messages: []Message{
		{Role: "user", Content: []Fragment{{Type: "text", Text: "earlier question"}}},
		{Role: "assistant", Content: []Fragment{{Type: "text", Text: "earlier answer"}}},
		{Role: "user", Content: []Fragment{{Type: "text", Text: "help"}}},
	}})

	cls := classifier.Classify(Event{Name: NameTurnStart, SessionID: "s1", Payload: payload})

	if cls.Kind != KindCommand {
		t.Fatalf("kind = %s, want %s", cls.Kind, KindCommand)
	}
	if cls.RoundRole != RoundOpens {
		t.Fatalf("round role = %d, want opens", cls.RoundRole)
	}
	if cls.Command == nil || cls.Command.Command != "help" {
		t.Fatalf("extracted command = %+v, want help", cls.Command)
	}
}

func TestClassifyTurnStartScansFromEnd(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	payload, _ := json.Marshal(TurnStartPayload{Messages: []Message{
		{Role: "user", Content: []Fragment{{Type: "text", Text: "first"}}},
		{Role: "user", Content: []Fragment{{Type: "image"}, {Type: "text", Text: "second"}}},
		{Role: "assistant", Content: []Fragment{{Type: "text", Text: "reply"}}},
	}})

	cls := classifier.Classify(Event{Name: NameTurnStart, SessionID: "s1", Payload: payload})
	if cls.Command.Command != "second" {
		t.Fatalf("extracted command = %q, want second", cls.Command.Command)
	}
}

func TestClassifyTurnStartNoUserMessage(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	cases := map[string][]Message{
		"empty history":     {},
		"no user role":      {{Role: "assistant", Content: []Fragment{{Type: "text", Text: "hi"}}}},
		"user without text": {{Role: "user", Content: []Fragment{{Type: "image"}}}},
	}

	for name, messages := range cases {
		payload, _ := json.Marshal(TurnStartPayload{Messages: messages})
		cls := classifier.Classify(Event{Name: NameTurnStart, SessionID: "s1", Payload: payload})
		if cls.Kind != KindCommand {
			t.Fatalf("%s: kind = %s, want command", name, cls.Kind)
		}
		if cls.Command.Command != "" {
			t.Fatalf("%s: extracted command = %q, want empty", name, cls.Command.Command)
		}
	}
}

func TestClassifyTurnComplete(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	payload, _ := json.Marshal(TurnCompletePayload{Text: "Done."})
	cls := classifier.Classify(Event{Name: NameTurnComplete, SessionID: "s1", Payload: payload})

	if cls.Kind != KindResponse {
		t.Fatalf("kind = %s, want response", cls.Kind)
	}
	if cls.RoundRole != RoundCloses {
		t.Fatalf("round role = %d, want closes", cls.RoundRole)
	}
	if cls.Response == nil || cls.Response.Text != "Done." {
		t.Fatalf("response = %+v, want Done.", cls.Response)
	}
}

func TestClassifyToolPhases(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	before, _ := json.Marshal(ToolBeforePayload{Tool: "bash", CallID: "c1", Args: json.RawMessage(`{"cmd":"ls"}`)})
	cls := classifier.Classify(Event{Name: NameToolBefore, SessionID: "s1", Payload: before})
	if cls.Kind != KindTool || cls.Tool == nil {
		t.Fatalf("tool-before classification = %+v", cls)
	}
	if cls.Tool.Phase != ToolPhaseBefore || cls.Tool.Tool != "bash" || cls.Tool.CallID != "c1" {
		t.Fatalf("tool payload = %+v", cls.Tool)
	}
	if cls.RoundRole != RoundNone {
		t.Fatalf("tool-before round role = %d, want none", cls.RoundRole)
	}

	after, _ := json.Marshal(ToolAfterPayload{Tool: "bash", CallID: "c1", Result: json.RawMessage(`"ok"`)})
	cls = classifier.Classify(Event{Name: NameToolAfter, SessionID: "s1", Payload: after})
	if cls.Tool == nil || cls.Tool.Phase != ToolPhaseAfter {
		t.Fatalf("tool-after payload = %+v", cls.Tool)
	}
}

func TestClassifyLifecycleSignal(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	payload, _ := json.Marshal(SignalPayload{
		Signal: SignalIdle,
		Usage:  &Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30, CostUSD: 0.05},
	})
	cls := classifier.Classify(Event{Name: NameLifecycleSignal, SessionID: "s1", Payload: payload})

	if cls.Kind != KindEvent {
		t.Fatalf("kind = %s, want event", cls.Kind)
	}
	if cls.Signal != SignalIdle {
		t.Fatalf("signal = %q, want idle", cls.Signal)
	}
	if cls.Usage == nil || cls.Usage.TotalTokens != 30 {
		t.Fatalf("usage = %+v", cls.Usage)
	}
}

func TestClassifyUnknownNamePassesThrough(t *testing.T) {
	classifier := NewClassifier(zap.NewNop())

	raw := json.RawMessage(`{"novel":true}`)
	cls := classifier.Classify(Event{Name: "subagent-spawned", SessionID: "s1", Payload: raw})

	if cls.Kind != KindEvent {
		t.Fatalf("kind = %s, want event", cls.Kind)
	}
	if cls.RoundRole != RoundNone {
		t.Fatalf("round role = %d, want none", cls.RoundRole)
	}
	if cls.Event == nil || cls.Event.Name != "subagent-spawned" {
		t.Fatalf("event payload = %+v", cls.Event)
	}
	if string(cls.Event.Fields) != `{"novel":true}` {
		t.Fatalf("fields = %s, want verbatim payload", cls.Event.Fields)
	}
}

func TestClassifyMalformedPayloadFallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	classifier := NewClassifier(zap.New(core))

	cls := classifier.Classify(Event{
		Name:      NameTurnStart,
		SessionID: "s1",
		Payload:   json.RawMessage(`{not json`),
	})

	if cls.Kind != KindEvent {
		t.Fatalf("kind = %s, want event fallback", cls.Kind)
	}
	if cls.RoundRole != RoundNone {
		t.Fatalf("malformed turn-start must not open a round")
	}
	if len(logs.FilterMessage("malformed turn-start payload").All()) == 0 {
		t.Fatal("expected malformed payload warning")
	}
}
