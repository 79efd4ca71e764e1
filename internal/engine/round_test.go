package engine

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRoundTrackerOpenClose(t *testing.T) {
	tracker := NewRoundTracker(zap.NewNop())

	opened, forced := tracker.Open("s1", nil)
	if opened.ID == "" {
		t.Fatal("expected round id")
	}
	if opened.SessionID != "s1" {
		t.Fatalf("session id = %s, want s1", opened.SessionID)
	}
	if forced != nil {
		t.Fatalf("unexpected forced close: %+v", forced)
	}

	closed, ok := tracker.Close("s1", &opened)
	if !ok {
		t.Fatal("expected close to succeed")
	}
	if closed.EndedAt == nil {
		t.Fatal("closed round must carry end time")
	}
}

func TestRoundTrackerForceClosesOnDoubleOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tracker := NewRoundTracker(zap.New(core))

	first, _ := tracker.Open("s1", nil)
	second, forced := tracker.Open("s1", &first)

	if forced == nil {
		t.Fatal("expected previous round to be force-closed")
	}
	if forced.ID != first.ID {
		t.Fatalf("forced round id = %s, want %s", forced.ID, first.ID)
	}
	if forced.EndedAt == nil {
		t.Fatal("forced round must carry end time")
	}
	if second.ID == first.ID {
		t.Fatal("new round must get a fresh id")
	}
	if len(logs.FilterMessage("turn-start while a round is open; force-closing previous round").All()) != 1 {
		t.Fatal("expected force-close warning")
	}
}

func TestRoundTrackerCloseWithoutOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tracker := NewRoundTracker(zap.New(core))

	_, ok := tracker.Close("s1", nil)
	if ok {
		t.Fatal("close with no open round must report false")
	}
	if len(logs.FilterMessage("turn-complete with no round open").All()) != 1 {
		t.Fatal("expected warning for unmatched turn-complete")
	}
}

func TestNewRoundIDUnique(t *testing.T) {
	at := time.Now().UTC()
	a := NewRoundID(at)
	b := NewRoundID(at)
	if a == b {
		t.Fatalf("round ids collide: %s", a)
	}
}
