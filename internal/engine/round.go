package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoundTracker issues round ids and applies the two-state transition rules:
// idle -> active on turn-start, active -> idle on turn-complete. It holds no
// locks itself; callers mutate their session under its own exclusion boundary.
type RoundTracker struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewRoundTracker(logger *zap.Logger) *RoundTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoundTracker{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Open starts a round for the session. A round already open is a host protocol
// violation: it is force-closed first, with a warning, and returned so the
// caller can record its end. Hosts must not hold two rounds open at once.
func (t *RoundTracker) Open(sessionID string, current *Round) (Round, *Round) {
	now := t.now()

	var forced *Round
	if current != nil {
		closed := *current
		closed.EndedAt = &now
		forced = &closed
		t.logger.Warn("turn-start while a round is open; force-closing previous round",
			zap.String("session_id", sessionID),
			zap.String("previous_round_id", current.ID),
		)
	}

	return Round{
		ID:        NewRoundID(now),
		SessionID: sessionID,
		StartedAt: now,
	}, forced
}

// Close ends the open round. Closing with no round open is tolerated; hosts
// may emit turn-complete after a restart lost the engine's state.
func (t *RoundTracker) Close(sessionID string, current *Round) (Round, bool) {
	if current == nil {
		t.logger.Warn("turn-complete with no round open",
			zap.String("session_id", sessionID),
		)
		return Round{}, false
	}

	now := t.now()
	closed := *current
	closed.EndedAt = &now
	return closed, true
}

// NewRoundID builds an id that sorts roughly by start time. Uniqueness is the
// only hard requirement; the uuid suffix provides it.
func NewRoundID(at time.Time) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), uuid.NewString()[:8])
}
