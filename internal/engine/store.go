package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hooktrail/hooktrail/internal/hook"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// sessionState is the mutable record for one conversation. Every field after
// mu is guarded by mu; the store's outer map lock is never held while a
// session is being mutated.
type sessionState struct {
	mu sync.Mutex

	id        string
	createdAt time.Time
	entries   []LogEntry
	metrics   Metrics
	openRound *Round
}

// SessionStore owns all mutable conversation state. Different sessions mutate
// in parallel; mutation within one session is serialized by its own mutex.
type SessionStore struct {
	logger *zap.Logger
	rounds *RoundTracker
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

func NewSessionStore(logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		logger:   logger,
		rounds:   NewRoundTracker(logger),
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*sessionState),
	}
}

// Ensure returns the effective session id, creating an empty session when the
// id is unknown. An absent id gets a generated placeholder immediately rather
// than failing; the host never learns it, but the logs stay attributable.
func (s *SessionStore) Ensure(sessionID string) string {
	if sessionID == "" {
		sessionID = "anon-" + uuid.NewString()
		s.logger.Warn("hook event without session id; assigned placeholder",
			zap.String("session_id", sessionID),
		)
	}

	s.mu.RLock()
	_, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sessionID
	}

	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = &sessionState{
			id:        sessionID,
			createdAt: s.now(),
			entries:   make([]LogEntry, 0),
		}
	}
	s.mu.Unlock()

	return sessionID
}

func (s *SessionStore) get(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// Record appends an entry in arrival order and accumulates metrics. The
// entry's RoundID is stamped from the session's open round at this moment;
// the returned copy carries it.
func (s *SessionStore) Record(sessionID string, entry LogEntry) (LogEntry, error) {
	st, err := s.get(sessionID)
	if err != nil {
		return LogEntry{}, err
	}

	st.mu.Lock()
	if st.openRound != nil {
		entry.RoundID = st.openRound.ID
	}
	if entry.Tool != nil && entry.Tool.Phase == hook.ToolPhaseBefore {
		st.metrics.ToolCalls++
	}
	st.entries = append(st.entries, entry)
	st.mu.Unlock()

	return entry, nil
}

// OpenRound transitions the session to an active round, force-closing any
// previous one. The forced round, if any, is returned already ended.
func (s *SessionStore) OpenRound(sessionID string) (Round, *Round, error) {
	st, err := s.get(sessionID)
	if err != nil {
		return Round{}, nil, err
	}

	st.mu.Lock()
	opened, forced := s.rounds.Open(sessionID, st.openRound)
	st.openRound = &opened
	st.mu.Unlock()

	return opened, forced, nil
}

// CloseRound ends the open round, if any. Entries recorded afterwards carry no
// round id until the next turn-start.
func (s *SessionStore) CloseRound(sessionID string) (Round, bool, error) {
	st, err := s.get(sessionID)
	if err != nil {
		return Round{}, false, err
	}

	st.mu.Lock()
	closed, ok := s.rounds.Close(sessionID, st.openRound)
	if ok {
		st.openRound = nil
	}
	st.mu.Unlock()

	return closed, ok, nil
}

// AddUsage folds token/cost accounting from a lifecycle signal into the
// session's metrics.
func (s *SessionStore) AddUsage(sessionID string, usage hook.Usage) error {
	st, err := s.get(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.metrics.addUsage(usage)
	st.mu.Unlock()

	return nil
}

// Snapshot returns a deep copy safe to serialize outside any lock.
func (s *SessionStore) Snapshot(sessionID string) (Session, error) {
	st, err := s.get(sessionID)
	if err != nil {
		return Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	snap := Session{
		ID:        st.id,
		CreatedAt: st.createdAt,
		Entries:   make([]LogEntry, len(st.entries)),
		Metrics:   st.metrics,
	}
	copy(snap.Entries, st.entries)
	if st.openRound != nil {
		round := *st.openRound
		snap.OpenRound = &round
	}

	return snap, nil
}

// Reset clears entries and metrics while preserving the session's identity, so
// a later turn reuses the same id and produces an independent flushed record.
func (s *SessionStore) Reset(sessionID string) error {
	st, err := s.get(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.entries = make([]LogEntry, 0)
	st.metrics = Metrics{}
	st.mu.Unlock()

	return nil
}

// Len reports the number of known sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
