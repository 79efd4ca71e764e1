package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hooktrail/hooktrail/internal/hook"
	"github.com/hooktrail/hooktrail/internal/journal"
	"github.com/hooktrail/hooktrail/internal/shared"
	"go.uber.org/zap"
)

// Mode selects the persistence strategy. It is a configuration choice, never
// detected at run time.
type Mode string

const (
	ModeStreaming Mode = "streaming"
	ModeBatched   Mode = "batched"
)

// Options configures an Engine.
type Options struct {
	// BaseDir is the root of the durable log tree.
	BaseDir string
	// Mode selects streaming (write-through) or batched persistence.
	Mode Mode
	// RoundFiles additionally mirrors round-attributed entries into
	// per-round files in streaming mode.
	RoundFiles bool
	// FlushSignals are the lifecycle signal names that trigger a batched
	// flush. Defaults to idle and end.
	FlushSignals []string
	// Index is an optional SQLite mirror; write failures there are logged,
	// never surfaced.
	Index  *journal.Index
	Logger *zap.Logger
}

// Engine receives hook events and turns them into durable per-conversation
// records. It never panics on input; every failure is logged or returned.
type Engine struct {
	logger     *zap.Logger
	classifier *hook.Classifier
	store      *SessionStore
	writer     *journal.Writer
	index      *journal.Index
	metrics    *EngineMetrics

	mode         Mode
	roundFiles   bool
	flushSignals map[string]struct{}
}

func New(opts Options) (*Engine, error) {
	if opts.BaseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	switch opts.Mode {
	case ModeStreaming, ModeBatched:
	default:
		return nil, fmt.Errorf("unsupported persistence mode %q", opts.Mode)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	signals := opts.FlushSignals
	if len(signals) == 0 {
		signals = []string{hook.SignalIdle, hook.SignalEnd}
	}
	flushSignals := make(map[string]struct{}, len(signals))
	for _, name := range signals {
		flushSignals[name] = struct{}{}
	}

	return &Engine{
		logger:       logger,
		classifier:   hook.NewClassifier(logger),
		store:        NewSessionStore(logger),
		writer:       journal.NewWriter(opts.BaseDir, logger),
		index:        opts.Index,
		metrics:      InitMetrics(),
		mode:         opts.Mode,
		roundFiles:   opts.RoundFiles,
		flushSignals: flushSignals,
	}, nil
}

// Store exposes the session store for read-only consumers.
func (e *Engine) Store() *SessionStore {
	return e.store
}

// HandleEvent processes one host notification end to end: classify, update
// round state, record, persist per the configured mode. The returned error is
// informational for the host adapter; in-memory state is always consistent.
func (e *Engine) HandleEvent(ctx context.Context, ev hook.Event) error {
	sessionID := e.store.Ensure(ev.SessionID)
	e.metrics.SetSessionsKnown(e.store.Len())

	logger := shared.SessionLogger(ctx, e.logger, sessionID)
	cls := e.classifier.Classify(ev)
	e.metrics.RecordEvent(string(cls.Kind))

	if cls.RoundRole == hook.RoundOpens {
		if _, forced, err := e.store.OpenRound(sessionID); err == nil {
			e.metrics.RoundOpened()
			if forced != nil {
				e.metrics.RoundClosed()
			}
		}
	}

	if cls.Usage != nil {
		if err := e.store.AddUsage(sessionID, *cls.Usage); err != nil {
			logger.Warn("accumulate usage failed", zap.Error(err))
		}
	}

	// Flush-triggering signals in batched mode are control flow, not data:
	// recording them would make an otherwise-empty flush non-empty.
	flushing := e.mode == ModeBatched && cls.Signal != ""
	if flushing {
		if _, ok := e.flushSignals[cls.Signal]; !ok {
			flushing = false
		}
	}

	var entry LogEntry
	if !flushing {
		recorded, err := e.store.Record(sessionID, LogEntry{
			ID:        uuid.NewString(),
			Timestamp: eventTime(ev),
			Kind:      cls.Kind,
			Command:   cls.Command,
			Response:  cls.Response,
			Tool:      cls.Tool,
			Event:     cls.Event,
		})
		if err != nil {
			return fmt.Errorf("record entry for session %s: %w", sessionID, err)
		}
		entry = recorded
	}

	if cls.RoundRole == hook.RoundCloses {
		if _, ok, err := e.store.CloseRound(sessionID); err == nil && ok {
			e.metrics.RoundClosed()
		}
	}

	switch {
	case flushing:
		return e.Flush(ctx, sessionID)
	case e.mode == ModeStreaming:
		return e.streamEntry(logger, sessionID, entry)
	default:
		return nil
	}
}

// streamEntry appends one entry to the session file, mirrors it to the round
// file when enabled, and indexes it. Only the session-file failure is
// surfaced; the mirrors are best-effort.
func (e *Engine) streamEntry(logger *zap.Logger, sessionID string, entry LogEntry) error {
	if err := e.writer.AppendLine(e.writer.SessionPath(sessionID), entry); err != nil {
		e.metrics.RecordWriteError("session_file")
		logger.Warn("session file append failed", zap.Error(err))
		return err
	}

	if e.roundFiles && entry.RoundID != "" {
		if err := e.writer.AppendLine(e.writer.RoundPath(entry.RoundID), entry); err != nil {
			e.metrics.RecordWriteError("round_file")
			logger.Warn("round file append failed",
				zap.String("round_id", entry.RoundID),
				zap.Error(err),
			)
		}
	}

	e.indexEntry(logger, sessionID, entry)
	return nil
}

// Flush writes the accumulated session document as one line and resets the
// session's entries and metrics. An empty session is a no-op. On write failure
// the in-memory state is preserved untouched for a later retry.
func (e *Engine) Flush(ctx context.Context, sessionID string) error {
	logger := shared.SessionLogger(ctx, e.logger, sessionID)

	snap, err := e.store.Snapshot(sessionID)
	if err != nil {
		return fmt.Errorf("snapshot session %s: %w", sessionID, err)
	}
	if len(snap.Entries) == 0 {
		e.metrics.RecordFlush("empty")
		return nil
	}

	closedAt := time.Now().UTC()
	doc := snap.Document(closedAt)

	if err := e.writer.AppendLine(e.writer.SessionPath(sessionID), doc); err != nil {
		e.metrics.RecordFlush("failed")
		e.metrics.RecordWriteError("session_file")
		logger.Warn("flush append failed; keeping in-memory state", zap.Error(err))
		return err
	}

	if err := e.store.Reset(sessionID); err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}

	e.metrics.RecordFlush("written")
	e.indexSession(logger, snap, closedAt)
	return nil
}

func (e *Engine) indexEntry(logger *zap.Logger, sessionID string, entry LogEntry) {
	if e.index == nil {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		logger.Warn("marshal entry for index failed", zap.Error(err))
		return
	}

	if err := e.index.InsertEntry(journal.EntryRow{
		ID:        entry.ID,
		SessionID: sessionID,
		RoundID:   entry.RoundID,
		Kind:      string(entry.Kind),
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Payload:   string(payload),
	}); err != nil {
		e.metrics.RecordWriteError("index")
		logger.Warn("index entry insert failed", zap.Error(err))
		return
	}

	if snap, err := e.store.Snapshot(sessionID); err == nil {
		if err := e.index.UpsertSession(sessionRow(snap, "")); err != nil {
			e.metrics.RecordWriteError("index")
			logger.Warn("index session upsert failed", zap.Error(err))
		}
	}
}

func (e *Engine) indexSession(logger *zap.Logger, snap Session, closedAt time.Time) {
	if e.index == nil {
		return
	}

	if err := e.index.UpsertSession(sessionRow(snap, closedAt.Format(time.RFC3339Nano))); err != nil {
		e.metrics.RecordWriteError("index")
		logger.Warn("index session upsert failed", zap.Error(err))
	}
}

func sessionRow(snap Session, closedAt string) journal.SessionRow {
	return journal.SessionRow{
		ID:           snap.ID,
		CreatedAt:    snap.CreatedAt.Format(time.RFC3339Nano),
		ClosedAt:     closedAt,
		InputTokens:  snap.Metrics.InputTokens,
		OutputTokens: snap.Metrics.OutputTokens,
		TotalTokens:  snap.Metrics.TotalTokens,
		CostUSD:      snap.Metrics.CostUSD,
		ToolCalls:    snap.Metrics.ToolCalls,
		EntryCount:   int64(len(snap.Entries)),
	}
}

func eventTime(ev hook.Event) time.Time {
	if !ev.Timestamp.IsZero() {
		return ev.Timestamp.UTC()
	}
	return time.Now().UTC()
}
