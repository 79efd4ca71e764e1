package journal

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SessionRow is the queryable summary of one session kept beside the JSONL
// files. The JSONL files remain the source of truth; the index is best-effort.
type SessionRow struct {
	ID           string
	CreatedAt    string
	ClosedAt     string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
	ToolCalls    int64
	EntryCount   int64
}

// EntryRow is one indexed log entry.
type EntryRow struct {
	ID        string
	SessionID string
	RoundID   string
	Kind      string
	Timestamp string
	Payload   string
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	closed_at TEXT,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	tool_calls INTEGER NOT NULL DEFAULT 0,
	entry_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	round_id TEXT,
	kind TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
`

// Index mirrors sessions and entries into SQLite so consumers can query logs
// without parsing JSONL.
type Index struct {
	db     *sql.DB
	logger *zap.Logger
}

func OpenIndex(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index database %s: %w", path, err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply index schema: %w", err)
	}

	return &Index{db: db, logger: logger}, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) UpsertSession(row SessionRow) error {
	_, err := i.db.Exec(`
		INSERT INTO sessions (id, created_at, closed_at, input_tokens, output_tokens, total_tokens, cost_usd, tool_calls, entry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			closed_at = excluded.closed_at,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			total_tokens = excluded.total_tokens,
			cost_usd = excluded.cost_usd,
			tool_calls = excluded.tool_calls,
			entry_count = excluded.entry_count
	`,
		row.ID,
		row.CreatedAt,
		nullable(row.ClosedAt),
		row.InputTokens,
		row.OutputTokens,
		row.TotalTokens,
		row.CostUSD,
		row.ToolCalls,
		row.EntryCount,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", row.ID, err)
	}
	return nil
}

func (i *Index) InsertEntry(row EntryRow) error {
	payload := row.Payload
	if payload == "" {
		payload = "{}"
	}

	_, err := i.db.Exec(`
		INSERT INTO entries (id, session_id, round_id, kind, timestamp, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		row.ID,
		row.SessionID,
		nullable(row.RoundID),
		row.Kind,
		row.Timestamp,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert entry %s: %w", row.ID, err)
	}
	return nil
}

// EntryCount reports indexed entries for one session.
func (i *Index) EntryCount(sessionID string) (int64, error) {
	var count int64
	err := i.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries for %s: %w", sessionID, err)
	}
	return count, nil
}

// Session reads the indexed summary for one session.
func (i *Index) Session(sessionID string) (SessionRow, error) {
	var (
		row      SessionRow
		closedAt sql.NullString
	)
	err := i.db.QueryRow(`
		SELECT id, created_at, closed_at, input_tokens, output_tokens, total_tokens, cost_usd, tool_calls, entry_count
		FROM sessions WHERE id = ?
	`, sessionID).Scan(
		&row.ID,
		&row.CreatedAt,
		&closedAt,
		&row.InputTokens,
		&row.OutputTokens,
		&row.TotalTokens,
		&row.CostUSD,
		&row.ToolCalls,
		&row.EntryCount,
	)
	if err != nil {
		return SessionRow{}, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if closedAt.Valid {
		row.ClosedAt = closedAt.String
	}
	return row, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
