package llmcall

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store provides access to LLM call records in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS llm_calls (
	id            TEXT PRIMARY KEY,
	timestamp     INTEGER NOT NULL,
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	session_id    TEXT NOT NULL DEFAULT '',
	request_id    TEXT NOT NULL DEFAULT '',
	prompt_key    TEXT NOT NULL DEFAULT '',
	provider      TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	temperature   REAL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd      REAL NOT NULL DEFAULT 0,
	response      TEXT NOT NULL DEFAULT '',
	success       INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_llm_calls_timestamp ON llm_calls(timestamp);
CREATE INDEX IF NOT EXISTS idx_llm_calls_prompt_key ON llm_calls(prompt_key);
`

const columns = `id, timestamp, latency_ms, session_id, request_id, prompt_key, provider, model,
	temperature, attempts, input_tokens, output_tokens, cost_usd, response, success, error`

// NewStore creates the llm_calls table on db if needed.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating llm_calls table: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping verifies the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	SessionID string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// Insert writes calls in one transaction.
func (s *Store) Insert(ctx context.Context, calls ...*Call) error {
	if len(calls) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO llm_calls (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range calls {
		if c == nil {
			continue
		}
		var temp sql.NullFloat64
		if c.Temperature != nil {
			temp = sql.NullFloat64{Float64: *c.Temperature, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Timestamp.UnixMilli(), c.LatencyMs, c.SessionID, c.RequestID, c.PromptKey,
			c.Provider, c.Model, temp, c.Attempts, c.InputTokens, c.OutputTokens, c.CostUSD,
			c.Response, c.Success, c.Error,
		); err != nil {
			return fmt.Errorf("inserting call %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Get retrieves a single LLM call by ID. It returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Call, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM llm_calls WHERE id = ?`, id)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return c, nil
}

// List retrieves LLM calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	where, args := filter.clause()
	query := `SELECT ` + columns + ` FROM llm_calls` + where + ` ORDER BY timestamp DESC, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *c)
	}
	return calls, rows.Err()
}

// CountByPromptKey returns call counts grouped by prompt key.
func (s *Store) CountByPromptKey(ctx context.Context, filter QueryFilter) (map[string]int, error) {
	where, args := filter.clause()
	rows, err := s.db.QueryContext(ctx,
		`SELECT prompt_key, COUNT(*) FROM llm_calls`+where+` GROUP BY prompt_key`, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func (f QueryFilter) clause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		conds = append(conds, cond)
		args = append(args, v)
	}
	if f.SessionID != "" {
		add("session_id = ?", f.SessionID)
	}
	if f.PromptKey != "" {
		add("prompt_key = ?", f.PromptKey)
	}
	if f.Provider != "" {
		add("provider = ?", f.Provider)
	}
	if f.Model != "" {
		add("model = ?", f.Model)
	}
	if f.Success != nil {
		add("success = ?", *f.Success)
	}
	if f.After != nil {
		add("timestamp > ?", f.After.UnixMilli())
	}
	if f.Before != nil {
		add("timestamp < ?", f.Before.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(row scanner) (*Call, error) {
	var (
		c    Call
		ts   int64
		temp sql.NullFloat64
	)
	if err := row.Scan(&c.ID, &ts, &c.LatencyMs, &c.SessionID, &c.RequestID, &c.PromptKey,
		&c.Provider, &c.Model, &temp, &c.Attempts, &c.InputTokens, &c.OutputTokens, &c.CostUSD,
		&c.Response, &c.Success, &c.Error); err != nil {
		return nil, err
	}
	c.Timestamp = time.UnixMilli(ts).UTC()
	if temp.Valid {
		v := temp.Float64
		c.Temperature = &v
	}
	return &c, nil
}
