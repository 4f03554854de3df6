// Copyright 2026 Foyer AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package debug

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foyer-ai/foyer/internal/log"
	_ "github.com/foyer-ai/foyer/internal/sqlitedriver"
)

const schema = `
CREATE TABLE IF NOT EXISTS debug_sessions (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	user_id INTEGER,
	user_role TEXT,
	input_message TEXT NOT NULL,
	retrieved_schema TEXT,
	retrieved_tools TEXT,
	llm_prompt TEXT,
	llm_response TEXT,
	llm_tokens_used INTEGER,
	llm_model TEXT,
	actions_executed TEXT,
	execution_time_ms INTEGER,
	final_result TEXT,
	errors TEXT,
	status TEXT DEFAULT 'pending',
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS attempt_logs (
	attempt_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES debug_sessions(id) ON DELETE CASCADE,
	attempt_number INTEGER NOT NULL,
	action_name TEXT,
	params TEXT,
	success BOOLEAN,
	error TEXT,
	result TEXT,
	timestamp DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS llm_interactions (
	session_id TEXT NOT NULL REFERENCES debug_sessions(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	phase TEXT,
	call_type TEXT,
	started_at DATETIME,
	ended_at DATETIME,
	latency_ms INTEGER,
	model TEXT,
	tokens INTEGER
);

CREATE TABLE IF NOT EXISTS replay_records (
	replay_id TEXT PRIMARY KEY,
	original_session_id TEXT,
	success BOOLEAN,
	result TEXT,
	attempts TEXT,
	execution_time_ms INTEGER,
	llm_model TEXT,
	llm_tokens_used INTEGER,
	error TEXT,
	timestamp DATETIME NOT NULL,
	dry_run BOOLEAN
);

CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON debug_sessions(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON debug_sessions(user_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON debug_sessions(status, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempt_logs(session_id, attempt_number);
CREATE INDEX IF NOT EXISTS idx_replays_original ON replay_records(original_session_id);
CREATE INDEX IF NOT EXISTS idx_replays_timestamp ON replay_records(timestamp DESC);
`

// Store is the durable debug log. Methods acquire a connection from the
// pool per call; the store never holds one across an external call.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenStore opens (or creates) the debug store at path. ":memory:" works
// for tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open debug store: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize debug schema: %w", err)
	}
	return &Store{db: db, logger: log.Named("debug").Sugar()}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for the retention worker and statistics.
func (s *Store) DB() *sql.DB { return s.db }

func marshalJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(s sql.NullString, target any) {
	if !s.Valid || s.String == "" {
		return
	}
	// Corrupt payloads degrade to nil rather than failing the read.
	_ = json.Unmarshal([]byte(s.String), target)
}

// CreateSession records a new session and returns its id.
func (s *Store) CreateSession(ctx context.Context, input string, userID int, userRole string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debug_sessions (id, timestamp, user_id, user_role, input_message, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), userID, userRole, input, StatusPending)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// UpdateSessionRetrieval stores the schema and tool set retrieved for the
// session. Either may be nil.
func (s *Store) UpdateSessionRetrieval(ctx context.Context, sessionID string, retrievedSchema map[string]any, tools []any) error {
	schemaJSON, err := marshalJSON(retrievedSchema)
	if err != nil {
		return err
	}
	toolsJSON, err := marshalJSON(tools)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE debug_sessions SET retrieved_schema = COALESCE(?, retrieved_schema),
		 retrieved_tools = COALESCE(?, retrieved_tools) WHERE id = ?`,
		schemaJSON, toolsJSON, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update retrieval: %w", err)
	}
	return nil
}

// UpdateSessionLLM stores the extraction prompt and response.
func (s *Store) UpdateSessionLLM(ctx context.Context, sessionID, prompt, response string, tokens int, model string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE debug_sessions SET llm_prompt = ?, llm_response = ?, llm_tokens_used = ?, llm_model = ?
		 WHERE id = ?`,
		prompt, response, tokens, model, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update llm fields: %w", err)
	}
	return nil
}

// LogAttempt appends an attempt. A negative attemptNumber auto-increments
// from the session's current maximum, starting at 0.
func (s *Store) LogAttempt(ctx context.Context, sessionID, actionName string, params map[string]any,
	success bool, result any, errText string, attemptNumber int) (string, error) {

	if attemptNumber < 0 {
		row := s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(attempt_number) + 1, 0) FROM attempt_logs WHERE session_id = ?`, sessionID)
		if err := row.Scan(&attemptNumber); err != nil {
			return "", fmt.Errorf("failed to compute attempt number: %w", err)
		}
	}

	paramsJSON, err := marshalJSON(params)
	if err != nil {
		return "", err
	}
	resultJSON, err := marshalJSON(result)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempt_logs (attempt_id, session_id, attempt_number, action_name, params, success, error, result, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, attemptNumber, actionName, paramsJSON, success, nullable(errText), resultJSON, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to log attempt: %w", err)
	}
	return id, nil
}

// LogLLMInteraction appends one model call record.
func (s *Store) LogLLMInteraction(ctx context.Context, in *LLMInteraction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_interactions (session_id, seq, phase, call_type, started_at, ended_at, latency_ms, model, tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.SessionID, in.Seq, in.Phase, in.CallType, in.StartedAt.UTC(), in.EndedAt.UTC(),
		in.LatencyMS, in.Model, in.Tokens)
	if err != nil {
		return fmt.Errorf("failed to log llm interaction: %w", err)
	}
	return nil
}

// CompleteSession finalizes a session.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, result any, status SessionStatus,
	executionTimeMS int64, actionsExecuted []string, errs []string) error {

	resultJSON, err := marshalJSON(result)
	if err != nil {
		return err
	}
	actionsJSON, err := marshalJSON(actionsExecuted)
	if err != nil {
		return err
	}
	errsJSON, err := marshalJSON(errs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE debug_sessions SET final_result = ?, status = ?, execution_time_ms = ?,
		 actions_executed = ?, errors = ? WHERE id = ?`,
		resultJSON, status, executionTimeMS, actionsJSON, errsJSON, sessionID)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

const sessionColumns = `id, timestamp, user_id, user_role, input_message, retrieved_schema,
	retrieved_tools, llm_prompt, llm_response, llm_tokens_used, llm_model,
	actions_executed, execution_time_ms, final_result, errors, status, metadata`

// GetSession loads one session with payloads decoded.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM debug_sessions WHERE id = ?`, sessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return sess, err
}

// ListSessions pages through sessions, newest first. Empty userRole/status
// filters match everything; userID < 0 matches every user.
func (s *Store) ListSessions(ctx context.Context, userID int, status SessionStatus, limit, offset int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + sessionColumns + ` FROM debug_sessions WHERE 1=1`
	var args []any
	if userID >= 0 {
		q += ` AND user_id = ?`
		args = append(args, userID)
	}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// GetAttempts returns a session's attempts ordered by attempt number.
func (s *Store) GetAttempts(ctx context.Context, sessionID string) ([]*AttemptLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt_id, session_id, attempt_number, action_name, params, success, error, result, timestamp
		 FROM attempt_logs WHERE session_id = ? ORDER BY attempt_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}
	defer rows.Close()

	var out []*AttemptLog
	for rows.Next() {
		var a AttemptLog
		var params, result, errText sql.NullString
		var actionName sql.NullString
		if err := rows.Scan(&a.AttemptID, &a.SessionID, &a.AttemptNumber, &actionName,
			&params, &a.Success, &errText, &result, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.ActionName = actionName.String
		a.Error = errText.String
		unmarshalJSON(params, &a.Params)
		unmarshalJSON(result, &a.Result)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SaveReplay persists a replay record.
func (s *Store) SaveReplay(ctx context.Context, rec *ReplayRecord) error {
	resultJSON, err := marshalJSON(rec.Result)
	if err != nil {
		return err
	}
	attemptsJSON, err := marshalJSON(rec.Attempts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO replay_records (replay_id, original_session_id, success, result, attempts,
		 execution_time_ms, llm_model, llm_tokens_used, error, timestamp, dry_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ReplayID, rec.OriginalSessionID, rec.Success, resultJSON, attemptsJSON,
		rec.ExecutionTimeMS, rec.LLMModel, rec.LLMTokensUsed, nullable(rec.Error),
		rec.Timestamp.UTC(), rec.DryRun)
	if err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	return nil
}

// GetReplay loads one replay record.
func (s *Store) GetReplay(ctx context.Context, replayID string) (*ReplayRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT replay_id, original_session_id, success, result, attempts, execution_time_ms,
		 llm_model, llm_tokens_used, error, timestamp, dry_run
		 FROM replay_records WHERE replay_id = ?`, replayID)

	var rec ReplayRecord
	var result, attempts, errText, model sql.NullString
	var tokens sql.NullInt64
	if err := row.Scan(&rec.ReplayID, &rec.OriginalSessionID, &rec.Success, &result, &attempts,
		&rec.ExecutionTimeMS, &model, &tokens, &errText, &rec.Timestamp, &rec.DryRun); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("replay %s not found", replayID)
		}
		return nil, fmt.Errorf("failed to load replay: %w", err)
	}
	rec.LLMModel = model.String
	rec.LLMTokensUsed = int(tokens.Int64)
	rec.Error = errText.String
	unmarshalJSON(result, &rec.Result)
	unmarshalJSON(attempts, &rec.Attempts)
	return &rec, nil
}

// CleanupOldSessions deletes sessions older than days and returns the count.
// Attempt and interaction rows cascade. Zero or negative days place the
// cutoff at or past now, deleting every session; retention defaults belong
// to the caller (see RetentionWorker).
func (s *Store) CleanupOldSessions(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.db.ExecContext(ctx, `DELETE FROM debug_sessions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Infow("cleaned up old sessions", "count", n, "older_than_days", days)
	}
	return int(n), nil
}

// Statistics returns store-wide totals and a status breakdown.
func (s *Store) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{ByStatus: make(map[SessionStatus]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM debug_sessions`).Scan(&stats.TotalSessions); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempt_logs`).Scan(&stats.TotalAttempts); err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM replay_records`).Scan(&stats.TotalReplays); err != nil {
		return nil, fmt.Errorf("failed to count replays: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM debug_sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status SessionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM debug_sessions WHERE timestamp >= ?`, since).Scan(&stats.SessionsLast24); err != nil {
		return nil, fmt.Errorf("failed to count recent sessions: %w", err)
	}
	return stats, nil
}

// ExportSession bundles a session and its attempts.
func (s *Store) ExportSession(ctx context.Context, sessionID string) (*SessionExport, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.GetAttempts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionExport{Session: sess, Attempts: attempts}, nil
}

// scanner abstracts sql.Row and sql.Rows for scanSession.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var userID sql.NullInt64
	var userRole, retrievedSchema, retrievedTools, llmPrompt, llmResponse, llmModel sql.NullString
	var actionsExecuted, finalResult, errs, metadata sql.NullString
	var tokens, execMS sql.NullInt64

	err := row.Scan(&sess.ID, &sess.Timestamp, &userID, &userRole, &sess.InputMessage,
		&retrievedSchema, &retrievedTools, &llmPrompt, &llmResponse, &tokens, &llmModel,
		&actionsExecuted, &execMS, &finalResult, &errs, &sess.Status, &metadata)
	if err != nil {
		return nil, err
	}

	sess.UserID = int(userID.Int64)
	sess.UserRole = userRole.String
	sess.LLMPrompt = llmPrompt.String
	sess.LLMResponse = llmResponse.String
	sess.LLMTokensUsed = int(tokens.Int64)
	sess.LLMModel = llmModel.String
	sess.ExecutionTimeMS = execMS.Int64
	unmarshalJSON(retrievedSchema, &sess.RetrievedSchema)
	unmarshalJSON(retrievedTools, &sess.RetrievedTools)
	unmarshalJSON(actionsExecuted, &sess.ActionsExecuted)
	unmarshalJSON(finalResult, &sess.FinalResult)
	unmarshalJSON(errs, &sess.Errors)
	unmarshalJSON(metadata, &sess.Metadata)
	return &sess, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
