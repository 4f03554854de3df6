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

// Package debug persists every runtime session, dispatch attempt, and LLM
// interaction to a durable SQLite log, and replays recorded sessions with
// overrides for offline diagnosis.
package debug

import "time"

// SessionStatus is the lifecycle state of a recorded session.
type SessionStatus string

const (
	StatusPending SessionStatus = "pending"
	StatusSuccess SessionStatus = "success"
	StatusError   SessionStatus = "error"
	StatusPartial SessionStatus = "partial" // some actions succeeded, some failed
)

// Session is one recorded runtime session. Large payloads are JSON-encoded
// at rest and decoded on read.
type Session struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	UserID          int            `json:"user_id"`
	UserRole        string         `json:"user_role"`
	InputMessage    string         `json:"input_message"`
	RetrievedSchema map[string]any `json:"retrieved_schema,omitempty"`
	RetrievedTools  []any          `json:"retrieved_tools,omitempty"`
	LLMPrompt       string         `json:"llm_prompt,omitempty"`
	LLMResponse     string         `json:"llm_response,omitempty"`
	LLMTokensUsed   int            `json:"llm_tokens_used,omitempty"`
	LLMModel        string         `json:"llm_model,omitempty"`
	ActionsExecuted []string       `json:"actions_executed,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms,omitempty"`
	FinalResult     any            `json:"final_result,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
	Status          SessionStatus  `json:"status"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// AttemptLog is one dispatch attempt within a session. Numbers are
// monotonically increasing from 0 within a session.
type AttemptLog struct {
	AttemptID     string         `json:"attempt_id"`
	SessionID     string         `json:"session_id"`
	AttemptNumber int            `json:"attempt_number"`
	ActionName    string         `json:"action_name"`
	Params        map[string]any `json:"params,omitempty"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Result        any            `json:"result,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// LLMInteraction is one model call within a session. Seq is the
// caller-supplied sort key.
type LLMInteraction struct {
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Phase     string    `json:"phase"`     // e.g. extraction, reflexion
	CallType  string    `json:"call_type"` // e.g. chat, json
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	LatencyMS int64     `json:"latency_ms"`
	Model     string    `json:"model,omitempty"`
	Tokens    int       `json:"tokens,omitempty"`
}

// ReplayRecord is a persisted replay outcome.
type ReplayRecord struct {
	ReplayID          string          `json:"replay_id"`
	OriginalSessionID string          `json:"original_session_id"`
	Success           bool            `json:"success"`
	Result            any             `json:"result,omitempty"`
	Attempts          []ReplayAttempt `json:"attempts,omitempty"`
	ExecutionTimeMS   int64           `json:"execution_time_ms"`
	LLMModel          string          `json:"llm_model,omitempty"`
	LLMTokensUsed     int             `json:"llm_tokens_used,omitempty"`
	Error             string          `json:"error,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
	DryRun            bool            `json:"dry_run"`
}

// ReplayAttempt is one re-executed attempt within a replay.
type ReplayAttempt struct {
	AttemptNumber int            `json:"attempt_number"`
	ActionName    string         `json:"action_name"`
	Params        map[string]any `json:"params,omitempty"`
	Success       bool           `json:"success"`
	Result        any            `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	DurationMS    int64          `json:"duration_ms"`
}

// Statistics summarizes the debug store.
type Statistics struct {
	TotalSessions  int                   `json:"total_sessions"`
	TotalAttempts  int                   `json:"total_attempts"`
	TotalReplays   int                   `json:"total_replays"`
	ByStatus       map[SessionStatus]int `json:"by_status"`
	SessionsLast24 int                   `json:"sessions_last_24h"`
}

// SessionExport bundles a session with its attempts for export.
type SessionExport struct {
	Session  *Session      `json:"session"`
	Attempts []*AttemptLog `json:"attempts"`
}
