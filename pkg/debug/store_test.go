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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "帮张三办理201入住", 1, "front_desk")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.UpdateSessionRetrieval(ctx, id,
		map[string]any{"entities": []any{"Room"}},
		[]any{map[string]any{"name": "walkin_checkin"}}))
	require.NoError(t, store.UpdateSessionLLM(ctx, id, "prompt text", "response text", 345, "claude-test"))
	require.NoError(t, store.CompleteSession(ctx, id, map[string]any{"stay_id": float64(7)},
		StatusSuccess, 120, []string{"walkin_checkin"}, nil))

	sess, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "帮张三办理201入住", sess.InputMessage)
	assert.Equal(t, 1, sess.UserID)
	assert.Equal(t, "front_desk", sess.UserRole)
	assert.Equal(t, StatusSuccess, sess.Status)
	assert.Equal(t, 345, sess.LLMTokensUsed)
	assert.Equal(t, "claude-test", sess.LLMModel)
	assert.Equal(t, int64(120), sess.ExecutionTimeMS)
	assert.Equal(t, []string{"walkin_checkin"}, sess.ActionsExecuted)
	assert.Equal(t, map[string]any{"stay_id": float64(7)}, sess.FinalResult)
	assert.Equal(t, map[string]any{"entities": []any{"Room"}}, sess.RetrievedSchema)
}

func TestGetSessionNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetSession(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLogAttemptAutoIncrement(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "test", 1, "front_desk")
	require.NoError(t, err)

	_, err = store.LogAttempt(ctx, id, "walkin_checkin",
		map[string]any{"room_number": "201"}, false, nil, "STATE_ERROR: occupied", -1)
	require.NoError(t, err)
	_, err = store.LogAttempt(ctx, id, "walkin_checkin",
		map[string]any{"room_number": "202"}, true, map[string]any{"ok": true}, "", -1)
	require.NoError(t, err)

	attempts, err := store.GetAttempts(ctx, id)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 0, attempts[0].AttemptNumber, "numbering starts at zero")
	assert.Equal(t, 1, attempts[1].AttemptNumber)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, "STATE_ERROR: occupied", attempts[0].Error)
	assert.True(t, attempts[1].Success)
	assert.Equal(t, map[string]any{"room_number": "202"}, attempts[1].Params)
	assert.Equal(t, map[string]any{"ok": true}, attempts[1].Result)
}

func TestListSessionsFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a, err := store.CreateSession(ctx, "first", 1, "front_desk")
	require.NoError(t, err)
	b, err := store.CreateSession(ctx, "second", 2, "manager")
	require.NoError(t, err)
	require.NoError(t, store.CompleteSession(ctx, a, nil, StatusSuccess, 10, nil, nil))
	require.NoError(t, store.CompleteSession(ctx, b, nil, StatusError, 10, nil, []string{"boom"}))

	all, err := store.ListSessions(ctx, -1, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := store.ListSessions(ctx, -1, StatusError, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b, failed[0].ID)

	user1, err := store.ListSessions(ctx, 1, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, user1, 1)
	assert.Equal(t, a, user1[0].ID)
}

func TestCleanupCascadesAttempts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old, err := store.CreateSession(ctx, "stale", 1, "front_desk")
	require.NoError(t, err)
	_, err = store.LogAttempt(ctx, old, "walkin_checkin", nil, true, nil, "", -1)
	require.NoError(t, err)

	fresh, err := store.CreateSession(ctx, "fresh", 1, "front_desk")
	require.NoError(t, err)

	// Backdate the stale session past the retention window.
	_, err = store.DB().Exec(`UPDATE debug_sessions SET timestamp = ? WHERE id = ?`,
		time.Now().UTC().AddDate(0, 0, -45), old)
	require.NoError(t, err)

	n, err := store.CleanupOldSessions(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetSession(ctx, old)
	assert.Error(t, err)
	_, err = store.GetSession(ctx, fresh)
	assert.NoError(t, err)

	attempts, err := store.GetAttempts(ctx, old)
	require.NoError(t, err)
	assert.Empty(t, attempts, "attempt rows cascade with the session")
}

// Non-positive day counts push the cutoff to or past now, wiping the store.
func TestCleanupNonPositiveDaysDeletesAll(t *testing.T) {
	t.Run("minus one", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()
		_, err := store.CreateSession(ctx, "one", 1, "front_desk")
		require.NoError(t, err)
		_, err = store.CreateSession(ctx, "two", 2, "manager")
		require.NoError(t, err)

		n, err := store.CleanupOldSessions(ctx, -1)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "days=-1 must delete every session")

		remaining, err := store.ListSessions(ctx, -1, "", 10, 0)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("zero", func(t *testing.T) {
		store := openTestStore(t)
		ctx := context.Background()
		_, err := store.CreateSession(ctx, "one", 1, "front_desk")
		require.NoError(t, err)

		n, err := store.CleanupOldSessions(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestStatistics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a, err := store.CreateSession(ctx, "one", 1, "front_desk")
	require.NoError(t, err)
	_, err = store.CreateSession(ctx, "two", 1, "front_desk")
	require.NoError(t, err)
	require.NoError(t, store.CompleteSession(ctx, a, nil, StatusSuccess, 5, nil, nil))
	_, err = store.LogAttempt(ctx, a, "walkin_checkin", nil, true, nil, "", -1)
	require.NoError(t, err)

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.TotalAttempts)
	assert.Equal(t, 0, stats.TotalReplays)
	assert.Equal(t, 1, stats.ByStatus[StatusSuccess])
	assert.Equal(t, 1, stats.ByStatus[StatusPending])
	assert.Equal(t, 2, stats.SessionsLast24)
}

func TestExportSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "export me", 1, "front_desk")
	require.NoError(t, err)
	_, err = store.LogAttempt(ctx, id, "semantic_query", map[string]any{"root_object": "Room"}, true, nil, "", -1)
	require.NoError(t, err)

	export, err := store.ExportSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, export.Session.ID)
	require.Len(t, export.Attempts, 1)
	assert.Equal(t, "semantic_query", export.Attempts[0].ActionName)
}

func TestLogLLMInteraction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "llm", 1, "front_desk")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.LogLLMInteraction(ctx, &LLMInteraction{
		SessionID: id,
		Seq:       0,
		Phase:     "extraction",
		CallType:  "chat",
		StartedAt: now.Add(-200 * time.Millisecond),
		EndedAt:   now,
		LatencyMS: 200,
		Model:     "claude-test",
		Tokens:    512,
	}))

	var n int
	require.NoError(t, store.DB().QueryRow(
		`SELECT COUNT(*) FROM llm_interactions WHERE session_id = ?`, id).Scan(&n))
	assert.Equal(t, 1, n)
}
