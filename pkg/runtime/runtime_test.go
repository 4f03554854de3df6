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
package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foyer-ai/foyer/internal/hoteldemo"
	"github.com/foyer-ai/foyer/pkg/action"
	"github.com/foyer-ai/foyer/pkg/config"
	"github.com/foyer-ai/foyer/pkg/debug"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM:       config.LLMConfig{Provider: "none"},
		Store:     config.StoreConfig{Path: ":memory:"},
		Debug:     config.DebugConfig{Path: ":memory:", RetentionDays: 30, CleanupCron: "30 3 * * *"},
		Reflexion: config.ReflexionConfig{MaxRetries: 2},
	}
}

func testRuntime(t *testing.T) *Runtime {
	t.Helper()
	onto, err := hoteldemo.BuildRegistry()
	require.NoError(t, err)

	db, err := hoteldemo.OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, hoteldemo.Seed(db))

	rt, err := New(testConfig(), onto, db)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })

	rt.Rules().LoadAliases(hoteldemo.StateAliases())
	require.NoError(t, hoteldemo.RegisterActions(rt.Actions(), rt.Executor(), onto, rt.Rules()))
	require.NoError(t, rt.Freeze())
	return rt
}

func TestFreezeIsOneShot(t *testing.T) {
	rt := testRuntime(t)
	assert.Error(t, rt.Freeze(), "second freeze must fail")
	assert.True(t, rt.Ontology().Frozen())
}

func TestHandleMessageKeywordFallback(t *testing.T) {
	rt := testRuntime(t)

	// No LLM configured: the display name 房间 routes to a semantic_query.
	result, err := rt.HandleMessage(context.Background(), "看一下房间情况",
		action.User{ID: "1", Role: "front_desk"})
	require.NoError(t, err)

	assert.Equal(t, debug.StatusSuccess, result.Status)
	assert.Equal(t, []string{"semantic_query"}, result.ActionsExecuted)
	require.Len(t, result.Attempts, 1)

	// The whole pipeline was recorded.
	sess, err := rt.DebugStore().GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, debug.StatusSuccess, sess.Status)
	assert.Equal(t, "看一下房间情况", sess.InputMessage)
	assert.NotNil(t, sess.RetrievedSchema)
	assert.Equal(t, []string{"semantic_query"}, sess.ActionsExecuted)

	attempts, err := rt.DebugStore().GetAttempts(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 0, attempts[0].AttemptNumber)
	assert.Equal(t, "semantic_query", attempts[0].ActionName)
	assert.True(t, attempts[0].Success)
}

func TestHandleMessageNoIntent(t *testing.T) {
	rt := testRuntime(t)

	result, err := rt.HandleMessage(context.Background(), "hello there",
		action.User{ID: "1", Role: "front_desk"})
	require.NoError(t, err, "unextractable intent fails the session, not the call")

	assert.Equal(t, debug.StatusError, result.Status)
	require.NotEmpty(t, result.Errors)

	sess, err := rt.DebugStore().GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, debug.StatusError, sess.Status)
	assert.NotEmpty(t, sess.Errors)
}

func TestFinalStatus(t *testing.T) {
	tests := []struct {
		name     string
		executed []string
		errs     []string
		want     debug.SessionStatus
	}{
		{"no errors", []string{"semantic_query"}, nil, debug.StatusSuccess},
		{"nothing ran", nil, []string{"could not determine intent"}, debug.StatusError},
		{"some actions landed", []string{"walkin_checkin"}, []string{"second action failed"}, debug.StatusPartial},
		{"empty session", nil, nil, debug.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, finalStatus(tt.executed, tt.errs))
		})
	}
}

func TestHandleMessageReplayRoundTrip(t *testing.T) {
	rt := testRuntime(t)

	// Entity keyword matches Guest (客人), the query succeeds; then verify a
	// replay of the recorded session reproduces the result.
	result, err := rt.HandleMessage(context.Background(), "客人名单",
		action.User{ID: "1", Role: "front_desk"})
	require.NoError(t, err)
	require.Equal(t, debug.StatusSuccess, result.Status)

	rec, err := rt.Replayer().Replay(context.Background(), result.SessionID, nil, false, true)
	require.NoError(t, err)
	assert.True(t, rec.Success)
	require.Len(t, rec.Attempts, 1)
	assert.Equal(t, "semantic_query", rec.Attempts[0].ActionName)

	loaded, err := rt.DebugStore().GetReplay(context.Background(), rec.ReplayID)
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, loaded.OriginalSessionID)
}
