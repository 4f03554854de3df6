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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// SessionComparison captures whether the replay changed the outcome.
type SessionComparison struct {
	StatusChanged bool   `json:"status_changed"`
	ResultChanged bool   `json:"result_changed"`
	ResultDiff    string `json:"result_diff,omitempty"`
}

// AttemptComparison is the per-attempt diff between original and replay.
type AttemptComparison struct {
	AttemptNumber  int    `json:"attempt_number"`
	ActionName     string `json:"action_name"`
	SuccessChanged bool   `json:"success_changed"`
	ParamsChanged  bool   `json:"params_changed"`
	ParamsDiff     string `json:"params_diff,omitempty"`
	ErrorChanged   bool   `json:"error_changed"`
	OriginalError  string `json:"original_error,omitempty"`
	ReplayError    string `json:"replay_error,omitempty"`
}

// PerformanceDiff is the timing and token delta.
type PerformanceDiff struct {
	TimeDeltaMS      int64   `json:"time_delta_ms"`
	TimeDeltaPercent float64 `json:"time_delta_percent"`
	TokenDelta       int     `json:"token_delta"`
	TokenDeltaPct    float64 `json:"token_delta_percent"`
}

// ReplayDiff is the full comparison between a session and its replay.
type ReplayDiff struct {
	SessionComparison SessionComparison   `json:"session_comparison"`
	AttemptComparison []AttemptComparison `json:"attempt_comparison"`
	PerformanceDiff   PerformanceDiff     `json:"performance_diff"`
	Summary           string              `json:"summary"`
}

// CompareSessions diffs the original session against a replay result.
func (r *Replayer) CompareSessions(ctx context.Context, originalID string, replay *ReplayRecord) (*ReplayDiff, error) {
	sess, err := r.store.GetSession(ctx, originalID)
	if err != nil {
		return nil, err
	}
	attempts, err := r.store.GetAttempts(ctx, originalID)
	if err != nil {
		return nil, err
	}

	diff := &ReplayDiff{}

	originalSucceeded := sess.Status == StatusSuccess
	diff.SessionComparison.StatusChanged = originalSucceeded != replay.Success
	origResult := canonicalJSON(sess.FinalResult)
	replayResult := canonicalJSON(replay.Result)
	if origResult != replayResult {
		diff.SessionComparison.ResultChanged = true
		diff.SessionComparison.ResultDiff = textDiff(origResult, replayResult)
	}

	replayByNumber := make(map[int]ReplayAttempt, len(replay.Attempts))
	for _, a := range replay.Attempts {
		replayByNumber[a.AttemptNumber] = a
	}
	for _, orig := range attempts {
		rep, ok := replayByNumber[orig.AttemptNumber]
		if !ok {
			continue
		}
		cmp := AttemptComparison{
			AttemptNumber:  orig.AttemptNumber,
			ActionName:     orig.ActionName,
			SuccessChanged: orig.Success != rep.Success,
			ErrorChanged:   orig.Error != rep.Error,
			OriginalError:  orig.Error,
			ReplayError:    rep.Error,
		}
		origParams := canonicalJSON(orig.Params)
		repParams := canonicalJSON(rep.Params)
		if origParams != repParams {
			cmp.ParamsChanged = true
			cmp.ParamsDiff = textDiff(origParams, repParams)
		}
		diff.AttemptComparison = append(diff.AttemptComparison, cmp)
	}

	diff.PerformanceDiff.TimeDeltaMS = replay.ExecutionTimeMS - sess.ExecutionTimeMS
	if sess.ExecutionTimeMS > 0 {
		diff.PerformanceDiff.TimeDeltaPercent =
			float64(diff.PerformanceDiff.TimeDeltaMS) / float64(sess.ExecutionTimeMS) * 100
	}
	diff.PerformanceDiff.TokenDelta = replay.LLMTokensUsed - sess.LLMTokensUsed
	if sess.LLMTokensUsed > 0 {
		diff.PerformanceDiff.TokenDeltaPct =
			float64(diff.PerformanceDiff.TokenDelta) / float64(sess.LLMTokensUsed) * 100
	}

	diff.Summary = summarize(diff)
	return diff, nil
}

// textDiff renders a compact human-readable diff between two strings.
func textDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var parts []string
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			parts = append(parts, "+"+d.Text)
		case diffmatchpatch.DiffDelete:
			parts = append(parts, "-"+d.Text)
		}
	}
	return strings.Join(parts, " ")
}

// canonicalJSON renders a value deterministically for comparison. Map keys
// are sorted by encoding/json.
func canonicalJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func summarize(d *ReplayDiff) string {
	var b strings.Builder
	if d.SessionComparison.StatusChanged {
		b.WriteString("status changed; ")
	} else {
		b.WriteString("status unchanged; ")
	}
	if d.SessionComparison.ResultChanged {
		b.WriteString("result changed; ")
	}
	changed := 0
	for _, a := range d.AttemptComparison {
		if a.SuccessChanged || a.ParamsChanged || a.ErrorChanged {
			changed++
		}
	}
	fmt.Fprintf(&b, "%d/%d attempts differ; ", changed, len(d.AttemptComparison))
	fmt.Fprintf(&b, "time %+dms (%.1f%%), tokens %+d",
		d.PerformanceDiff.TimeDeltaMS, d.PerformanceDiff.TimeDeltaPercent,
		d.PerformanceDiff.TokenDelta)
	return b.String()
}
