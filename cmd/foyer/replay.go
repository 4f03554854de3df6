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
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foyer-ai/foyer/pkg/debug"
)

var (
	replayDryRun    bool
	replayNoSave    bool
	replayCompare   bool
	replayModel     string
	replayOverrides string
)

var replayCmd = &cobra.Command{
	Use:   "replay <session-id>",
	Short: "Re-execute a recorded session, optionally with overrides",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		var overrides debug.ReplayOverrides
		if replayOverrides != "" {
			if err := json.Unmarshal([]byte(replayOverrides), &overrides); err != nil {
				return fmt.Errorf("invalid --overrides JSON: %w", err)
			}
		}
		if replayModel != "" {
			overrides.LLMModel = &replayModel
		}

		ctx := context.Background()
		rec, err := rt.Replayer().Replay(ctx, args[0], &overrides, replayDryRun, !replayNoSave)
		if err != nil {
			return err
		}
		if err := printJSON(rec); err != nil {
			return err
		}

		if replayCompare && !replayDryRun {
			diff, err := rt.Replayer().CompareSessions(ctx, args[0], rec)
			if err != nil {
				return err
			}
			return printJSON(diff)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "resolve config and attempts without executing")
	replayCmd.Flags().BoolVar(&replayNoSave, "no-save", false, "do not persist the replay record")
	replayCmd.Flags().BoolVar(&replayCompare, "compare", false, "diff the replay against the original session")
	replayCmd.Flags().StringVar(&replayModel, "model", "", "override the LLM model")
	replayCmd.Flags().StringVar(&replayOverrides, "overrides", "", "full ReplayOverrides JSON")
	rootCmd.AddCommand(replayCmd)
}
