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
	"strings"

	"github.com/spf13/cobra"

	"github.com/foyer-ai/foyer/pkg/action"
)

var (
	askUserID string
	askRole   string
)

var askCmd = &cobra.Command{
	Use:   "ask <natural language request>",
	Short: "Run a natural-language request through the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		user := action.User{ID: askUserID, Role: askRole}
		result, err := rt.HandleMessage(context.Background(), strings.Join(args, " "), user)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <root-entity>",
	Short: "Run a structured query against the catalogue",
	Long: `Runs the semantic_query action directly. Fields and filters are dot-paths
over the ontology, e.g.:

  foyer query Guest --fields name,stays.room.room_number --filter stays.status=active`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		params := map[string]any{"root_object": args[0]}
		if queryFields != "" {
			var fields []any
			for _, f := range strings.Split(queryFields, ",") {
				fields = append(fields, strings.TrimSpace(f))
			}
			params["fields"] = fields
		}
		var conditions []any
		for _, f := range queryFilters {
			path, value, found := strings.Cut(f, "=")
			if !found {
				return fmt.Errorf("invalid --filter %q, expected path=value", f)
			}
			conditions = append(conditions, map[string]any{"field": path, "value": value})
		}
		if len(conditions) > 0 {
			params["conditions"] = conditions
		}
		if queryLimit > 0 {
			params["limit"] = queryLimit
		}

		user := action.User{ID: askUserID, Role: askRole}
		outcome, loopErr := rt.Loop().Execute(context.Background(), "semantic_query", params, user)
		if loopErr != nil {
			detail, _ := json.MarshalIndent(loopErr.Err, "", "  ")
			return fmt.Errorf("query failed:\n%s", detail)
		}
		return printJSON(outcome.Result)
	},
}

var (
	queryFields  string
	queryFilters []string
	queryLimit   int
)

func init() {
	askCmd.Flags().StringVar(&askUserID, "user", "1", "user id for audit records")
	askCmd.Flags().StringVar(&askRole, "role", "front_desk", "caller role")
	queryCmd.Flags().StringVar(&queryFields, "fields", "", "comma-separated dot-path fields")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "path=value filter (repeatable)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "max rows")
	queryCmd.Flags().StringVar(&askUserID, "user", "1", "user id for audit records")
	queryCmd.Flags().StringVar(&askRole, "role", "front_desk", "caller role")
	rootCmd.AddCommand(askCmd, queryCmd)
}
