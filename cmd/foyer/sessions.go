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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foyer-ai/foyer/pkg/debug"
)

var (
	listUserID int
	listStatus string
	listLimit  int
	listOffset int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recorded debug sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		sessions, err := rt.DebugStore().ListSessions(context.Background(),
			listUserID, debug.SessionStatus(listStatus), listLimit, listOffset)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s  %-7s  %s\n",
				s.ID, s.Timestamp.Format("2006-01-02 15:04:05"), s.Status, s.InputMessage)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session with its attempts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		export, err := rt.DebugStore().ExportSession(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(export)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show debug store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.DebugStore().Statistics(context.Background())
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete sessions older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.DebugStore().CleanupOldSessions(context.Background(), cleanupDays)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d sessions\n", n)
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().IntVar(&listUserID, "user", -1, "filter by user id")
	sessionsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (pending, success, error, partial)")
	sessionsListCmd.Flags().IntVar(&listLimit, "limit", 20, "page size")
	sessionsListCmd.Flags().IntVar(&listOffset, "offset", 0, "page offset")
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "retention window in days")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd, statsCmd, cleanupCmd)
}
