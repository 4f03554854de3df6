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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foyer-ai/foyer/internal/hoteldemo"
	"github.com/foyer-ai/foyer/pkg/config"
	"github.com/foyer-ai/foyer/pkg/runtime"
)

var rootCmd = &cobra.Command{
	Use:   "foyer",
	Short: "Foyer - ontology-driven execution runtime for hotel operations",
	Long: `Foyer converts natural-language front-desk requests into validated,
auditable, and replayable business actions against a relational store.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap assembles a runtime over the hotel demo catalogue. Callers must
// Close the returned runtime.
func bootstrap() (*runtime.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	onto, err := hoteldemo.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalogue: %w", err)
	}
	db, err := hoteldemo.OpenStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := hoteldemo.Seed(db); err != nil {
		return nil, err
	}

	rt, err := runtime.New(cfg, onto, db)
	if err != nil {
		return nil, err
	}
	rt.Rules().LoadAliases(hoteldemo.StateAliases())

	if err := hoteldemo.RegisterActions(rt.Actions(), rt.Executor(), onto, rt.Rules()); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.Freeze(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
