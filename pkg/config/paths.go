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
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDir returns the foyer data directory.
//
// Priority:
//  1. FOYER_DATA_DIR environment variable (if set and non-empty)
//  2. ~/.foyer (default)
//
// The returned path is always absolute; a leading tilde expands to the
// user's home directory. This reads os.Getenv directly because it runs
// during bootstrap, before the config file is located.
func DataDir() string {
	if dir := os.Getenv("FOYER_DATA_DIR"); dir != "" {
		return expandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".foyer"
	}
	return filepath.Join(home, ".foyer")
}

// SubDir returns (and creates) a subdirectory within the data directory.
func SubDir(name string) (string, error) {
	dir := filepath.Join(DataDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DebugStorePath returns the default debug store location.
func DebugStorePath() string {
	return filepath.Join(DataDir(), "debug.db")
}

// expandPath expands a leading ~ and makes the path absolute.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
