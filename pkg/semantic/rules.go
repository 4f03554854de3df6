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
package semantic

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RuleApplicator replaces operator phrasing with canonical ontology values
// before filter translation (e.g. "净房" -> "vacant_clean"). Aliases are
// keyed case-insensitively.
type RuleApplicator struct {
	mu      sync.RWMutex
	aliases map[string]string
	logger  *zap.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewRuleApplicator creates an applicator with an initial alias table.
func NewRuleApplicator(aliases map[string]string, logger *zap.Logger) *RuleApplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ra := &RuleApplicator{aliases: make(map[string]string), logger: logger}
	ra.setAliases(aliases)
	return ra
}

func (ra *RuleApplicator) setAliases(aliases map[string]string) {
	normalized := make(map[string]string, len(aliases))
	for k, v := range aliases {
		normalized[strings.ToLower(k)] = v
	}
	ra.mu.Lock()
	ra.aliases = normalized
	ra.mu.Unlock()
}

// LoadAliases replaces the alias table in place.
func (ra *RuleApplicator) LoadAliases(aliases map[string]string) {
	ra.setAliases(aliases)
}

// Apply returns the canonical value for v, or v unchanged when no alias
// matches.
func (ra *RuleApplicator) Apply(v string) string {
	ra.mu.RLock()
	defer ra.mu.RUnlock()
	if canonical, ok := ra.aliases[strings.ToLower(strings.TrimSpace(v))]; ok {
		return canonical
	}
	return v
}

// ApplyValue applies aliases to string values, passing everything else
// through untouched.
func (ra *RuleApplicator) ApplyValue(v any) any {
	if s, ok := v.(string); ok {
		return ra.Apply(s)
	}
	return v
}

// LoadFile replaces the alias table from a YAML file of the form:
//
//	aliases:
//	  净房: vacant_clean
//	  脏房: vacant_dirty
func (ra *RuleApplicator) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read alias rules %s: %w", path, err)
	}
	ra.setAliases(v.GetStringMapString("aliases"))
	ra.logger.Info("alias rules loaded", zap.String("path", path))
	return nil
}

// Watch reloads the alias file whenever it changes on disk. Writes are
// debounced; call Stop during shutdown.
func (ra *RuleApplicator) Watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	ra.watcher = watcher
	ra.done = make(chan struct{})

	go func() {
		defer close(ra.done)
		var timer *time.Timer
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				// Editors fire bursts of writes; reload once per burst.
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					if err := ra.LoadFile(path); err != nil {
						ra.logger.Warn("alias rule reload failed", zap.Error(err))
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				ra.logger.Warn("alias rule watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// Stop closes the watcher and waits for the watch goroutine to exit.
func (ra *RuleApplicator) Stop() {
	if ra.watcher != nil {
		ra.watcher.Close()
		<-ra.done
		ra.watcher = nil
	}
}
