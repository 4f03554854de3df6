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
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/foyer-ai/foyer/internal/log"
)

// DefaultRetentionDays is how long sessions are kept before cleanup.
const DefaultRetentionDays = 30

// RetentionWorker periodically deletes old sessions on a cron schedule.
type RetentionWorker struct {
	store *Store
	cron  *cron.Cron
	days  int
}

// NewRetentionWorker builds a worker. spec is a cron expression; empty
// means the default nightly run at 03:30.
func NewRetentionWorker(store *Store, spec string, days int) (*RetentionWorker, error) {
	if spec == "" {
		spec = "30 3 * * *"
	}
	if days <= 0 {
		days = DefaultRetentionDays
	}
	w := &RetentionWorker{
		store: store,
		cron:  cron.New(),
		days:  days,
	}
	logger := log.Named("retention").Sugar()
	_, err := w.cron.AddFunc(spec, func() {
		n, err := store.CleanupOldSessions(context.Background(), w.days)
		if err != nil {
			logger.Errorw("session cleanup failed", "error", err)
			return
		}
		logger.Infow("session cleanup finished", "deleted", n, "retention_days", w.days)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}
	return w, nil
}

// Start begins the schedule.
func (w *RetentionWorker) Start() { w.cron.Start() }

// Stop halts the schedule, waiting for a running job to finish.
func (w *RetentionWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}
