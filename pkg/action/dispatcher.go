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
package action

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/foyer-ai/foyer/internal/log"
	"github.com/foyer-ai/foyer/pkg/ontology"
)

// Dispatcher runs actions through the fixed pipeline: lookup, parameter
// validation, role check, constraint evaluation, then the handler inside a
// transaction for mutating categories. The pipeline order is load-bearing:
// a caller without permission never reaches constraint evaluation or the
// handler, and invalid parameters are rejected before the role check so the
// reflexion loop can correct them without burning an authorization failure.
type Dispatcher struct {
	registry *Registry
	meta     *ontology.Registry
	db       *sql.DB
	logger   Logger
}

// NewDispatcher wires a dispatcher. db may be nil when every registered
// handler is store-free (tests do this).
func NewDispatcher(registry *Registry, meta *ontology.Registry, db *sql.DB) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		meta:     meta,
		db:       db,
		logger:   log.Named("dispatcher").Sugar(),
	}
}

// Dispatch executes the named action for user. On failure the returned error
// is always an *ExecutionError.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]any, user User) (any, error) {
	reg, ok := d.registry.Lookup(name)
	if !ok {
		execErr := NewError(KindNotFound, fmt.Sprintf("unknown action %q", name))
		execErr.Code = "UNKNOWN_ACTION"
		if suggestions := d.registry.SuggestNames(name, 3); len(suggestions) > 0 {
			execErr.WithContext("suggestions", suggestions)
		}
		return nil, execErr
	}
	def := reg.Definition

	coerced, issues := ValidateParams(def.Parameters, params)
	if len(issues) > 0 {
		return nil, &ExecutionError{
			Kind:    KindValidationError,
			Message: fmt.Sprintf("invalid parameters for action %q", def.Name),
			Issues:  issues,
		}
	}

	if !def.RoleAllowed(user.Role) {
		d.logger.Warnw("permission denied", "action", def.Name, "user", user.ID, "role", user.Role)
		execErr := NewError(KindPermissionDenied, fmt.Sprintf("role %q may not invoke %q", user.Role, def.Name))
		execErr.WithContext("allowed_roles", def.AllowedRoles)
		return nil, execErr
	}

	if err := d.checkConstraints(def, coerced); err != nil {
		return nil, err
	}

	env := &Env{
		DB:     d.db,
		User:   user,
		Meta:   d.meta,
		Logger: d.logger,
	}

	if def.Category == ontology.CategoryQuery || d.db == nil {
		result, err := reg.Handler(ctx, coerced, env)
		if err != nil {
			return nil, Classify(err)
		}
		return result, nil
	}

	// Mutations and workflows run inside a transaction; a handler error
	// rolls back everything the handler wrote.
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Classify(fmt.Errorf("begin transaction: %w", err))
	}
	env.Tx = tx
	result, err := reg.Handler(ctx, coerced, env)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Errorw("rollback failed", "action", def.Name, "error", rbErr)
		}
		return nil, Classify(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, Classify(fmt.Errorf("commit: %w", err))
	}

	d.logger.Infow("action executed", "action", def.Name, "user", user.ID, "category", def.Category)
	return result, nil
}

// checkConstraints evaluates ontology constraints bound to the action's
// entity. ERROR severity violations abort the dispatch; WARNING violations
// are logged and execution continues.
func (d *Dispatcher) checkConstraints(def *ontology.ActionDefinition, params map[string]any) *ExecutionError {
	if def.Entity == "" {
		return nil
	}
	for _, c := range d.meta.ConstraintsFor(def.Entity, def.Name) {
		if c.Predicate == nil || c.Predicate(params) {
			continue
		}
		msg := c.Message
		if msg == "" {
			msg = fmt.Sprintf("constraint %s violated", c.ID)
		}
		if c.Severity == ontology.SeverityWarning {
			d.logger.Warnw("constraint warning", "constraint", c.ID, "action", def.Name, "message", msg)
			continue
		}
		execErr := NewError(KindBusinessError, msg)
		execErr.Code = c.ID
		return execErr
	}
	return nil
}
