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

// Package query turns a structured query IR into SQL, runs it against the
// row store, and renders a display-ready result table.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/foyer-ai/foyer/internal/log"
	"github.com/foyer-ai/foyer/pkg/ontology"
	"github.com/foyer-ai/foyer/pkg/semantic"
)

// maxAutoFields caps the column count when a query names no fields.
const maxAutoFields = 8

// Executor runs structured queries against a SQL store using the ontology's
// model bindings.
type Executor struct {
	reg      *ontology.Registry
	resolver *semantic.Resolver
	db       *sql.DB
	logger   *zap.SugaredLogger
}

// NewExecutor wires an executor over a registry and store handle.
func NewExecutor(reg *ontology.Registry, db *sql.DB) *Executor {
	return &Executor{
		reg:      reg,
		resolver: semantic.NewResolver(reg),
		db:       db,
		logger:   log.Named("query").Sugar(),
	}
}

// Result is a display-ready query result. Rows hold formatted strings in
// column order; Raw keeps the unformatted values keyed by path.
type Result struct {
	Columns []string         `json:"columns"` // display headers
	Paths   []string         `json:"paths"`   // dot-paths, one per column
	Rows    [][]string       `json:"rows"`
	Raw     []map[string]any `json:"raw,omitempty"`
	Count   int              `json:"count"`
	Summary string           `json:"summary"`
	SQL     string           `json:"sql,omitempty"`
}

// column is one SELECT target: the table alias, storage column, source path,
// and the property metadata used for header and formatting.
type column struct {
	alias string
	col   string
	path  string
	prop  *ontology.PropertyMetadata
}

// Execute compiles the IR to SQL and runs it. Aggregate queries return a
// single-row result; plain queries return the projected table.
func (e *Executor) Execute(ctx context.Context, q *semantic.StructuredQuery) (*Result, error) {
	if q.Aggregate != nil {
		return e.executeAggregate(ctx, q)
	}
	return e.executeSelect(ctx, q)
}

func (e *Executor) executeSelect(ctx context.Context, q *semantic.StructuredQuery) (*Result, error) {
	plan, err := e.plan(q)
	if err != nil {
		return nil, err
	}

	cols, err := e.selectColumns(q, plan)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct || plan.hasCollectionJoin {
		b.WriteString("DISTINCT ")
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s.%s AS %q", c.alias, c.col, c.path)
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(plan.fromClause)

	args, err := e.appendWhere(&b, q, plan)
	if err != nil {
		return nil, err
	}
	if err := e.appendOrderLimit(&b, q, plan); err != nil {
		return nil, err
	}

	sqlText := b.String()
	e.logger.Debugw("executing query", "sql", sqlText, "args", args)

	rows, err := e.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution: %w", err)
	}
	defer rows.Close()

	result := &Result{
		Columns: make([]string, len(cols)),
		Paths:   make([]string, len(cols)),
		SQL:     sqlText,
	}
	for i, c := range cols {
		result.Columns[i] = c.prop.Header()
		result.Paths[i] = c.path
	}

	scan := make([]any, len(cols))
	holders := make([]any, len(cols))
	for i := range holders {
		scan[i] = &holders[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("row scan: %w", err)
		}
		formatted := make([]string, len(cols))
		raw := make(map[string]any, len(cols))
		for i, c := range cols {
			raw[c.path] = holders[i]
			formatted[i] = FormatValue(c.prop, holders[i])
		}
		result.Rows = append(result.Rows, formatted)
		result.Raw = append(result.Raw, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}

	result.Count = len(result.Rows)
	result.Summary = fmt.Sprintf("共 %d 条记录", result.Count)
	return result, nil
}

func (e *Executor) executeAggregate(ctx context.Context, q *semantic.StructuredQuery) (*Result, error) {
	plan, err := e.plan(q)
	if err != nil {
		return nil, err
	}
	agg := q.Aggregate

	aggExpr := "COUNT(*)"
	if agg.Path != "" {
		ref, _, err := e.columnRef(q.Root, agg.Path, plan)
		if err != nil {
			// Unresolvable aggregate paths degrade to a row count so the
			// caller still gets an answer.
			e.logger.Warnw("aggregate path degraded to count", "path", agg.Path, "error", err)
		} else {
			aggExpr = fmt.Sprintf("%s(%s)", strings.ToUpper(string(agg.Func)), ref)
		}
	} else if agg.Func != semantic.AggCount {
		return nil, fmt.Errorf("aggregate %s requires a path", agg.Func)
	}

	alias := agg.Alias
	if alias == "" {
		alias = string(agg.Func)
	}

	var groupRefs []string
	var groupCols []column
	for _, path := range agg.GroupBy {
		ref, c, err := e.columnRef(q.Root, path, plan)
		if err != nil {
			return nil, err
		}
		groupRefs = append(groupRefs, ref)
		groupCols = append(groupCols, c)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	for i, c := range groupCols {
		fmt.Fprintf(&b, "%s AS %q, ", groupRefs[i], c.path)
	}
	fmt.Fprintf(&b, "%s AS %q", aggExpr, alias)
	b.WriteString(plan.fromClause)

	args, err := e.appendWhere(&b, q, plan)
	if err != nil {
		return nil, err
	}
	if len(groupRefs) > 0 {
		b.WriteString(" GROUP BY " + strings.Join(groupRefs, ", "))
	}

	sqlText := b.String()
	e.logger.Debugw("executing aggregate", "sql", sqlText, "args", args)

	rows, err := e.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate execution: %w", err)
	}
	defer rows.Close()

	result := &Result{SQL: sqlText}
	for _, c := range groupCols {
		result.Columns = append(result.Columns, c.prop.Header())
		result.Paths = append(result.Paths, c.path)
	}
	result.Columns = append(result.Columns, alias)
	result.Paths = append(result.Paths, alias)

	width := len(groupCols) + 1
	scan := make([]any, width)
	holders := make([]any, width)
	for i := range holders {
		scan[i] = &holders[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("aggregate scan: %w", err)
		}
		formatted := make([]string, width)
		raw := make(map[string]any, width)
		for i := 0; i < len(groupCols); i++ {
			raw[groupCols[i].path] = holders[i]
			formatted[i] = FormatValue(groupCols[i].prop, holders[i])
		}
		raw[alias] = holders[width-1]
		formatted[width-1] = FormatValue(nil, holders[width-1])
		result.Rows = append(result.Rows, formatted)
		result.Raw = append(result.Raw, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate iteration: %w", err)
	}

	result.Count = len(result.Rows)
	result.Summary = fmt.Sprintf("共 %d 条记录", result.Count)
	return result, nil
}

// queryPlan carries the FROM/JOIN clause and the alias assigned to each join
// key. t0 is always the root table.
type queryPlan struct {
	rootModel         *ontology.ModelBinding
	aliases           map[string]string // JoinClause.Key() -> table alias
	entities          map[string]string // alias -> entity name
	fromClause        string
	hasCollectionJoin bool
}

// plan assigns table aliases and builds the FROM clause from the IR's
// deduplicated joins. Joins arrive sorted by depth, so a join's parent is
// always planned before it.
func (e *Executor) plan(q *semantic.StructuredQuery) (*queryPlan, error) {
	rootEntity, ok := e.reg.Entity(q.Root)
	if !ok {
		return nil, fmt.Errorf("unknown root entity %q", q.Root)
	}
	rootModel, ok := e.reg.Model(rootEntity.Name)
	if !ok {
		return nil, fmt.Errorf("entity %q has no model binding", rootEntity.Name)
	}

	plan := &queryPlan{
		rootModel: rootModel,
		aliases:   make(map[string]string),
		entities:  map[string]string{"t0": rootEntity.Name},
	}

	var b strings.Builder
	fmt.Fprintf(&b, " FROM %s t0", rootModel.Table)

	// Parent lookup by prefix: the join one hop shorter.
	prefixAlias := map[string]string{"": "t0"}
	prefixEntity := map[string]string{"": rootEntity.Name}

	for i, join := range q.Joins {
		alias := fmt.Sprintf("t%d", i+1)
		parentPrefix := strings.Join(join.PathPrefix[:len(join.PathPrefix)-1], ".")
		parentAlias, ok := prefixAlias[parentPrefix]
		if !ok {
			return nil, fmt.Errorf("join %q has no planned parent", join.Key())
		}
		parentEntity := prefixEntity[parentPrefix]

		rel, ok := e.reg.Relationship(parentEntity, join.Attribute)
		if !ok {
			return nil, fmt.Errorf("relationship %s.%s not registered", parentEntity, join.Attribute)
		}
		targetModel, ok := e.reg.Model(join.Target)
		if !ok {
			return nil, fmt.Errorf("entity %q has no model binding", join.Target)
		}
		parentModel, _ := e.reg.Model(parentEntity)

		var on string
		switch rel.Cardinality {
		case ontology.OneToMany:
			// FK lives on the target table pointing back at the parent.
			on = fmt.Sprintf("%s.%s = %s.%s", alias, rel.ForeignKeyColumn, parentAlias, parentModel.PrimaryKey)
			plan.hasCollectionJoin = true
		case ontology.ManyToOne, ontology.OneToOne:
			// FK lives on the parent table pointing at the target.
			on = fmt.Sprintf("%s.%s = %s.%s", parentAlias, rel.ForeignKeyColumn, alias, targetModel.PrimaryKey)
		default:
			return nil, fmt.Errorf("relationship %s.%s: cardinality %s needs a join table and is not queryable",
				parentEntity, join.Attribute, rel.Cardinality)
		}

		joinWord := "JOIN"
		if join.Type == semantic.JoinLeft {
			joinWord = "LEFT JOIN"
		}
		fmt.Fprintf(&b, " %s %s %s ON %s", joinWord, targetModel.Table, alias, on)

		key := strings.Join(join.PathPrefix, ".")
		plan.aliases[join.Key()] = alias
		plan.entities[alias] = join.Target
		prefixAlias[key] = alias
		prefixEntity[key] = join.Target
	}

	plan.fromClause = b.String()
	return plan, nil
}

// columnRef resolves a dot-path to its SQL reference within the plan.
func (e *Executor) columnRef(root, path string, plan *queryPlan) (string, column, error) {
	resolved, err := e.resolver.ResolvePath(root, path)
	if err != nil {
		return "", column{}, err
	}
	if resolved.FinalField == "" {
		return "", column{}, fmt.Errorf("path %q ends on a relationship, expected a property", path)
	}

	alias := "t0"
	if len(resolved.Joins) > 0 {
		last := resolved.Joins[len(resolved.Joins)-1]
		alias = plan.aliases[last.Key()]
		if alias == "" {
			return "", column{}, fmt.Errorf("path %q references an unplanned join", path)
		}
	}

	entity, _ := e.reg.Entity(resolved.FinalEntity)
	prop, ok := entity.Property(resolved.FinalField)
	if !ok {
		return "", column{}, fmt.Errorf("property %s.%s not registered", resolved.FinalEntity, resolved.FinalField)
	}
	model, ok := e.reg.Model(resolved.FinalEntity)
	if !ok {
		return "", column{}, fmt.Errorf("entity %q has no model binding", resolved.FinalEntity)
	}

	col := model.Column(resolved.FinalField)
	c := column{alias: alias, col: col, path: path, prop: prop}
	return alias + "." + col, c, nil
}

// selectColumns materializes the projection. An empty field list auto-selects
// display-worthy root properties: skips keys and anything RESTRICTED, capped
// at maxAutoFields.
func (e *Executor) selectColumns(q *semantic.StructuredQuery, plan *queryPlan) ([]column, error) {
	fields := q.Fields
	if len(fields) == 0 {
		entity, _ := e.reg.Entity(q.Root)
		for _, prop := range entity.OrderedProperties() {
			if prop.IsPrimaryKey || prop.IsForeignKey || prop.Security == ontology.SecurityRestricted {
				continue
			}
			fields = append(fields, prop.Name)
			if len(fields) >= maxAutoFields {
				break
			}
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("entity %q has no selectable properties", q.Root)
		}
	}

	cols := make([]column, 0, len(fields))
	for _, path := range fields {
		_, c, err := e.columnRef(q.Root, path, plan)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// appendWhere renders the WHERE clause and returns the bind arguments.
func (e *Executor) appendWhere(b *strings.Builder, q *semantic.StructuredQuery, plan *queryPlan) ([]any, error) {
	if len(q.Filters) == 0 {
		return nil, nil
	}

	var args []any
	var conds []string
	for _, f := range q.Filters {
		ref, _, err := e.columnRef(q.Root, f.Path, plan)
		if err != nil {
			return nil, err
		}
		cond, condArgs, err := renderCondition(ref, f)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
		args = append(args, condArgs...)
	}
	b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	return args, nil
}

// renderCondition renders one filter as SQL with placeholders.
func renderCondition(ref string, f semantic.SemanticFilter) (string, []any, error) {
	switch f.Operator {
	case semantic.OpEq:
		return ref + " = ?", []any{f.Value}, nil
	case semantic.OpNe:
		return ref + " <> ?", []any{f.Value}, nil
	case semantic.OpGt:
		return ref + " > ?", []any{f.Value}, nil
	case semantic.OpGte:
		return ref + " >= ?", []any{f.Value}, nil
	case semantic.OpLt:
		return ref + " < ?", []any{f.Value}, nil
	case semantic.OpLte:
		return ref + " <= ?", []any{f.Value}, nil
	case semantic.OpLike:
		return ref + " LIKE ?", []any{likePattern(f.Value)}, nil
	case semantic.OpNotLike:
		return ref + " NOT LIKE ?", []any{likePattern(f.Value)}, nil
	case semantic.OpIsNull:
		return ref + " IS NULL", nil, nil
	case semantic.OpIsNotNull:
		return ref + " IS NOT NULL", nil, nil
	case semantic.OpIn, semantic.OpNotIn:
		values, err := valueList(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", f.Path, err)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		word := "IN"
		if f.Operator == semantic.OpNotIn {
			word = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", ref, word, placeholders), values, nil
	case semantic.OpBetween:
		values, err := valueList(f.Value)
		if err != nil || len(values) != 2 {
			return "", nil, fmt.Errorf("filter %s: between needs exactly two values", f.Path)
		}
		return ref + " BETWEEN ? AND ?", values, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", f.Operator)
	}
}

// likePattern wraps a bare value in wildcards; values that already carry a
// wildcard pass through.
func likePattern(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if strings.ContainsAny(s, "%_") {
		return s
	}
	return "%" + s + "%"
}

// valueList normalizes a filter value to a slice of bind arguments.
func valueList(v any) ([]any, error) {
	switch vals := v.(type) {
	case []any:
		if len(vals) == 0 {
			return nil, fmt.Errorf("empty value list")
		}
		return vals, nil
	case []string:
		out := make([]any, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func (e *Executor) appendOrderLimit(b *strings.Builder, q *semantic.StructuredQuery, plan *queryPlan) error {
	if len(q.OrderBy) > 0 {
		var parts []string
		for _, o := range q.OrderBy {
			ref, _, err := e.columnRef(q.Root, o.Path, plan)
			if err != nil {
				return err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, ref+" "+dir)
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(b, " LIMIT %d", q.Limit)
		if q.Offset > 0 {
			fmt.Fprintf(b, " OFFSET %d", q.Offset)
		}
	}
	return nil
}
