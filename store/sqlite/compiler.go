// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

// whereClause is a compiled predicate fragment with its bound
// arguments. An empty SQL string is the defined no-op filter.
type whereClause struct {
	SQL  string
	Args []any
}

func (w whereClause) empty() bool { return w.SQL == "" }

// compileExpr turns a filter expression into a parameterized predicate
// over the given JSON data column. Every literal — JSON paths included —
// is a bound parameter; only fixed SQL keywords and the column name are
// concatenated.
func compileExpr(e *graph.Expr, dataCol string) (whereClause, error) {
	if e == nil {
		return whereClause{}, nil
	}

	switch e.Operator {
	case graph.OperatorAnd, graph.OperatorOr:
		return compileBoolean(e, dataCol)

	case graph.OperatorEquals, graph.OperatorNotEquals,
		graph.OperatorGreaterThan, graph.OperatorGreaterThanOrEqualTo,
		graph.OperatorLessThan, graph.OperatorLessThanOrEqualTo:
		return compileComparison(e, dataCol)

	case graph.OperatorIn, graph.OperatorNotIn:
		return compileMembership(e, dataCol)

	case graph.OperatorContains, graph.OperatorContainsNot,
		graph.OperatorStartsWith, graph.OperatorStartsWithNot,
		graph.OperatorEndsWith, graph.OperatorEndsWithNot:
		return compilePattern(e, dataCol)

	case graph.OperatorIsNull, graph.OperatorIsNotNull:
		term, args, err := compileTerm(e.Left, dataCol)
		if err != nil {
			return whereClause{}, err
		}
		op := " IS NULL"
		if e.Operator == graph.OperatorIsNotNull {
			op = " IS NOT NULL"
		}
		return whereClause{SQL: term + op, Args: args}, nil

	default:
		return whereClause{}, quiverr.Errorf(quiverr.CodeExprCompileInvalid, "expr: unknown operator %q", e.Operator)
	}
}

// compileTerm compiles a left or nested term: a field-path string
// becomes a JSON-path extraction with the path bound as a parameter; a
// nested expression is compiled and parenthesized.
func compileTerm(term any, dataCol string) (string, []any, error) {
	switch t := term.(type) {
	case string:
		return "json_extract(" + dataCol + ", '$.' || ?)", []any{t}, nil
	case *graph.Expr:
		c, err := compileExpr(t, dataCol)
		if err != nil {
			return "", nil, err
		}
		return "(" + c.SQL + ")", c.Args, nil
	default:
		return "", nil, quiverr.Errorf(quiverr.CodeExprCompileInvalid, "expr: term must be a field path or nested expression, got %T", term)
	}
}

func compileBoolean(e *graph.Expr, dataCol string) (whereClause, error) {
	// A missing right branch makes the whole clause a no-op filter.
	if e.Right == nil {
		return whereClause{}, nil
	}

	left, ok := e.Left.(*graph.Expr)
	if !ok {
		return whereClause{}, quiverr.Errorf(quiverr.CodeExprCompileInvalid, "expr: %s left term must be a nested expression, got %T", e.Operator, e.Left)
	}
	right, ok := e.Right.(*graph.Expr)
	if !ok {
		return whereClause{}, quiverr.Errorf(quiverr.CodeExprCompileInvalid, "expr: %s right term must be a nested expression, got %T", e.Operator, e.Right)
	}

	lc, err := compileExpr(left, dataCol)
	if err != nil {
		return whereClause{}, err
	}
	rc, err := compileExpr(right, dataCol)
	if err != nil {
		return whereClause{}, err
	}

	// A no-op branch collapses the conjunction to its other side.
	if lc.empty() {
		return rc, nil
	}
	if rc.empty() {
		return lc, nil
	}

	kw := " AND "
	if e.Operator == graph.OperatorOr {
		kw = " OR "
	}
	return whereClause{
		SQL:  "(" + lc.SQL + kw + rc.SQL + ")",
		Args: append(lc.Args, rc.Args...),
	}, nil
}

func compileComparison(e *graph.Expr, dataCol string) (whereClause, error) {
	term, args, err := compileTerm(e.Left, dataCol)
	if err != nil {
		return whereClause{}, err
	}

	var op string
	switch e.Operator {
	case graph.OperatorEquals:
		op = " = "
	case graph.OperatorNotEquals:
		op = " != "
	case graph.OperatorGreaterThan:
		op = " > "
	case graph.OperatorGreaterThanOrEqualTo:
		op = " >= "
	case graph.OperatorLessThan:
		op = " < "
	case graph.OperatorLessThanOrEqualTo:
		op = " <= "
	}

	if nested, ok := e.Right.(*graph.Expr); ok {
		rc, err := compileExpr(nested, dataCol)
		if err != nil {
			return whereClause{}, err
		}
		return whereClause{SQL: term + op + "(" + rc.SQL + ")", Args: append(args, rc.Args...)}, nil
	}

	return whereClause{SQL: term + op + "?", Args: append(args, literal(e.Right))}, nil
}

func compileMembership(e *graph.Expr, dataCol string) (whereClause, error) {
	values, ok := listValues(e.Right)
	if !ok || len(values) == 0 {
		// A non-list (or empty) right term is a defined no-op, not an error.
		return whereClause{}, nil
	}

	term, args, err := compileTerm(e.Left, dataCol)
	if err != nil {
		return whereClause{}, err
	}

	kw := " IN ("
	if e.Operator == graph.OperatorNotIn {
		kw = " NOT IN ("
	}
	for _, v := range values {
		args = append(args, literal(v))
	}
	return whereClause{SQL: term + kw + placeholders(len(values)) + ")", Args: args}, nil
}

func compilePattern(e *graph.Expr, dataCol string) (whereClause, error) {
	s, ok := e.Right.(string)
	if !ok {
		// Pattern operators only make sense against a string right term.
		return whereClause{}, nil
	}

	term, args, err := compileTerm(e.Left, dataCol)
	if err != nil {
		return whereClause{}, err
	}

	var pattern string
	negated := false
	switch e.Operator {
	case graph.OperatorContains, graph.OperatorContainsNot:
		pattern = "%" + s + "%"
		negated = e.Operator == graph.OperatorContainsNot
	case graph.OperatorStartsWith, graph.OperatorStartsWithNot:
		pattern = s + "%"
		negated = e.Operator == graph.OperatorStartsWithNot
	case graph.OperatorEndsWith, graph.OperatorEndsWithNot:
		pattern = "%" + s
		negated = e.Operator == graph.OperatorEndsWithNot
	}

	kw := " LIKE ?"
	if negated {
		kw = " NOT LIKE ?"
	}
	return whereClause{SQL: term + kw, Args: append(args, pattern)}, nil
}

// literal maps a Go value to its bound representation. Times are stored
// in the same RFC3339 form the row columns use so comparisons collate;
// GUIDs bind as their canonical text.
func literal(v any) any {
	switch t := v.(type) {
	case time.Time:
		return formatTime(t)
	case uuid.UUID:
		return t.String()
	default:
		return v
	}
}

// listValues reports whether v is list-shaped and returns its elements.
// Strings and byte slices are not lists.
func listValues(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	switch v.(type) {
	case string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out, true
}

// ---------- order compilation ----------

// orderClause maps an enumeration order onto the entity alias. Column
// names come only from this closed set, never from caller input. Cost
// orders are valid only for families that carry a cost column.
func orderClause(order graph.EnumerationOrder, alias string, hasCost bool) (string, error) {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	switch order {
	case "", graph.CreatedDescending:
		return prefix + "created_utc DESC", nil
	case graph.CreatedAscending:
		return prefix + "created_utc ASC", nil
	case graph.NameAscending:
		return prefix + "name ASC", nil
	case graph.NameDescending:
		return prefix + "name DESC", nil
	case graph.GuidAscending:
		return prefix + "id ASC", nil
	case graph.GuidDescending:
		return prefix + "id DESC", nil
	case graph.CostAscending, graph.CostDescending:
		if !hasCost {
			return "", quiverr.Errorf(quiverr.CodeStoreInvalidInput, "order %s is only valid for edges", order)
		}
		if order == graph.CostAscending {
			return prefix + "cost ASC", nil
		}
		return prefix + "cost DESC", nil
	default:
		return "", quiverr.Errorf(quiverr.CodeStoreInvalidInput, "unknown enumeration order %q", order)
	}
}

// ---------- tag/label joins ----------

// metadataJoins compiles label and tag filters into relational joins:
// the entity table is joined once per label and once per tag, matching
// tenant and the entity's id through scopeCol ("graph_id", "node_id",
// or "edge_id"). Labels are therefore AND-matched, and each tag pair
// adds a key predicate plus either a value match or a null check.
// Tag keys are visited in sorted order so the generated text is stable.
func metadataJoins(alias, scopeCol string, labels []string, tags map[string]string) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)

	// Graph-level joins must exclude node- and edge-owned rows, which
	// also carry the graph id.
	ownOnly := scopeCol == "graph_id"

	for i, label := range labels {
		a := "l" + strconv.Itoa(i)
		sb.WriteString(" JOIN labels " + a + " ON " + a + ".tenant_id = " + alias + ".tenant_id" +
			" AND " + a + "." + scopeCol + " = " + alias + ".id" +
			" AND " + a + ".label = ?")
		if ownOnly {
			sb.WriteString(" AND " + a + ".node_id IS NULL AND " + a + ".edge_id IS NULL")
		}
		args = append(args, label)
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		a := "t" + strconv.Itoa(i)
		sb.WriteString(" JOIN tags " + a + " ON " + a + ".tenant_id = " + alias + ".tenant_id" +
			" AND " + a + "." + scopeCol + " = " + alias + ".id" +
			" AND " + a + ".tkey = ?")
		if ownOnly {
			sb.WriteString(" AND " + a + ".node_id IS NULL AND " + a + ".edge_id IS NULL")
		}
		args = append(args, k)
		if v := tags[k]; v != "" {
			sb.WriteString(" AND " + a + ".tvalue = ?")
			args = append(args, v)
		} else {
			sb.WriteString(" AND (" + a + ".tvalue IS NULL OR " + a + ".tvalue = '')")
		}
	}

	return sb.String(), args
}

// buildFilteredSelect assembles the single executable query for a
// filtered, ordered, paged enumeration: base tenant/parent scoping,
// metadata joins, the compiled expression, the order clause, and
// LIMIT/OFFSET. DISTINCT guards against fan-out from the joins.
func buildFilteredSelect(cols, table, alias, scopeCol string, hasCost bool,
	baseWhere string, baseArgs []any, f filterParams) (string, []any, error) {

	joins, joinArgs := metadataJoins(alias, scopeCol, f.Labels, f.Tags)

	expr, err := compileExpr(f.Expr, alias+".data")
	if err != nil {
		return "", nil, err
	}

	order, err := orderClause(f.Order, alias, hasCost)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT " + cols + " FROM " + table + " " + alias)
	sb.WriteString(joins)
	sb.WriteString(" WHERE " + baseWhere)

	args := make([]any, 0, len(joinArgs)+len(baseArgs)+len(expr.Args)+2)
	args = append(args, joinArgs...)
	args = append(args, baseArgs...)

	if !expr.empty() {
		sb.WriteString(" AND " + expr.SQL)
		args = append(args, expr.Args...)
	}

	sb.WriteString(" ORDER BY " + order)
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, f.Limit, f.Offset)

	return sb.String(), args, nil
}

// filterParams is the compiled-query view of a store.Filter plus the
// page window.
type filterParams struct {
	Labels []string
	Tags   map[string]string
	Expr   *graph.Expr
	Order  graph.EnumerationOrder
	Limit  int
	Offset int
}
