// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package graph

import (
	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

// Operator is a filter-expression operator.
type Operator string

const (
	OperatorAnd                  Operator = "And"
	OperatorOr                   Operator = "Or"
	OperatorEquals               Operator = "Equals"
	OperatorNotEquals            Operator = "NotEquals"
	OperatorGreaterThan          Operator = "GreaterThan"
	OperatorGreaterThanOrEqualTo Operator = "GreaterThanOrEqualTo"
	OperatorLessThan             Operator = "LessThan"
	OperatorLessThanOrEqualTo    Operator = "LessThanOrEqualTo"
	OperatorContains             Operator = "Contains"
	OperatorContainsNot          Operator = "ContainsNot"
	OperatorStartsWith           Operator = "StartsWith"
	OperatorStartsWithNot        Operator = "StartsWithNot"
	OperatorEndsWith             Operator = "EndsWith"
	OperatorEndsWithNot          Operator = "EndsWithNot"
	OperatorIn                   Operator = "In"
	OperatorNotIn                Operator = "NotIn"
	OperatorIsNull               Operator = "IsNull"
	OperatorIsNotNull            Operator = "IsNotNull"
)

// RequiresRight reports whether the operator needs a right-hand term.
// Only the null checks stand alone.
func (o Operator) RequiresRight() bool {
	switch o {
	case OperatorIsNull, OperatorIsNotNull:
		return false
	default:
		return true
	}
}

// Expr is a boolean predicate over an entity's JSON data payload.
// Left is a field-path string (dotted JSON path) or a nested *Expr;
// Right is a literal, a list, or a nested *Expr.
type Expr struct {
	Left     any
	Operator Operator
	Right    any
}

// NewExpr builds a predicate, rejecting a nil right-hand term for any
// operator that requires one.
func NewExpr(left any, op Operator, right any) (*Expr, error) {
	if left == nil {
		return nil, quiverr.New(quiverr.CodeExprConstructInvalid, "expr: left term is required")
	}
	if op.RequiresRight() && right == nil {
		return nil, quiverr.Errorf(quiverr.CodeExprConstructInvalid, "expr: operator %s requires a right term", op)
	}
	return &Expr{Left: left, Operator: op, Right: right}, nil
}

// Between is sugar for lo <= left <= hi, built as an And of
// GreaterThanOrEqualTo and LessThanOrEqualTo.
func Between(left any, lo, hi any) (*Expr, error) {
	lower, err := NewExpr(left, OperatorGreaterThanOrEqualTo, lo)
	if err != nil {
		return nil, err
	}
	upper, err := NewExpr(left, OperatorLessThanOrEqualTo, hi)
	if err != nil {
		return nil, err
	}
	return &Expr{Left: lower, Operator: OperatorAnd, Right: upper}, nil
}

// PrependAnd grafts add as the new left branch joined by And, keeping
// the receiver as the right branch. Repeated prepends therefore build a
// left-deep chain; the order of prepending changes the tree shape but
// not the selected rows, since And is associative.
func (e *Expr) PrependAnd(add *Expr) *Expr {
	return &Expr{Left: add, Operator: OperatorAnd, Right: e}
}

// PrependOr grafts add as the new left branch joined by Or, keeping the
// receiver as the right branch.
func (e *Expr) PrependOr(add *Expr) *Expr {
	return &Expr{Left: add, Operator: OperatorOr, Right: e}
}

// ListToNestedAndExpr folds the expressions into a right-deep chain of
// And predicates. An empty list yields nil; a single element is
// returned as-is.
func ListToNestedAndExpr(exprs []*Expr) *Expr {
	return foldRight(exprs, OperatorAnd)
}

// ListToNestedOrExpr folds the expressions into a right-deep chain of
// Or predicates.
func ListToNestedOrExpr(exprs []*Expr) *Expr {
	return foldRight(exprs, OperatorOr)
}

func foldRight(exprs []*Expr, op Operator) *Expr {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return &Expr{Left: exprs[0], Operator: op, Right: foldRight(exprs[1:], op)}
	}
}
