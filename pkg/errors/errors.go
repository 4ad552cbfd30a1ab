// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreTenantNotFound     Code = "store.tenant.get.not_found"
	CodeStoreUserNotFound       Code = "store.user.get.not_found"
	CodeStoreCredentialNotFound Code = "store.credential.get.not_found"
	CodeStoreGraphNotFound      Code = "store.graph.get.not_found"
	CodeStoreNodeNotFound       Code = "store.node.get.not_found"
	CodeStoreEdgeNotFound       Code = "store.edge.get.not_found"
	CodeStoreEntityNotFound     Code = "store.entity.get.not_found"
	CodeStoreCreateConflict     Code = "store.entity.create.conflict"
	CodeStoreDeleteConflict     Code = "store.entity.delete.conflict"
	CodeStoreBatchConflict      Code = "store.batch.create.conflict"
	CodeStoreInvalidInput       Code = "store.invalid_input"
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreTxFailure          Code = "store.transaction.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeExprConstructInvalid Code = "expr.construct.invalid"
	CodeExprCompileInvalid   Code = "expr.compile.invalid_input"

	CodeRouteArgumentInvalid Code = "route.argument.invalid"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldTenantID(value string) Attr {
	return Field("tenant_id", value)
}

func FieldGraphID(value string) Attr {
	return Field("graph_id", value)
}

func FieldNodeID(value string) Attr {
	return Field("node_id", value)
}

func FieldEdgeID(value string) Attr {
	return Field("edge_id", value)
}

// FieldQuery attaches the failing query text for transactional diagnostics.
func FieldQuery(value string) Attr {
	return Field("query", value)
}

// FieldInTransaction records whether the failure happened inside an
// explicit transaction (and was therefore rolled back).
func FieldInTransaction(value bool) Attr {
	return Field("in_transaction", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeStoreDatabaseFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsDatabaseFailure(err error) bool {
	r := reason(CodeOf(err))
	return r == "failure" && strings.HasPrefix(string(CodeOf(err)), "store.")
}

// HTTPStatus maps an error to the response class a hosting service
// is expected to surface: not-found 404, conflict 409, validation 400,
// anything else 500.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeStoreDatabaseFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
