// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	err := quiverr.New(quiverr.CodeStoreNodeNotFound, "node missing")
	assert.Equal(t, quiverr.CodeStoreNodeNotFound, quiverr.CodeOf(err))
	assert.True(t, quiverr.HasCode(err, quiverr.CodeStoreNodeNotFound))

	assert.Equal(t, quiverr.Code(""), quiverr.CodeOf(nil))
	assert.Equal(t, quiverr.Code(""), quiverr.CodeOf(stderrors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := quiverr.Wrap(cause, quiverr.CodeStoreDatabaseFailure, "inserting node")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, quiverr.CodeStoreDatabaseFailure, quiverr.CodeOf(err))

	assert.NoError(t, quiverr.Wrap(nil, quiverr.CodeStoreDatabaseFailure, "ignored"))
	assert.NoError(t, quiverr.Wrapf(nil, quiverr.CodeStoreDatabaseFailure, "ignored %d", 1))
}

func TestReasonClassification(t *testing.T) {
	notFound := quiverr.New(quiverr.CodeStoreGraphNotFound, "gone")
	conflict := quiverr.New(quiverr.CodeStoreDeleteConflict, "busy")
	invalid := quiverr.New(quiverr.CodeStoreInvalidInput, "bad")
	failure := quiverr.New(quiverr.CodeStoreDatabaseFailure, "broken")

	assert.True(t, quiverr.IsNotFound(notFound))
	assert.False(t, quiverr.IsNotFound(conflict))

	assert.True(t, quiverr.IsConflict(conflict))
	assert.True(t, quiverr.IsConflict(quiverr.New(quiverr.CodeStoreBatchConflict, "dupe")))

	assert.True(t, quiverr.IsInvalidInput(invalid))
	assert.True(t, quiverr.IsInvalidInput(quiverr.New(quiverr.CodeRouteArgumentInvalid, "bad route")))
	assert.True(t, quiverr.IsInvalidInput(quiverr.New(quiverr.CodeConfigValidateInvalidValue, "bad value")))

	assert.True(t, quiverr.IsDatabaseFailure(failure))
	assert.False(t, quiverr.IsDatabaseFailure(quiverr.New(quiverr.CodeConfigLoadReadFailure, "unreadable")))
}

func TestFieldsOf(t *testing.T) {
	err := quiverr.New(quiverr.CodeStoreNodeNotFound, "node missing",
		quiverr.FieldTenantID("t1"),
		quiverr.FieldNodeID("n1"),
	)

	fields := quiverr.FieldsOf(err)
	assert.Equal(t, "t1", fields["tenant_id"])
	assert.Equal(t, "n1", fields["node_id"])

	assert.Nil(t, quiverr.FieldsOf(nil))
	assert.Nil(t, quiverr.FieldsOf(stderrors.New("plain")))
}

func TestWithAddsFields(t *testing.T) {
	base := quiverr.New(quiverr.CodeStoreEdgeNotFound, "edge missing")
	err := quiverr.With(base, quiverr.FieldEdgeID("e1"), quiverr.FieldInTransaction(true))

	assert.Equal(t, quiverr.CodeStoreEdgeNotFound, quiverr.CodeOf(err))
	fields := quiverr.FieldsOf(err)
	assert.Equal(t, "e1", fields["edge_id"])
	assert.Equal(t, true, fields["in_transaction"])
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, quiverr.HTTPStatus(quiverr.New(quiverr.CodeStoreTenantNotFound, "x")))
	assert.Equal(t, http.StatusConflict, quiverr.HTTPStatus(quiverr.New(quiverr.CodeStoreDeleteConflict, "x")))
	assert.Equal(t, http.StatusBadRequest, quiverr.HTTPStatus(quiverr.New(quiverr.CodeStoreInvalidInput, "x")))
	assert.Equal(t, http.StatusInternalServerError, quiverr.HTTPStatus(quiverr.New(quiverr.CodeStoreTxFailure, "x")))
}
