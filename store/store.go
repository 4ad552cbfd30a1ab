// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package store

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
)

// Filter carries the enumeration parameters shared by every filtered
// read: labels (all must be present), a tag map (key must match; an
// empty value matches only tags stored without a value), an optional
// expression over the JSON data payload, a sort order, and a starting
// offset.
type Filter struct {
	Labels []string
	Tags   map[string]string
	Expr   *graph.Expr
	Order  graph.EnumerationOrder
	Skip   int
}

// Seq is a lazily-produced, single-pass, restartable sequence of
// entities. Each range-over restarts the enumeration from the filter's
// offset and re-queries one page at a time, so memory use stays bounded
// over arbitrarily large result sets. A single in-progress iteration is
// not goroutine-safe.
type Seq[T any] = iter.Seq2[T, error]

// Client is the repository contract: every storage backend exposes the
// full per-family operation set behind these accessors.
type Client interface {
	Tenants() TenantStore
	Users() UserStore
	Credentials() CredentialStore
	Graphs() GraphStore
	Nodes() NodeStore
	Edges() EdgeStore
	Tags() TagStore
	Labels() LabelStore
	Vectors() VectorStore
	Routes() RouteReader
	Batch() BatchStore

	// Flush forces buffered state to durable storage.
	Flush(ctx context.Context) error
	Close() error
}

// TenantStore manages the root isolation scope.
type TenantStore interface {
	Create(ctx context.Context, tenant *graph.Tenant) (*graph.Tenant, error)
	ReadByGUID(ctx context.Context, guid uuid.UUID) (*graph.Tenant, error)
	ReadMany(ctx context.Context, order graph.EnumerationOrder, skip int) Seq[*graph.Tenant]
	Update(ctx context.Context, tenant *graph.Tenant) (*graph.Tenant, error)
	// Delete removes a tenant. With force, everything owned by the
	// tenant is cascaded first; without it, a tenant that still owns
	// graphs or users is rejected.
	Delete(ctx context.Context, guid uuid.UUID, force bool) error
	Exists(ctx context.Context, guid uuid.UUID) (bool, error)
	Statistics(ctx context.Context, guid uuid.UUID) (*graph.TenantStatistics, error)
}

// UserStore manages administrative principals within a tenant.
type UserStore interface {
	Create(ctx context.Context, user *graph.User) (*graph.User, error)
	ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.User, error)
	ReadMany(ctx context.Context, tenantGUID uuid.UUID, order graph.EnumerationOrder, skip int) Seq[*graph.User]
	Update(ctx context.Context, user *graph.User) (*graph.User, error)
	Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error
	Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error)
}

// CredentialStore manages bearer tokens bound to users.
type CredentialStore interface {
	Create(ctx context.Context, cred *graph.Credential) (*graph.Credential, error)
	ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Credential, error)
	// ReadByBearerToken resolves a token across tenants; it is the
	// lookup a hosting authentication layer performs per request.
	ReadByBearerToken(ctx context.Context, token string) (*graph.Credential, error)
	ReadMany(ctx context.Context, tenantGUID uuid.UUID, order graph.EnumerationOrder, skip int) Seq[*graph.Credential]
	Update(ctx context.Context, cred *graph.Credential) (*graph.Credential, error)
	Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error
	Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error)
}
