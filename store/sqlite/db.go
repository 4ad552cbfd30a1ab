// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

// Compile-time interface check.
var _ store.Client = (*Client)(nil)

// Client implements store.Client backed by a single SQLite database
// file. A process-wide write mutex serializes mutating transactions
// (SQLite supports one writer at a time) and doubles as the creation
// lock making existence-check-then-insert atomic.
type Client struct {
	db         *sql.DB
	writeMu    sync.Mutex
	batchSize  int
	vectorDims int
	logger     *slog.Logger

	tenants *tenantStore
	users   *userStore
	creds   *credentialStore
	graphs  *graphStore
	nodes   *nodeStore
	edges   *edgeStore
	tags    *tagStore
	labels  *labelStore
	vectors *vectorStore
	routes  *routeReader
	batch   *batchStore
}

// NewClient opens (or creates) a SQLite database at dbPath and runs the
// idempotent schema setup.
func NewClient(cfg *store.StorageConfig, dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	dims := store.DefaultVectorDimensions
	if cfg != nil && cfg.VectorDimensions > 0 {
		dims = cfg.VectorDimensions
	}
	indexData := cfg != nil && cfg.IndexData

	if err := migrate(db, dims, indexData); err != nil {
		_ = db.Close()
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "migrating sqlite db: %w", err)
	}

	batchSize := store.DefaultSelectBatchSize
	if cfg != nil && cfg.SelectBatchSize > 0 {
		batchSize = cfg.SelectBatchSize
	}

	c := &Client{
		db:         db,
		batchSize:  batchSize,
		vectorDims: dims,
		logger:     slog.Default(),
	}
	c.tenants = &tenantStore{c: c}
	c.users = &userStore{c: c}
	c.creds = &credentialStore{c: c}
	c.graphs = &graphStore{c: c}
	c.nodes = &nodeStore{c: c}
	c.edges = &edgeStore{c: c}
	c.tags = &tagStore{c: c}
	c.labels = &labelStore{c: c}
	c.vectors = &vectorStore{c: c}
	c.routes = &routeReader{c: c}
	c.batch = &batchStore{c: c}
	return c, nil
}

// The schema declares no foreign-key constraints: referential
// integrity is maintained by the cascade paths, and a dangling edge is
// a logged dead end rather than a storage-level error.
func migrate(db *sql.DB, vectorDims int, indexData bool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tenants (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	active         INTEGER NOT NULL DEFAULT 1,
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tenants_created ON tenants(created_utc);

CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	first_name     TEXT NOT NULL DEFAULT '',
	last_name      TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL,
	password       TEXT NOT NULL DEFAULT '',
	active         INTEGER NOT NULL DEFAULT 1,
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_tenant  ON users(tenant_id);
CREATE INDEX IF NOT EXISTS idx_users_email   ON users(tenant_id, email);
CREATE INDEX IF NOT EXISTS idx_users_created ON users(created_utc);

CREATE TABLE IF NOT EXISTS creds (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	user_id        TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	bearer_token   TEXT NOT NULL,
	active         INTEGER NOT NULL DEFAULT 1,
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_creds_token   ON creds(bearer_token);
CREATE INDEX IF NOT EXISTS        idx_creds_tenant  ON creds(tenant_id);
CREATE INDEX IF NOT EXISTS        idx_creds_user    ON creds(user_id);
CREATE INDEX IF NOT EXISTS        idx_creds_created ON creds(created_utc);

CREATE TABLE IF NOT EXISTS graphs (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	name           TEXT NOT NULL,
	data           TEXT NOT NULL DEFAULT '{}',
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_graphs_tenant  ON graphs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_graphs_name    ON graphs(tenant_id, name);
CREATE INDEX IF NOT EXISTS idx_graphs_created ON graphs(created_utc);

CREATE TABLE IF NOT EXISTS nodes (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	graph_id       TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	data           TEXT NOT NULL DEFAULT '{}',
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_tenant  ON nodes(tenant_id);
CREATE INDEX IF NOT EXISTS idx_nodes_graph   ON nodes(tenant_id, graph_id);
CREATE INDEX IF NOT EXISTS idx_nodes_name    ON nodes(tenant_id, graph_id, name);
CREATE INDEX IF NOT EXISTS idx_nodes_created ON nodes(created_utc);

CREATE TABLE IF NOT EXISTS edges (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	graph_id       TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	from_id        TEXT NOT NULL,
	to_id          TEXT NOT NULL,
	cost           INTEGER NOT NULL DEFAULT 0,
	data           TEXT NOT NULL DEFAULT '{}',
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_tenant  ON edges(tenant_id);
CREATE INDEX IF NOT EXISTS idx_edges_graph   ON edges(tenant_id, graph_id);
CREATE INDEX IF NOT EXISTS idx_edges_from    ON edges(tenant_id, graph_id, from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to      ON edges(tenant_id, graph_id, to_id);
CREATE INDEX IF NOT EXISTS idx_edges_created ON edges(created_utc);
CREATE INDEX IF NOT EXISTS idx_edges_cost    ON edges(tenant_id, graph_id, cost);

CREATE TABLE IF NOT EXISTS tags (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	graph_id       TEXT,
	node_id        TEXT,
	edge_id        TEXT,
	tkey           TEXT NOT NULL,
	tvalue         TEXT,
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tags_tenant  ON tags(tenant_id);
CREATE INDEX IF NOT EXISTS idx_tags_graph   ON tags(tenant_id, graph_id);
CREATE INDEX IF NOT EXISTS idx_tags_node    ON tags(tenant_id, node_id);
CREATE INDEX IF NOT EXISTS idx_tags_edge    ON tags(tenant_id, edge_id);
CREATE INDEX IF NOT EXISTS idx_tags_key     ON tags(tenant_id, tkey);
CREATE INDEX IF NOT EXISTS idx_tags_created ON tags(created_utc);

CREATE TABLE IF NOT EXISTS labels (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	graph_id       TEXT,
	node_id        TEXT,
	edge_id        TEXT,
	label          TEXT NOT NULL,
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_labels_tenant  ON labels(tenant_id);
CREATE INDEX IF NOT EXISTS idx_labels_graph   ON labels(tenant_id, graph_id);
CREATE INDEX IF NOT EXISTS idx_labels_node    ON labels(tenant_id, node_id);
CREATE INDEX IF NOT EXISTS idx_labels_edge    ON labels(tenant_id, edge_id);
CREATE INDEX IF NOT EXISTS idx_labels_label   ON labels(tenant_id, label);
CREATE INDEX IF NOT EXISTS idx_labels_created ON labels(created_utc);

CREATE TABLE IF NOT EXISTS vectors (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	graph_id       TEXT,
	node_id        TEXT,
	edge_id        TEXT,
	model          TEXT NOT NULL,
	dimensionality INTEGER NOT NULL,
	content        TEXT NOT NULL DEFAULT '',
	embedding      BLOB NOT NULL,
	created_utc    TEXT NOT NULL,
	lastupdate_utc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vectors_tenant  ON vectors(tenant_id);
CREATE INDEX IF NOT EXISTS idx_vectors_graph   ON vectors(tenant_id, graph_id);
CREATE INDEX IF NOT EXISTS idx_vectors_node    ON vectors(tenant_id, node_id);
CREATE INDEX IF NOT EXISTS idx_vectors_edge    ON vectors(tenant_id, edge_id);
CREATE INDEX IF NOT EXISTS idx_vectors_created ON vectors(created_utc);
`
	if _, err := db.Exec(ddl); err != nil {
		return err
	}

	if indexData {
		const dataIdx = `
CREATE INDEX IF NOT EXISTS idx_graphs_data ON graphs(data);
CREATE INDEX IF NOT EXISTS idx_nodes_data  ON nodes(data);
CREATE INDEX IF NOT EXISTS idx_edges_data  ON edges(data);
`
		if _, err := db.Exec(dataIdx); err != nil {
			return err
		}
	}

	return migrateVectorIndex(db, vectorDims)
}

// Tenants returns the TenantStore sub-store.
func (c *Client) Tenants() store.TenantStore { return c.tenants }

// Users returns the UserStore sub-store.
func (c *Client) Users() store.UserStore { return c.users }

// Credentials returns the CredentialStore sub-store.
func (c *Client) Credentials() store.CredentialStore { return c.creds }

// Graphs returns the GraphStore sub-store.
func (c *Client) Graphs() store.GraphStore { return c.graphs }

// Nodes returns the NodeStore sub-store.
func (c *Client) Nodes() store.NodeStore { return c.nodes }

// Edges returns the EdgeStore sub-store.
func (c *Client) Edges() store.EdgeStore { return c.edges }

// Tags returns the TagStore sub-store.
func (c *Client) Tags() store.TagStore { return c.tags }

// Labels returns the LabelStore sub-store.
func (c *Client) Labels() store.LabelStore { return c.labels }

// Vectors returns the VectorStore sub-store.
func (c *Client) Vectors() store.VectorStore { return c.vectors }

// Routes returns the RouteReader.
func (c *Client) Routes() store.RouteReader { return c.routes }

// Batch returns the BatchStore.
func (c *Client) Batch() store.BatchStore { return c.batch }

// Flush checkpoints the WAL so all committed state reaches the main
// database file.
func (c *Client) Flush(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "checkpointing wal: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (c *Client) Close() error { return c.db.Close() }

// ---------- transaction helpers ----------

// beginWrite acquires the write mutex and opens a transaction. The
// returned done func must be called exactly once: it rolls back if the
// transaction was not committed, logging rollback failures, and
// releases the mutex.
func (c *Client) beginWrite(ctx context.Context) (*sql.Tx, func(), error) {
	c.writeMu.Lock()
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		c.writeMu.Unlock()
		return nil, nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	done := func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			c.logger.ErrorContext(ctx, "transaction rollback failed", "error", rbErr)
		}
		c.writeMu.Unlock()
	}
	return tx, done, nil
}

// execTx runs one statement inside a transaction, attaching the failing
// query and the transaction flag as diagnostic context on error. The
// caller's deferred done func performs the rollback.
func execTx(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return quiverr.Wrap(err, quiverr.CodeStoreTxFailure, "executing statement",
			quiverr.FieldQuery(query), quiverr.FieldInTransaction(true))
	}
	return nil
}

func commit(tx *sql.Tx, what string) error {
	if err := tx.Commit(); err != nil {
		return quiverr.Errorf(quiverr.CodeStoreTxFailure, "committing %s: %w", what, err)
	}
	return nil
}

// ---------- enumeration ----------

// enumerate produces a lazy, restartable sequence over offset-paged
// queries: each page issues one query at the current offset, yields
// every row, advances by the page size, and stops once an empty page
// comes back. Offset pagination is not snapshot-isolated; concurrent
// mutation can skip or duplicate rows across page boundaries.
func enumerate[T any](batchSize, skip int, page func(offset, limit int) ([]T, error)) store.Seq[T] {
	return func(yield func(T, error) bool) {
		offset := skip
		for {
			items, err := page(offset, batchSize)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if len(items) == 0 {
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			offset += len(items)
		}
	}
}

// failSeq is a sequence that yields a single error. Used when argument
// validation fails before the first query.
func failSeq[T any](err error) store.Seq[T] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// collect drains a sequence into a slice, stopping at the first error.
func collect[T any](seq store.Seq[T]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ---------- scan/format helpers ----------

// formatTime serialises a time.Time to RFC3339 with nanosecond
// precision in UTC.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// nullableGUID maps an optional GUID to its bound value.
func nullableGUID(g *uuid.UUID) any {
	if g == nil {
		return nil
	}
	return g.String()
}

// scanGUIDPtr converts a nullable id column back to an optional GUID.
func scanGUIDPtr(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	g, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing guid %q: %w", ns.String, err)
	}
	return &g, nil
}

// marshalData serialises an opaque JSON payload, defaulting to "{}".
func marshalData(data map[string]any) (string, error) {
	if len(data) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", quiverr.Errorf(quiverr.CodeStoreInvalidInput, "marshalling data payload: %w", err)
	}
	return string(b), nil
}

// unmarshalData deserialises an opaque JSON payload; "{}" becomes nil.
func unmarshalData(s string) (map[string]any, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "unmarshalling data payload: %w", err)
	}
	return m, nil
}

// placeholders returns n comma-joined bind markers.
func placeholders(n int) string {
	ph := strings.Repeat("?,", n)
	return ph[:len(ph)-1]
}

// guidArgs converts GUIDs to bind arguments.
func guidArgs(guids []uuid.UUID) []any {
	args := make([]any, 0, len(guids))
	for _, g := range guids {
		args = append(args, g.String())
	}
	return args
}
