// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

func init() {
	// Registers the vec0 extension with every new sqlite3 connection.
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*vectorStore)(nil)

type vectorStore struct {
	c *Client
}

const vectorCols = `id, tenant_id, graph_id, node_id, edge_id, model, dimensionality, content, embedding, created_utc, lastupdate_utc`

// migrateVectorIndex creates the vec0 virtual table mirroring stored
// embeddings whose dimensionality matches the configured width. The
// mirror exists so a similarity layer can query it; this engine only
// keeps it in sync.
func migrateVectorIndex(db *sql.DB, dims int) error {
	q := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vector_index USING vec0(id TEXT PRIMARY KEY, embedding float[%d])`, dims)
	if _, err := db.Exec(q); err != nil {
		return quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "creating vector index table: %w", err)
	}
	return nil
}

// insertVectorTx writes the metadata row and, when the embedding width
// matches the index, mirrors it into the vec0 table. vec0 has no ON
// CONFLICT support; delete first for upsert.
func (c *Client) insertVectorTx(ctx context.Context, tx *sql.Tx, v *graph.VectorMetadata) error {
	blob, err := sqlite_vec.SerializeFloat32(v.Vectors)
	if err != nil {
		return quiverr.Errorf(quiverr.CodeStoreInvalidInput, "serializing embedding %s: %w", v.GUID, err)
	}

	const q = `INSERT INTO vectors (` + vectorCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := execTx(ctx, tx, q,
		v.GUID.String(), v.TenantGUID.String(),
		nullableGUID(v.GraphGUID), nullableGUID(v.NodeGUID), nullableGUID(v.EdgeGUID),
		v.Model, v.Dimensionality, v.Content, blob,
		formatTime(v.CreatedUtc), formatTime(v.LastUpdateUtc),
	); err != nil {
		return err
	}

	if len(v.Vectors) != c.vectorDims {
		return nil
	}
	if err := execTx(ctx, tx, `DELETE FROM vector_index WHERE id = ?`, v.GUID.String()); err != nil {
		return err
	}
	return execTx(ctx, tx, `INSERT INTO vector_index (id, embedding) VALUES (?, ?)`, v.GUID.String(), blob)
}

// deleteVectorIndexFor prunes vec0 rows for embeddings owned by the
// given entities, ahead of the owning rows being deleted.
func (c *Client) deleteVectorIndexFor(ctx context.Context, tx *sql.Tx, tenantGUID uuid.UUID, ownerCol string, guids []uuid.UUID) error {
	if len(guids) == 0 {
		return nil
	}
	ph := placeholders(len(guids))
	q := `DELETE FROM vector_index WHERE id IN (SELECT id FROM vectors WHERE tenant_id = ? AND ` + ownerCol + ` IN (` + ph + `))`
	args := append([]any{tenantGUID.String()}, guidArgs(guids)...)
	return execTx(ctx, tx, q, args...)
}

// readVectorsFor loads the embeddings matching an owner condition.
func (c *Client) readVectorsFor(ctx context.Context, tenantGUID uuid.UUID, cond string, condArgs []any) ([]*graph.VectorMetadata, error) {
	q := `SELECT ` + vectorCols + ` FROM vectors WHERE tenant_id = ? AND ` + cond + ` ORDER BY created_utc`
	args := append([]any{tenantGUID.String()}, condArgs...)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "loading vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vectors []*graph.VectorMetadata
	for rows.Next() {
		v, err := scanVectorRows(rows)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, rows.Err()
}

// deserializeFloat32 is the inverse of sqlite_vec.SerializeFloat32:
// 4 little-endian bytes per component.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, quiverr.New(quiverr.CodeStoreDatabaseFailure, "embedding blob length not a multiple of 4")
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out, nil
}

func (s *vectorStore) Create(ctx context.Context, vec *graph.VectorMetadata) (*graph.VectorMetadata, error) {
	if vec == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "vector: record is required")
	}
	if vec.GUID == uuid.Nil {
		vec.GUID = uuid.New()
	}
	if err := vec.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireTenant(ctx, vec.TenantGUID); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, vec.TenantGUID, vec.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	vec.CreatedUtc = now
	vec.LastUpdateUtc = now

	if err := s.c.insertVectorTx(ctx, tx, vec); err != nil {
		return nil, err
	}

	if err := commit(tx, "vector create"); err != nil {
		return nil, err
	}
	return vec, nil
}

func (s *vectorStore) CreateMany(ctx context.Context, tenantGUID uuid.UUID, vecs []*graph.VectorMetadata) ([]*graph.VectorMetadata, error) {
	if len(vecs) == 0 {
		return nil, nil
	}
	if err := s.c.requireTenant(ctx, tenantGUID); err != nil {
		return nil, err
	}

	guids := make([]uuid.UUID, 0, len(vecs))
	for _, v := range vecs {
		if v == nil {
			return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "vector: record is required")
		}
		if v.GUID == uuid.Nil {
			v.GUID = uuid.New()
		}
		v.TenantGUID = tenantGUID
		if err := v.Validate(); err != nil {
			return nil, err
		}
		guids = append(guids, v.GUID)
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	conflicts, err := existingMetaGUIDs(ctx, tx, "vectors", tenantGUID, guids)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, quiverr.New(quiverr.CodeStoreBatchConflict,
			"batch rejected: "+strconv.Itoa(len(conflicts))+" vector GUID(s) already exist")
	}

	now := time.Now().UTC()
	for _, v := range vecs {
		v.CreatedUtc = now
		v.LastUpdateUtc = now
		if err := s.c.insertVectorTx(ctx, tx, v); err != nil {
			return nil, err
		}
	}

	if err := commit(tx, "vector batch create"); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (s *vectorStore) ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.VectorMetadata, error) {
	const q = `SELECT ` + vectorCols + ` FROM vectors WHERE tenant_id = ? AND id = ?`
	return scanVectorRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func (s *vectorStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, guid uuid.UUID) (*graph.VectorMetadata, error) {
	const q = `SELECT ` + vectorCols + ` FROM vectors WHERE tenant_id = ? AND id = ?`
	return scanVectorRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func scanVectorRow(row *sql.Row, guid uuid.UUID) (*graph.VectorMetadata, error) {
	var (
		v                graph.VectorMetadata
		gid, nid, eid    sql.NullString
		blob             []byte
		created, updated string
	)
	err := row.Scan(&v.GUID, &v.TenantGUID, &gid, &nid, &eid, &v.Model, &v.Dimensionality, &v.Content, &blob, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreEntityNotFound, "vector "+guid.String()+" not found")
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting vector %s: %w", guid, err)
	}
	return vectorFromScan(&v, gid, nid, eid, blob, created, updated)
}

func scanVectorRows(rows *sql.Rows) (*graph.VectorMetadata, error) {
	var (
		v                graph.VectorMetadata
		gid, nid, eid    sql.NullString
		blob             []byte
		created, updated string
	)
	if err := rows.Scan(&v.GUID, &v.TenantGUID, &gid, &nid, &eid, &v.Model, &v.Dimensionality, &v.Content, &blob, &created, &updated); err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning vector row: %w", err)
	}
	return vectorFromScan(&v, gid, nid, eid, blob, created, updated)
}

func vectorFromScan(v *graph.VectorMetadata, gid, nid, eid sql.NullString, blob []byte, created, updated string) (*graph.VectorMetadata, error) {
	var err error
	if v.GraphGUID, err = scanGUIDPtr(gid); err != nil {
		return nil, err
	}
	if v.NodeGUID, err = scanGUIDPtr(nid); err != nil {
		return nil, err
	}
	if v.EdgeGUID, err = scanGUIDPtr(eid); err != nil {
		return nil, err
	}
	if v.Vectors, err = deserializeFloat32(blob); err != nil {
		return nil, err
	}
	v.CreatedUtc = parseTime(created)
	v.LastUpdateUtc = parseTime(updated)
	return v, nil
}

func (s *vectorStore) ReadMany(ctx context.Context, tenantGUID uuid.UUID, scope store.Scope, order graph.EnumerationOrder, skip int) store.Seq[*graph.VectorMetadata] {
	orderSQL, err := tagOrderClause(order, "model")
	if err != nil {
		return failSeq[*graph.VectorMetadata](err)
	}

	cond, condArgs := scopeCond(scope)
	where := `tenant_id = ?`
	if cond != "" {
		where += ` AND ` + cond
	}
	baseArgs := append([]any{tenantGUID.String()}, condArgs...)

	return enumerate(s.c.batchSize, skip, func(offset, limit int) ([]*graph.VectorMetadata, error) {
		q := `SELECT ` + vectorCols + ` FROM vectors WHERE ` + where + ` ORDER BY ` + orderSQL + ` LIMIT ? OFFSET ?`
		args := append(append([]any{}, baseArgs...), limit, offset)

		rows, err := s.c.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing vectors: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var vectors []*graph.VectorMetadata
		for rows.Next() {
			v, err := scanVectorRows(rows)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, v)
		}
		return vectors, rows.Err()
	})
}

func (s *vectorStore) Update(ctx context.Context, vec *graph.VectorMetadata) (*graph.VectorMetadata, error) {
	if vec == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "vector: record is required")
	}
	if err := vec.Validate(); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, vec.TenantGUID, vec.GUID)
	if err != nil {
		return nil, err
	}

	vec.CreatedUtc = existing.CreatedUtc
	vec.LastUpdateUtc = time.Now().UTC()

	// Rewrite both the row and the vec0 mirror.
	if err := execTx(ctx, tx, `DELETE FROM vector_index WHERE id = ?`, vec.GUID.String()); err != nil {
		return nil, err
	}
	if err := execTx(ctx, tx, `DELETE FROM vectors WHERE tenant_id = ? AND id = ?`, vec.TenantGUID.String(), vec.GUID.String()); err != nil {
		return nil, err
	}
	if err := s.c.insertVectorTx(ctx, tx, vec); err != nil {
		return nil, err
	}

	if err := commit(tx, "vector update"); err != nil {
		return nil, err
	}
	return vec, nil
}

func (s *vectorStore) Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error {
	return s.DeleteMany(ctx, tenantGUID, []uuid.UUID{guid})
}

func (s *vectorStore) DeleteMany(ctx context.Context, tenantGUID uuid.UUID, guids []uuid.UUID) error {
	if len(guids) == 0 {
		return nil
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	ph := placeholders(len(guids))
	idxArgs := guidArgs(guids)
	if err := execTx(ctx, tx, `DELETE FROM vector_index WHERE id IN (`+ph+`)`, idxArgs...); err != nil {
		return err
	}
	args := append([]any{tenantGUID.String()}, idxArgs...)
	if err := execTx(ctx, tx, `DELETE FROM vectors WHERE tenant_id = ? AND id IN (`+ph+`)`, args...); err != nil {
		return err
	}

	return commit(tx, "vector delete")
}

func (s *vectorStore) DeleteScoped(ctx context.Context, tenantGUID uuid.UUID, scope store.Scope) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	cond, condArgs := scopeCond(scope)
	where := `tenant_id = ?`
	if cond != "" {
		where += ` AND ` + cond
	}
	args := append([]any{tenantGUID.String()}, condArgs...)

	if err := execTx(ctx, tx, `DELETE FROM vector_index WHERE id IN (SELECT id FROM vectors WHERE `+where+`)`, args...); err != nil {
		return err
	}
	if err := execTx(ctx, tx, `DELETE FROM vectors WHERE `+where, args...); err != nil {
		return err
	}

	return commit(tx, "vector scoped delete")
}

func (s *vectorStore) Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM vectors WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String())
}
