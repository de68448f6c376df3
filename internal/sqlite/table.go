package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/internal/codec"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// Collection implements types.Collection over the rows of one collection in
// the documents table. Every operation holds the backend lock for its whole
// duration, so each one is atomic from the caller's side.
type Collection struct {
	name    string
	backend *Backend
}

var _ types.Collection = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// ready checks that the backend is attached and the collection registered.
// The caller must hold the backend lock.
func (c *Collection) ready(ctx context.Context) error {
	if !c.backend.attached {
		return types.ErrStoreDetached
	}
	ok, err := c.backend.collectionExistsLocked(ctx, c.name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrCollectionNotFound, c.name)
	}
	return nil
}

// Insert assigns a UUID v7 and stores doc.
func (c *Collection) Insert(ctx context.Context, doc types.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: nil document", types.ErrInvalidDocument)
	}
	if doc.Has(types.IDField) {
		return "", fmt.Errorf("%w: %s is store-assigned", types.ErrInvalidDocument, types.IDField)
	}

	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if err := c.ready(ctx); err != nil {
		return "", err
	}

	id := generateUUID()
	stored := doc.Clone()
	stored[types.IDField] = id
	body, err := codec.MarshalExtJSON(stored, false)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrInvalidDocument, err)
	}

	_, err = c.backend.db.ExecContext(ctx,
		"INSERT INTO documents (collection, doc_id, body) VALUES (?, ?, ?)",
		c.name, id, string(body))
	if err != nil {
		return "", storeErr("insert", err)
	}
	c.backend.logger.Debug("insert", zap.String("collection", c.name), zap.String("id", id))
	return id, nil
}

// Get retrieves a document by identifier.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (c *Collection) Get(ctx context.Context, id string) (types.Document, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	return c.getLocked(ctx, c.backend.db.QueryRowContext, id)
}

type queryRowFunc func(ctx context.Context, query string, args ...any) *sql.Row

func (c *Collection) getLocked(ctx context.Context, queryRow queryRowFunc, id string) (types.Document, error) {
	var body string
	err := queryRow(ctx,
		"SELECT body FROM documents WHERE collection = ? AND doc_id = ?", c.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get", err)
	}
	return decodeBody(body)
}

func decodeBody(body string) (types.Document, error) {
	doc, err := codec.UnmarshalExtJSON([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w: stored body: %w", types.ErrInvalidDocument, err)
	}
	return doc, nil
}

// Find returns the documents matching q in insertion order.
func (c *Collection) Find(ctx context.Context, q types.Query) ([]types.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args, err := c.buildFind(q)
	if err != nil {
		return nil, err
	}

	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := c.backend.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("find", err)
	}
	defer rows.Close()

	docs := []types.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, storeErr("find", err)
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("find", err)
	}
	return docs, nil
}

// buildFind translates q into SQL. Equality on the identifier uses the
// doc_id column; every other field goes through json_extract.
func (c *Collection) buildFind(q types.Query) (string, []any, error) {
	var sb strings.Builder
	args := []any{c.name}
	sb.WriteString("SELECT body FROM documents WHERE collection = ?")

	for _, cond := range q.Conditions {
		if cond.Field == types.IDField {
			id, ok := cond.Value.(string)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s must be a string", types.ErrInvalidQuery, types.IDField)
			}
			sb.WriteString(" AND doc_id = ?")
			args = append(args, id)
			continue
		}
		sb.WriteString(" AND json_extract(body, ?) = ?")
		args = append(args, "$."+cond.Field, sqlValue(cond.Value))
	}

	sb.WriteString(" ORDER BY seq")
	limit := q.Limit
	if limit == 0 {
		limit = -1
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, q.Skip)
	return sb.String(), args, nil
}

// sqlValue maps a query value onto what json_extract returns for it.
// JSON booleans come back as integers.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

// First returns the first document matching q.
func (c *Collection) First(ctx context.Context, q types.Query) (types.Document, bool, error) {
	docs, err := c.Find(ctx, q.WithLimit(1))
	if err != nil {
		return nil, false, err
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0], true, nil
}

// Update applies changes to the stored document inside a transaction and
// returns the previous version.
func (c *Collection) Update(ctx context.Context, id string, changes types.Document) (types.Document, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	if err := types.ValidateChanges(changes); err != nil {
		return nil, err
	}

	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	tx, err := c.backend.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("update", err)
	}
	defer tx.Rollback()

	old, err := c.getLocked(ctx, tx.QueryRowContext, id)
	if err != nil {
		return nil, err
	}
	updated := old.Clone()
	for field, value := range changes.Clone() {
		updated[field] = value
	}
	body, err := codec.MarshalExtJSON(updated, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidDocument, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET body = ? WHERE collection = ? AND doc_id = ?",
		string(body), c.name, id); err != nil {
		return nil, storeErr("update", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("update", err)
	}
	c.backend.logger.Debug("update", zap.String("collection", c.name), zap.String("id", id))
	return old, nil
}

// Delete removes a document by identifier.
// Returns ErrInvalidID if id is empty, ErrNotFound if not found.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if err := c.ready(ctx); err != nil {
		return err
	}

	res, err := c.backend.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND doc_id = ?", c.name, id)
	if err != nil {
		return storeErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	c.backend.logger.Debug("delete", zap.String("collection", c.name), zap.String("id", id))
	return nil
}

// Clear removes every document in the collection.
func (c *Collection) Clear(ctx context.Context) (int64, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if err := c.ready(ctx); err != nil {
		return 0, err
	}

	res, err := c.backend.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ?", c.name)
	if err != nil {
		return 0, storeErr("clear", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("clear", err)
	}
	c.backend.logger.Debug("clear", zap.String("collection", c.name), zap.Int64("removed", n))
	return n, nil
}
