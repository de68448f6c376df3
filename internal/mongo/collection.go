package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/internal/codec"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// Collection implements types.Collection over one MongoDB collection.
type Collection struct {
	name    string
	backend *Backend
}

var _ types.Collection = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// handle returns the driver collection, or ErrStoreDetached.
// The caller must hold the backend lock.
func (c *Collection) handle() (*mongo.Collection, error) {
	if !c.backend.attached {
		return nil, types.ErrStoreDetached
	}
	return c.backend.db.Collection(c.name), nil
}

// objectID parses a hex identifier. An identifier that is not an ObjectID
// cannot name any document here, so it reports ErrNotFound.
func objectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, types.ErrInvalidID
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, types.ErrNotFound
	}
	return oid, nil
}

// Insert assigns a new ObjectID and stores doc.
func (c *Collection) Insert(ctx context.Context, doc types.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: nil document", types.ErrInvalidDocument)
	}
	if doc.Has(types.IDField) {
		return "", fmt.Errorf("%w: %s is store-assigned", types.ErrInvalidDocument, types.IDField)
	}

	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	coll, err := c.handle()
	if err != nil {
		return "", err
	}

	oid := primitive.NewObjectID()
	stored := append(bson.D{{Key: types.IDField, Value: oid}}, codec.ToBSON(doc)...)
	if _, err := coll.InsertOne(ctx, stored); err != nil {
		return "", storeErr("insert", err)
	}
	c.backend.logger.Debug("insert", zap.String("collection", c.name), zap.String("id", oid.Hex()))
	return oid.Hex(), nil
}

// Get retrieves a document by identifier.
func (c *Collection) Get(ctx context.Context, id string) (types.Document, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	coll, err := c.handle()
	if err != nil {
		return nil, err
	}

	var raw bson.D
	err = coll.FindOne(ctx, bson.D{{Key: types.IDField, Value: oid}}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get", err)
	}
	return codec.DocumentFromBSON(raw), nil
}

// buildFilter translates the equality conditions of q. ok is false when a
// condition can never match (an identifier that is not an ObjectID).
func buildFilter(q types.Query) (filter bson.D, ok bool, err error) {
	filter = bson.D{}
	for _, cond := range q.Conditions {
		if cond.Field == types.IDField {
			id, isString := cond.Value.(string)
			if !isString {
				return nil, false, fmt.Errorf("%w: %s must be a string", types.ErrInvalidQuery, types.IDField)
			}
			oid, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return nil, false, nil
			}
			filter = append(filter, bson.E{Key: types.IDField, Value: oid})
			continue
		}
		filter = append(filter, bson.E{Key: cond.Field, Value: cond.Value})
	}
	return filter, true, nil
}

// Find returns the documents matching q ordered by identifier, which for
// ObjectIDs generated by this backend is insertion order.
func (c *Collection) Find(ctx context.Context, q types.Query) ([]types.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, ok, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []types.Document{}, nil
	}

	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	coll, err := c.handle()
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: types.IDField, Value: 1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr("find", err)
	}
	var raws []bson.D
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, storeErr("find", err)
	}

	docs := make([]types.Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, codec.DocumentFromBSON(raw))
	}
	return docs, nil
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

// Update runs a single $set with findOneAndUpdate, returning the document
// as it was before the change.
func (c *Collection) Update(ctx context.Context, id string, changes types.Document) (types.Document, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateChanges(changes); err != nil {
		return nil, err
	}

	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	coll, err := c.handle()
	if err != nil {
		return nil, err
	}

	var raw bson.D
	err = coll.FindOneAndUpdate(ctx,
		bson.D{{Key: types.IDField, Value: oid}},
		bson.D{{Key: "$set", Value: codec.ToBSON(changes)}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("update", err)
	}
	c.backend.logger.Debug("update", zap.String("collection", c.name), zap.String("id", id))
	return codec.DocumentFromBSON(raw), nil
}

// Delete removes a document by identifier.
func (c *Collection) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	coll, err := c.handle()
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.D{{Key: types.IDField, Value: oid}})
	if err != nil {
		return storeErr("delete", err)
	}
	if res.DeletedCount == 0 {
		return types.ErrNotFound
	}
	c.backend.logger.Debug("delete", zap.String("collection", c.name), zap.String("id", id))
	return nil
}

// Clear removes every document in the collection.
func (c *Collection) Clear(ctx context.Context) (int64, error) {
	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()
	coll, err := c.handle()
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, storeErr("clear", err)
	}
	c.backend.logger.Debug("clear", zap.String("collection", c.name), zap.Int64("removed", res.DeletedCount))
	return res.DeletedCount, nil
}
