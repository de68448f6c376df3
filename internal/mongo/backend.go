// Package mongo implements the MongoDB document store backend with the
// official Go driver. Identifiers are ObjectIDs in the database and their
// hex form everywhere else.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// codeNamespaceExists is the server error code for creating a collection
// that already exists.
const codeNamespaceExists = 48

// Backend implements types.Store on a MongoDB database.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	client   *mongo.Client
	db       *mongo.Database
	logger   *zap.Logger
}

var _ types.Store = (*Backend)(nil)

// NewBackend creates a new MongoDB backend instance.
// The backend is not attached; call Attach with a Config to connect.
func NewBackend(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{logger: logger.Named("mongo")}
}

// Attach connects to config.MongoDB.URI and pings the primary so that an
// unreachable deployment fails here rather than on first use.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendMongoDB {
		return fmt.Errorf("%w: mongodb backend given %q", types.ErrBackendUnknown, config.Backend)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoDB.URI))
	if err != nil {
		return storeErr("connect", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return storeErr("ping", err)
	}

	b.client = client
	b.db = client.Database(config.MongoDB.Database)
	b.attached = true
	b.logger.Debug("attached", zap.String("database", config.MongoDB.Database))
	return nil
}

// Detach disconnects the client. Idempotent.
func (b *Backend) Detach(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.client.Disconnect(ctx); err != nil {
		return storeErr("disconnect", err)
	}
	b.client = nil
	b.db = nil
	b.attached = false
	b.logger.Debug("detached")
	return nil
}

// Collection returns a handle for the named collection. MongoDB creates
// collections implicitly on first write, so the handle works before
// EnsureCollection as well.
func (b *Backend) Collection(name string) (types.Collection, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	if name == "" {
		return nil, types.ErrCollectionNameEmpty
	}
	return &Collection{name: name, backend: b}, nil
}

// CollectionExists lists collections filtered by name.
func (b *Backend) CollectionExists(ctx context.Context, name string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return false, types.ErrStoreDetached
	}
	return b.collectionExistsLocked(ctx, name)
}

func (b *Backend) collectionExistsLocked(ctx context.Context, name string) (bool, error) {
	names, err := b.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, storeErr("list collections", err)
	}
	return len(names) > 0, nil
}

// EnsureCollection creates name unless it exists. A concurrent creator
// winning the race counts as "already present".
func (b *Backend) EnsureCollection(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, types.ErrCollectionNameEmpty
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return false, types.ErrStoreDetached
	}
	exists, err := b.collectionExistsLocked(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	err = b.db.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
		return false, nil
	}
	if err != nil {
		return false, storeErr("create collection", err)
	}
	b.logger.Debug("created collection", zap.String("collection", name))
	return true, nil
}

// storeErr marks a driver failure as ErrStoreUnavailable, keeping the
// driver error in the chain.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
}
