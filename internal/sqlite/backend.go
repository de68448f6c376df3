// Package sqlite implements the SQLite document store backend.
// Documents are stored as relaxed Extended JSON in a single documents table,
// partitioned by collection, and queried with the SQLite JSON functions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// DatabaseFileName is the SQLite file created inside Config.DataDir.
const DatabaseFileName = "embedref.db"

// Backend implements types.Store on a SQLite database file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger
}

var _ types.Store = (*Backend)(nil)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{logger: logger.Named("sqlite")}
}

// Attach opens (or creates) the database file under DataDir and applies the
// schema. Existing data is kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: sqlite backend given %q", types.ErrBackendUnknown, config.Backend)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", dbPath, types.ErrStoreUnavailable, err)
	}
	// One connection keeps every operation serialized at the database too.
	db.SetMaxOpenConns(1)

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w: %w", types.ErrStoreUnavailable, err)
	}

	b.db = db
	b.config = config
	b.attached = true
	b.logger.Debug("attached", zap.String("path", dbPath))
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.logger.Debug("detached")
	return nil
}

// Collection returns a handle for the named collection. Operations on it
// return ErrCollectionNotFound until the collection is bootstrapped with
// EnsureCollection.
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

// CollectionExists reports whether name has been bootstrapped.
func (b *Backend) CollectionExists(ctx context.Context, name string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return false, types.ErrStoreDetached
	}
	return b.collectionExistsLocked(ctx, name)
}

func (b *Backend) collectionExistsLocked(ctx context.Context, name string) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, storeErr("check collection", err)
	}
	return n > 0, nil
}

// EnsureCollection registers name if it is not registered yet and reports
// whether it did.
func (b *Backend) EnsureCollection(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, types.ErrCollectionNameEmpty
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return false, types.ErrStoreDetached
	}
	res, err := b.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)",
		name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, storeErr("create collection", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("create collection", err)
	}
	if n > 0 {
		b.logger.Debug("created collection", zap.String("collection", name))
	}
	return n > 0, nil
}

// generateUUID generates a new UUID v7 for document IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// storeErr marks a database failure as ErrStoreUnavailable, keeping the
// driver error in the chain.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
}
