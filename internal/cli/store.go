package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/internal/mongo"
	"github.com/mesh-intelligence/embedref/internal/sqlite"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// openStore creates the backend cfg selects and attaches it.
func openStore(ctx context.Context, cfg types.Config, logger *zap.Logger) (types.Store, error) {
	var store types.Store
	switch cfg.Backend {
	case types.BackendSQLite:
		store = sqlite.NewBackend(logger)
	case types.BackendMongoDB:
		store = mongo.NewBackend(logger)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
	}
	if err := store.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("attach %s store: %w", cfg.Backend, err)
	}
	return store, nil
}
