package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/embedref/internal/scenario"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// errUsage marks mistakes in how the command was invoked.
var errUsage = errors.New("usage")

// errInvalidChoice is returned for menu input that is not a listed option.
var errInvalidChoice = errors.New("invalid choice")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}

// userErrors are the failures caused by what the user asked for rather than
// by the system.
var userErrors = []error{
	errUsage,
	errInvalidChoice,
	scenario.ErrNotSeeded,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidDocument,
	types.ErrInvalidQuery,
	types.ErrCollectionNotFound,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrMongoURIEmpty,
	types.ErrMongoDatabaseEmpty,
	types.ErrCollectionNameEmpty,
	types.ErrCollectionNameReused,
}

// exitCode maps an error to the process exit status. An unreachable store
// is a system error even when it wraps something else.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, types.ErrStoreUnavailable) {
		return exitSysError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
