// Package cli implements the embedref command-line interface: one cobra
// command per demonstration step, an interactive menu, and text, JSON, or
// YAML rendering of the reports the scenario runner returns.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/internal/scenario"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// Version is the embedref release. mage build overrides it with -ldflags.
var Version = "0.1.0"

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	output    string
	logFile   string
	verbose   bool
	userDirs  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags rootFlags

	settings  settings
	logger    *zap.Logger
	closeLog  func() error
	store     types.Store
	runner    *scenario.Runner
	bootstrap scenario.BootstrapReport
}

// NewRootCmd creates the top-level "embedref" command with global flags and
// all subcommands registered. Run with no subcommand it opens the menu.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "embedref",
		Short: "Compare embedded and referenced one-to-one relationships",
		Long: `embedref stores students, courses, and enrollments in a document store and
shows how an embedded enrollment (a copy of its student and course) and a
referenced enrollment (identifiers resolved on read) differ in size and in
how they see later updates.`,
		Version:            Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args:               usageArgs(cobra.NoArgs),
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
		RunE:               a.runMenu,
	}

	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.embedref)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.embedref-db)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite or mongodb (overrides config)")
	pf.StringVarP(&a.flags.output, "output", "o", outputText, "output format: text, json, or yaml")
	pf.StringVar(&a.flags.logFile, "log-file", "", "append a JSON operations log to this file")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug detail to stderr")
	pf.BoolVar(&a.flags.userDirs, "user", false, "use the per-user platform directories instead of the working directory")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newMenuCmd(a),
		newClearCmd(a),
		newSeedCmd(a),
		newEnrollCmd(a),
		newQueryCmd(a),
		newUpdateNameCmd(a),
		newRunAllCmd(a),
		newDeleteCmd(a),
		newResolveCmd(a),
		newEnrollStudentCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "embedref:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup loads the configuration, builds the logger, attaches the store, and
// bootstraps the collections.
func (a *app) setup(cmd *cobra.Command, args []string) (err error) {
	if skipSetup(cmd) {
		return nil
	}
	defer func() {
		if err != nil {
			_ = a.teardown(cmd, args)
		}
	}()
	if !validOutput(a.flags.output) {
		return usageErrorf("unknown output format %q (valid: text, json, yaml)", a.flags.output)
	}

	s, err := loadSettings(a.flags)
	if err != nil {
		return err
	}
	a.settings = s

	a.logger, a.closeLog, err = newLogger(s, a.flags.verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger.Debug("configuration loaded",
		zap.String("config_dir", s.ConfigDir),
		zap.String("data_dir", s.Store.DataDir),
		zap.String("backend", s.Store.Backend))

	ctx, cancel := a.opContext(cmd.Context())
	defer cancel()
	store, err := openStore(ctx, s.Store, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	a.runner = scenario.NewRunner(store, s.Store.Collections, a.logger)

	a.bootstrap, err = a.runner.Bootstrap(ctx)
	return err
}

// skipSetup reports commands that never touch the store.
func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help":
		return true
	}
	return false
}

// teardown detaches the store and closes the log file.
func (a *app) teardown(cmd *cobra.Command, args []string) error {
	var errs []error
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout())
		defer cancel()
		errs = append(errs, a.store.Detach(ctx))
		a.store = nil
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
		a.closeLog = nil
	}
	return errors.Join(errs...)
}

func (a *app) timeout() time.Duration {
	if a.settings.Timeout > 0 {
		return a.settings.Timeout
	}
	return defaultTimeout
}

// opContext bounds one store operation by the configured timeout.
func (a *app) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, a.timeout())
}

// render writes v in the selected output format; text output goes through
// printText.
func (a *app) render(w io.Writer, v any, printText func(io.Writer)) error {
	return render(w, a.flags.output, v, printText)
}
