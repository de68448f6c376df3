package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// initReport is what init prints: where things live and which collections
// had to be created.
type initReport struct {
	ConfigDir string   `json:"configDir" yaml:"configDir"`
	DataDir   string   `json:"dataDir,omitempty" yaml:"dataDir,omitempty"`
	Backend   string   `json:"backend" yaml:"backend"`
	Database  string   `json:"database,omitempty" yaml:"database,omitempty"`
	Created   []string `json:"created" yaml:"created"`
	Existing  []string `json:"existing" yaml:"existing"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration, data directory, and collections",
		Long: `Init writes a default config.yaml if there is none, attaches the configured
store, and creates the students, courses, and enrollments collections. It is
safe to run repeatedly; collections that already exist are left alone.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The pre-run hook has already attached and bootstrapped.
			report := initReport{
				ConfigDir: a.settings.ConfigDir,
				Backend:   a.settings.Store.Backend,
				Created:   a.bootstrap.Created,
				Existing:  a.bootstrap.Existing,
			}
			if report.Backend == types.BackendMongoDB {
				report.Database = a.settings.Store.MongoDB.Database
			} else {
				report.DataDir = a.settings.Store.DataDir
			}
			return a.render(cmd.OutOrStdout(), report, func(w io.Writer) {
				printBootstrap(w, a.bootstrap)
				fmt.Fprintln(w, "embedref initialized successfully")
				fmt.Fprintln(w, "  config:", report.ConfigDir)
				if report.DataDir != "" {
					fmt.Fprintln(w, "  data:  ", report.DataDir)
				} else {
					fmt.Fprintln(w, "  database:", report.Database)
				}
			})
		},
	}
}
