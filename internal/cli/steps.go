package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/embedref/internal/scenario"
)

// step is one demonstration operation: it runs against the store and
// renders its report.
type step func(ctx context.Context, w io.Writer) error

func (a *app) clearStep(ctx context.Context, w io.Writer) error {
	report, err := a.runner.Clear(ctx)
	if err != nil {
		return err
	}
	return a.render(w, report, func(w io.Writer) { printClear(w, report) })
}

func (a *app) seedStep(ctx context.Context, w io.Writer) error {
	report, err := a.runner.Seed(ctx)
	if err != nil {
		return err
	}
	return a.render(w, report, func(w io.Writer) { printSeed(w, report) })
}

func (a *app) enrollStep(ctx context.Context, w io.Writer) error {
	report, err := a.runner.Enroll(ctx)
	if err != nil {
		return err
	}
	return a.render(w, report, func(w io.Writer) { printEnroll(w, report) })
}

func (a *app) queryStep(ctx context.Context, w io.Writer) error {
	report, err := a.runner.Query(ctx)
	if err != nil {
		return err
	}
	return a.render(w, report, func(w io.Writer) { printQuery(w, report) })
}

func (a *app) updateStep(studentID, newName string) step {
	return func(ctx context.Context, w io.Writer) error {
		report, err := a.runner.UpdateStudentName(ctx, studentID, newName)
		if err != nil {
			return err
		}
		return a.render(w, report, func(w io.Writer) { printUpdate(w, report) })
	}
}

func (a *app) runAllStep(ctx context.Context, w io.Writer) error {
	report, err := a.runner.RunAll(ctx)
	if err != nil {
		return err
	}
	return a.render(w, report, func(w io.Writer) { printRunAll(w, report) })
}

// runStep runs s under the operation timeout.
func (a *app) runStep(cmd *cobra.Command, s step) error {
	ctx, cancel := a.opContext(cmd.Context())
	defer cancel()
	return s(ctx, cmd.OutOrStdout())
}

// stepCmd builds a command that takes no arguments and runs s.
func (a *app) stepCmd(use, short string, s step) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStep(cmd, s)
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return a.stepCmd("clear", "Remove every document from the three collections", a.clearStep)
}

func newSeedCmd(a *app) *cobra.Command {
	return a.stepCmd("seed", "Insert the sample students and courses", a.seedStep)
}

func newEnrollCmd(a *app) *cobra.Command {
	return a.stepCmd("enroll", "Create one referenced and one embedded enrollment", a.enrollStep)
}

func newQueryCmd(a *app) *cobra.Command {
	return a.stepCmd("query", "Resolve both enrollments and compare their sizes", a.queryStep)
}

func newRunAllCmd(a *app) *cobra.Command {
	return a.stepCmd("run-all", "Clear, seed, enroll, query, and rename in sequence", a.runAllStep)
}

func newUpdateNameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update-name [studentId] [newName]",
		Short: "Rename a student and show what each enrollment shape sees",
		Long: `Update-name sets the name of the student with the given business id
(default ` + scenario.DefaultUpdateStudentID + `) to newName (default "` + scenario.DefaultUpdatedName + `"), then
resolves both enrollments again. The referenced enrollment shows the new name;
the embedded one keeps the name it was created with.`,
		Args: usageArgs(cobra.MaximumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, newName := scenario.DefaultUpdateStudentID, scenario.DefaultUpdatedName
			if len(args) > 0 {
				studentID = args[0]
			}
			if len(args) > 1 {
				newName = args[1]
			}
			return a.runStep(cmd, a.updateStep(studentID, newName))
		},
	}
}
