package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/embedref/internal/relation"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// defaultGrade is the grade enroll-student records when none is given.
const defaultGrade = "A"

// deleteReport is what delete prints.
type deleteReport struct {
	Collection string `json:"collection" yaml:"collection"`
	ID         string `json:"id" yaml:"id"`
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Remove one document by identifier",
		Long: `Delete removes a document from one of the configured collections. Deleting
a student or course leaves every referenced enrollment that points at it
dangling; embedded enrollments keep their copies.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, id := args[0], args[1]
			names := a.settings.Store.Collections.All()
			if !slices.Contains(names, collection) {
				return fmt.Errorf("%w: unknown collection %q (valid: %s)",
					types.ErrCollectionNotFound, collection, strings.Join(names, ", "))
			}
			return a.runStep(cmd, func(ctx context.Context, w io.Writer) error {
				if err := a.runner.Delete(ctx, collection, id); err != nil {
					return err
				}
				report := deleteReport{Collection: collection, ID: id}
				return a.render(w, report, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s/%s\n", collection, id)
				})
			})
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <enrollmentId>",
		Short: "Resolve one stored enrollment into a hydrated view",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStep(cmd, func(ctx context.Context, w io.Writer) error {
				result, err := a.runner.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				return a.render(w, result, func(w io.Writer) {
					label := "stored"
					if kind, err := relation.DetectType(result.Document); err == nil {
						label = string(kind)
					}
					printResult(w, label, result)
				})
			})
		},
	}
}

func newEnrollStudentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enroll-student <referenced|embedded> <studentId> <courseId> [grade]",
		Short: "Enroll one student in one course by business key",
		Long: `Enroll-student stores a single enrollment of the given strategy. A
referenced enrollment records the student and course identifiers; an
embedded one copies both stored records whole. The grade defaults to ` + defaultGrade + `.`,
		Args: usageArgs(cobra.RangeArgs(3, 4)),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := types.EnrollmentType(args[0])
			if kind != types.EnrollmentReferenced && kind != types.EnrollmentEmbedded {
				return usageErrorf("unknown enrollment type %q (valid: %s, %s)",
					args[0], types.EnrollmentReferenced, types.EnrollmentEmbedded)
			}
			grade := defaultGrade
			if len(args) == 4 {
				grade = args[3]
			}
			return a.runStep(cmd, func(ctx context.Context, w io.Writer) error {
				result, err := a.runner.EnrollStudent(ctx, kind, args[1], args[2], grade)
				if err != nil {
					return err
				}
				return a.render(w, result, func(w io.Writer) {
					printResult(w, "new "+string(kind), result)
				})
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every collection to <dir>/<collection>.jsonl",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStep(cmd, func(ctx context.Context, w io.Writer) error {
				report, err := a.runner.Export(ctx, args[0])
				if err != nil {
					return err
				}
				return a.render(w, report, func(w io.Writer) { printExport(w, report) })
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load <dir>/<collection>.jsonl files written by export",
		Long: `Import inserts the documents of an export into the configured collections.
Every document gets a new identifier and enrollment references are rewritten
to match. References to documents that are not part of the export are kept
and will dangle.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStep(cmd, func(ctx context.Context, w io.Writer) error {
				report, err := a.runner.Import(ctx, args[0])
				if err != nil {
					return err
				}
				return a.render(w, report, func(w io.Writer) { printImport(w, report) })
			})
		},
	}
}
