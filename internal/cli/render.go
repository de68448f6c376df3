package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/embedref/internal/codec"
	"github.com/mesh-intelligence/embedref/internal/relation"
	"github.com/mesh-intelligence/embedref/internal/scenario"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validOutput(format string) bool {
	switch format {
	case outputText, outputJSON, outputYAML:
		return true
	}
	return false
}

// render writes v as JSON or YAML, or calls printText for text output.
func render(w io.Writer, format string, v any, printText func(io.Writer)) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		printText(w)
		return nil
	}
}

// printDocument writes doc as indented relaxed Extended JSON.
func printDocument(w io.Writer, doc types.Document) {
	data, err := codec.MarshalExtJSONIndent(doc)
	if err != nil {
		fmt.Fprintf(w, "  (cannot render document: %s)\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

func printBootstrap(w io.Writer, r scenario.BootstrapReport) {
	for _, name := range r.Created {
		fmt.Fprintf(w, "Created collection: %s\n", name)
	}
	for _, name := range r.Existing {
		fmt.Fprintf(w, "Collection already exists: %s\n", name)
	}
}

func printClear(w io.Writer, r scenario.ClearReport) {
	fmt.Fprintln(w, "--- CLEARING COLLECTIONS ---")
	for _, c := range r.Collections {
		fmt.Fprintf(w, "  - %s: %d removed\n", c.Collection, c.Removed)
	}
	fmt.Fprintln(w, "All collections cleared.")
}

func printSeed(w io.Writer, r scenario.SeedReport) {
	fmt.Fprintln(w, "--- INSERTING SAMPLE DATA ---")
	fmt.Fprintf(w, "Inserted %d documents\n", r.Inserted)
	fmt.Fprintln(w, "\nStudents in database:")
	for _, s := range r.Students {
		fmt.Fprintf(w, "  - %s (ID: %s, Email: %s)\n", s.Name, s.StudentID, s.Email)
	}
	fmt.Fprintln(w, "\nCourses in database:")
	for _, c := range r.Courses {
		fmt.Fprintf(w, "  - %s (ID: %s, Credits: %d)\n", c.Name, c.CourseID, c.Credits)
	}
}

func printEnroll(w io.Writer, r scenario.EnrollReport) {
	fmt.Fprintln(w, "--- CREATING ENROLLMENTS ---")
	if ref, ok := r.Referenced.(*types.ReferencedEnrollment); ok {
		fmt.Fprintln(w, "Created referenced enrollment:")
		fmt.Fprintf(w, "  - Student ref: %s\n", ref.StudentRef)
		fmt.Fprintf(w, "  - Course ref:  %s\n", ref.CourseRef)
		fmt.Fprintf(w, "  - Grade: %s\n", ref.Grade)
	}
	if emb, ok := r.Embedded.(*types.EmbeddedEnrollment); ok {
		fmt.Fprintln(w, "\nCreated embedded enrollment:")
		fmt.Fprintf(w, "  - Student: %s (ID: %s)\n", emb.Student.Name, emb.Student.StudentID)
		fmt.Fprintf(w, "  - Course: %s (ID: %s)\n", emb.Course.Name, emb.Course.CourseID)
		fmt.Fprintf(w, "  - Grade: %s\n", emb.Grade)
	}
	fmt.Fprintln(w, "\nDocument structure comparison:")
	fmt.Fprintln(w, "1. Referenced enrollment:")
	printDocument(w, r.ReferencedDocument)
	fmt.Fprintln(w, "\n2. Embedded enrollment:")
	printDocument(w, r.EmbeddedDocument)
}

// printResult writes one resolved enrollment. label names its strategy, as
// in "referenced" or "new embedded".
func printResult(w io.Writer, label string, r scenario.EnrollmentResult) {
	switch {
	case !r.Found:
		fmt.Fprintf(w, "No %s enrollment found\n", label)
		return
	case r.View == nil:
		fmt.Fprintf(w, "Dangling reference: %s not found\n", strings.Join(r.Missing, " and "))
	default:
		v := r.View
		fmt.Fprintf(w, "Enrollment Date: %s\n", v.Date.Format("2006-01-02T15:04:05.000Z07:00"))
		fmt.Fprintf(w, "Grade: %s\n", v.Grade)
		fmt.Fprintf(w, "Student: %s (ID: %s)\n", v.StudentName, v.StudentBusinessID)
		fmt.Fprintf(w, "Course: %s (ID: %s)\n", v.CourseName, v.CourseBusinessID)
		fmt.Fprintf(w, "Lookups: %d\n", v.Lookups)
	}
	fmt.Fprintf(w, "\n%s enrollment document:\n", capitalize(label))
	printDocument(w, r.Document)
}

func printComparison(w io.Writer, c *relation.Comparison) {
	if c == nil {
		return
	}
	fmt.Fprintln(w, "\nDocument Size Comparison:")
	if c.Err != nil {
		fmt.Fprintf(w, "  unavailable: %s\n", c.Err)
		return
	}
	fmt.Fprintf(w, "Referenced Enrollment: ~%d bytes\n", c.ReferencedBytes)
	fmt.Fprintf(w, "Embedded Enrollment: ~%d bytes\n", c.EmbeddedBytes)
	if c.Available {
		fmt.Fprintf(w, "Embedded document is approximately %.1fx larger\n", c.Ratio)
	}
	fmt.Fprintf(w, "Referenced: %s\n", c.StalenessRisk.Referenced.Note)
	fmt.Fprintf(w, "Embedded: %s\n", c.StalenessRisk.Embedded.Note)
}

func printQuery(w io.Writer, r scenario.QueryReport) {
	fmt.Fprintln(w, "--- QUERYING ENROLLMENTS ---")
	fmt.Fprintln(w, "Referenced enrollment:")
	printResult(w, "referenced", r.Referenced)
	fmt.Fprintln(w, "\nEmbedded enrollment:")
	printResult(w, "embedded", r.Embedded)
	printComparison(w, r.Comparison)
}

func printUpdate(w io.Writer, r scenario.UpdateReport) {
	fmt.Fprintln(w, "--- UPDATING STUDENT NAME ---")
	fmt.Fprintf(w, "Old name: %v\n", r.Change.OldValue)
	fmt.Fprintf(w, "New name: %v\n", r.Change.NewValue)
	fmt.Fprintln(w, "Student document after update:")
	printDocument(w, r.StudentDocument)

	fmt.Fprintln(w, "\nAfter the update:")
	switch {
	case !r.Referenced.Found:
		fmt.Fprintln(w, "  - No referenced enrollment found")
	case r.Referenced.View == nil:
		fmt.Fprintf(w, "  - Referenced enrollment is dangling: %s not found\n", strings.Join(r.Referenced.Missing, " and "))
	default:
		fmt.Fprintf(w, "  - Referenced enrollment student name: %s (read from the students collection)\n", r.Referenced.View.StudentName)
	}
	switch {
	case !r.Embedded.Found:
		fmt.Fprintln(w, "  - No embedded enrollment found")
	case r.Embedded.View != nil:
		fmt.Fprintf(w, "  - Embedded enrollment student name: %s (copy taken at enrollment)\n", r.Embedded.View.StudentName)
	}
	fmt.Fprintln(w, "  - Embedded documents require separate updates")

	fmt.Fprintf(w, "\nEnrollments reading this student live: %d\n", len(r.Impact.Live))
	fmt.Fprintf(w, "Embedded copies still current: %d\n", len(r.Impact.Current))
	for _, s := range r.Impact.Stale {
		fmt.Fprintf(w, "Stale copy in %s: %s is %v, canonical is %v\n", s.EnrollmentID, s.Field, s.Embedded, s.Canonical)
	}
}

func printRunAll(w io.Writer, r scenario.RunAllReport) {
	printClear(w, r.Clear)
	fmt.Fprintln(w)
	printSeed(w, r.Seed)
	fmt.Fprintln(w)
	printEnroll(w, r.Enroll)
	fmt.Fprintln(w)
	printQuery(w, r.Query)
	fmt.Fprintln(w)
	printUpdate(w, r.Update)
	fmt.Fprintln(w, "\nAll operations completed successfully!")
}

func printExport(w io.Writer, r scenario.ExportReport) {
	for _, f := range r.Files {
		fmt.Fprintf(w, "Exported %d %s to %s\n", f.Documents, f.Collection, f.Path)
	}
}

func printImport(w io.Writer, r scenario.ImportReport) {
	for _, f := range r.Files {
		fmt.Fprintf(w, "Imported %d %s from %s\n", f.Documents, f.Collection, f.Path)
	}
	if r.Unresolved > 0 {
		fmt.Fprintf(w, "%d references point outside the import and will dangle\n", r.Unresolved)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
