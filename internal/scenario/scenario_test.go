package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/embedref/internal/sqlite"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// setupRunner attaches a SQLite store in a temp dir, bootstraps it, and
// returns a Runner with a fixed clock.
func setupRunner(t *testing.T) (*Runner, types.Store) {
	t.Helper()
	ctx := context.Background()
	b := sqlite.NewBackend(nil)
	require.NoError(t, b.Attach(ctx, types.Config{
		Backend:     types.BackendSQLite,
		DataDir:     t.TempDir(),
		Collections: types.DefaultCollectionNames(),
	}))
	t.Cleanup(func() { b.Detach(ctx) })

	r := NewRunner(b, types.DefaultCollectionNames(), nil)
	r.now = func() time.Time { return fixedNow }
	_, err := r.Bootstrap(ctx)
	require.NoError(t, err)
	return r, b
}

func TestBootstrapReportsExisting(t *testing.T) {
	r, _ := setupRunner(t)

	report, err := r.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Equal(t, types.DefaultCollectionNames().All(), report.Existing)
}

func TestSeedAndClear(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()

	seed, err := r.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, seed.Inserted)
	require.Len(t, seed.Students, 3)
	require.Len(t, seed.Courses, 3)
	assert.Equal(t, "S1001", seed.Students[0].StudentID)
	assert.Equal(t, "Web Development Fundamentals", seed.Courses[2].Name)
	for _, s := range seed.Students {
		assert.NotEmpty(t, s.ID)
	}

	_, err = r.Enroll(ctx)
	require.NoError(t, err)

	cleared, err := r.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CollectionCount{
		{Collection: types.DefaultStudentsCollection, Removed: 3},
		{Collection: types.DefaultCoursesCollection, Removed: 3},
		{Collection: types.DefaultEnrollmentsCollection, Removed: 2},
	}, cleared.Collections)
}

func TestEnrollNeedsSeed(t *testing.T) {
	r, _ := setupRunner(t)
	_, err := r.Enroll(context.Background())
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func TestEnrollBuildsBothShapes(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	seed, err := r.Seed(ctx)
	require.NoError(t, err)

	report, err := r.Enroll(ctx)
	require.NoError(t, err)

	ref, ok := report.Referenced.(*types.ReferencedEnrollment)
	require.True(t, ok)
	assert.Equal(t, seed.Students[0].ID, ref.StudentRef)
	assert.Equal(t, seed.Courses[0].ID, ref.CourseRef)
	assert.Equal(t, ReferencedGrade, ref.Grade)
	assert.Equal(t, fixedNow, ref.Date)

	emb, ok := report.Embedded.(*types.EmbeddedEnrollment)
	require.True(t, ok)
	assert.Equal(t, seed.Students[1], emb.Student)
	assert.Equal(t, seed.Courses[1], emb.Course)
	assert.Equal(t, EmbeddedGrade, emb.Grade)

	assert.Equal(t, ref.ID, report.ReferencedDocument.ID())
	assert.Contains(t, report.ReferencedDocument, types.FieldStudentRef)
	assert.NotContains(t, report.ReferencedDocument, types.FieldStudent)
	assert.Contains(t, report.EmbeddedDocument, types.FieldStudent)
	assert.NotContains(t, report.EmbeddedDocument, types.FieldStudentRef)
}

func TestQueryEmptyStore(t *testing.T) {
	r, _ := setupRunner(t)

	report, err := r.Query(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Referenced.Found)
	assert.False(t, report.Embedded.Found)
	assert.Nil(t, report.Comparison)
}

func TestQueryResolvesBoth(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	_, err := r.Seed(ctx)
	require.NoError(t, err)
	_, err = r.Enroll(ctx)
	require.NoError(t, err)

	report, err := r.Query(ctx)
	require.NoError(t, err)

	require.NotNil(t, report.Referenced.View)
	assert.Equal(t, "John Smith", report.Referenced.View.StudentName)
	assert.Equal(t, "CS101", report.Referenced.View.CourseBusinessID)
	assert.Equal(t, 2, report.Referenced.View.Lookups)

	require.NotNil(t, report.Embedded.View)
	assert.Equal(t, "Emily Johnson", report.Embedded.View.StudentName)
	assert.Equal(t, "Database Management Systems", report.Embedded.View.CourseName)
	assert.Zero(t, report.Embedded.View.Lookups)

	require.NotNil(t, report.Comparison)
	assert.True(t, report.Comparison.Available)
	assert.Greater(t, report.Comparison.Ratio, 1.0)
}

func TestQueryReportsDanglingReference(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	seed, err := r.Seed(ctx)
	require.NoError(t, err)
	_, err = r.Enroll(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, types.DefaultStudentsCollection, seed.Students[0].ID))

	report, err := r.Query(ctx)
	require.NoError(t, err)
	assert.True(t, report.Referenced.Found)
	assert.Nil(t, report.Referenced.View)
	assert.Equal(t, []string{"student"}, report.Referenced.Missing)
	require.NotNil(t, report.Embedded.View)

	err = r.Delete(ctx, types.DefaultStudentsCollection, seed.Students[0].ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateStudentNameShowsDivergence(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	_, err := r.Seed(ctx)
	require.NoError(t, err)
	enrolled, err := r.Enroll(ctx)
	require.NoError(t, err)

	report, err := r.UpdateStudentName(ctx, DefaultUpdateStudentID, DefaultUpdatedName)
	require.NoError(t, err)

	assert.Equal(t, "John Smith", report.Change.OldValue)
	assert.Equal(t, DefaultUpdatedName, report.Change.NewValue)
	assert.Equal(t, DefaultUpdatedName, report.StudentDocument[types.FieldName])

	require.NotNil(t, report.Referenced.View)
	assert.Equal(t, DefaultUpdatedName, report.Referenced.View.StudentName)
	require.NotNil(t, report.Embedded.View)
	assert.Equal(t, "Emily Johnson", report.Embedded.View.StudentName)

	assert.Equal(t, []string{enrolled.Referenced.Info().ID}, report.Impact.Live)
	assert.Empty(t, report.Impact.Stale)
}

func TestUpdateStudentNameUnknown(t *testing.T) {
	r, _ := setupRunner(t)
	_, err := r.UpdateStudentName(context.Background(), "S9999", "Nobody")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRunAll(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()

	// A second run starts from a clean store.
	for range 2 {
		report, err := r.RunAll(ctx)
		require.NoError(t, err)
		assert.Len(t, report.Seed.Students, 3)
		require.NotNil(t, report.Query.Comparison)
		assert.Greater(t, report.Query.Comparison.EmbeddedBytes, report.Query.Comparison.ReferencedBytes)
		require.NotNil(t, report.Update.Referenced.View)
		assert.Equal(t, DefaultUpdatedName, report.Update.Referenced.View.StudentName)
		assert.Equal(t, "Emily Johnson", report.Update.Embedded.View.StudentName)
	}
}

func TestResolveStored(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	_, err := r.Seed(ctx)
	require.NoError(t, err)
	enrolled, err := r.Enroll(ctx)
	require.NoError(t, err)

	result, err := r.Resolve(ctx, enrolled.Embedded.Info().ID)
	require.NoError(t, err)
	require.NotNil(t, result.View)
	assert.Equal(t, types.EnrollmentEmbedded, result.View.Type)

	_, err = r.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestEnrollStudent(t *testing.T) {
	r, store := setupRunner(t)
	ctx := context.Background()
	_, err := r.Seed(ctx)
	require.NoError(t, err)
	_, err = r.propagator.UpdateEntityField(ctx, types.DefaultStudentsCollection, mustStudentID(t, r, "S1003"), "major", "Physics")
	require.NoError(t, err)

	ref, err := r.EnrollStudent(ctx, types.EnrollmentReferenced, "S1003", "CS303", "C")
	require.NoError(t, err)
	require.NotNil(t, ref.View)
	assert.Equal(t, "Michael Brown", ref.View.StudentName)
	assert.Equal(t, "CS303", ref.View.CourseBusinessID)
	assert.Equal(t, "C", ref.View.Grade)
	assert.Equal(t, 2, ref.View.Lookups)

	emb, err := r.EnrollStudent(ctx, types.EnrollmentEmbedded, "S1003", "CS303", "B")
	require.NoError(t, err)
	require.NotNil(t, emb.View)
	assert.Equal(t, fixedNow, emb.View.Date)
	assert.Equal(t, 0, emb.View.Lookups)

	students, err := store.Collection(types.DefaultStudentsCollection)
	require.NoError(t, err)
	canonical, err := students.Get(ctx, mustStudentID(t, r, "S1003"))
	require.NoError(t, err)
	embedded, ok := emb.Document.Doc(types.FieldStudent)
	require.True(t, ok)
	assert.Equal(t, "Physics", embedded["major"], "the copy carries the whole stored record")
	assert.Equal(t, canonical.ID(), embedded.ID())

	tests := []struct {
		name      string
		kind      types.EnrollmentType
		studentID string
		courseID  string
		want      error
	}{
		{name: "unknown student", kind: types.EnrollmentEmbedded, studentID: "S9999", courseID: "CS101", want: types.ErrNotFound},
		{name: "unknown course", kind: types.EnrollmentReferenced, studentID: "S1001", courseID: "CS999", want: types.ErrNotFound},
		{name: "unknown strategy", kind: "linked", studentID: "S1001", courseID: "CS101", want: types.ErrInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.EnrollStudent(ctx, tt.kind, tt.studentID, tt.courseID, "A")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func mustStudentID(t *testing.T, r *Runner, studentID string) string {
	t.Helper()
	s, found, err := r.entities.StudentByBusinessID(context.Background(), studentID)
	require.NoError(t, err)
	require.True(t, found)
	return s.ID
}

func TestExport(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	_, err := r.Seed(ctx)
	require.NoError(t, err)
	enrolled, err := r.Enroll(ctx)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "export")
	report, err := r.Export(ctx, dir)
	require.NoError(t, err)
	require.Len(t, report.Files, 3)
	assert.Equal(t, 3, report.Files[0].Documents)
	assert.Equal(t, 2, report.Files[2].Documents)

	docs, err := readJSONL(filepath.Join(dir, types.DefaultEnrollmentsCollection+".jsonl"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	got, err := types.DecodeEnrollment(docs[1])
	require.NoError(t, err)
	assert.Equal(t, enrolled.Embedded, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files are left behind")
}

func TestReadJSONLRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\nnot json\n"), 0o644))

	_, err := readJSONL(path)
	assert.ErrorContains(t, err, "line 3")
}

func TestImportRestoresExport(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	_, err := r.Seed(ctx)
	require.NoError(t, err)
	_, err = r.Enroll(ctx)
	require.NoError(t, err)
	dir := t.TempDir()
	_, err = r.Export(ctx, dir)
	require.NoError(t, err)

	_, err = r.Clear(ctx)
	require.NoError(t, err)
	report, err := r.Import(ctx, dir)
	require.NoError(t, err)
	require.Len(t, report.Files, 3)
	assert.Zero(t, report.Unresolved)

	query, err := r.Query(ctx)
	require.NoError(t, err)
	require.NotNil(t, query.Referenced.View, "references point at the re-imported documents")
	assert.Equal(t, "John Smith", query.Referenced.View.StudentName)
	require.NotNil(t, query.Embedded.View)
	assert.Equal(t, "Emily Johnson", query.Embedded.View.StudentName)

	students, err := r.entities.Students(ctx)
	require.NoError(t, err)
	emb, err := types.DecodeEnrollment(query.Embedded.Document)
	require.NoError(t, err)
	assert.Equal(t, students[1].ID, emb.(*types.EmbeddedEnrollment).Student.ID)
}

func TestImportKeepsUnknownReferences(t *testing.T) {
	r, _ := setupRunner(t)
	ctx := context.Background()
	dir := t.TempDir()
	line := `{"_id":"e1","enrollmentType":"referenced","date":{"$date":"2026-10-19T09:00:00Z"},"grade":"A","studentRef":"gone","courseRef":"gone-too"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, types.DefaultEnrollmentsCollection+".jsonl"), []byte(line+"\n"), 0o644))

	report, err := r.Import(ctx, dir)
	require.NoError(t, err)
	require.Len(t, report.Files, 1, "missing files are skipped")
	assert.Equal(t, 2, report.Unresolved)

	query, err := r.Query(ctx)
	require.NoError(t, err)
	assert.True(t, query.Referenced.Found)
	assert.Equal(t, []string{"student", "course"}, query.Referenced.Missing)
}
