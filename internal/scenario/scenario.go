// Package scenario runs the enrollment demonstration against a store: clear
// the collections, seed students and courses, create one referenced and one
// embedded enrollment, resolve them, rename a student, and show how the two
// shapes diverge. Every step returns a report struct; rendering is the
// caller's job.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/internal/relation"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// ErrNotSeeded is returned by Enroll when the store holds fewer than two
// students or two courses.
var ErrNotSeeded = errors.New("not enough students and courses; run seed first")

// BootstrapReport lists which collections were created and which already
// existed.
type BootstrapReport struct {
	Created  []string `json:"created" yaml:"created"`
	Existing []string `json:"existing" yaml:"existing"`
}

// CollectionCount is the number of documents removed from one collection.
type CollectionCount struct {
	Collection string `json:"collection" yaml:"collection"`
	Removed    int64  `json:"removed" yaml:"removed"`
}

// ClearReport is the result of Clear.
type ClearReport struct {
	Collections []CollectionCount `json:"collections" yaml:"collections"`
}

// SeedReport lists the students and courses in the store after seeding.
type SeedReport struct {
	Inserted int             `json:"inserted" yaml:"inserted"`
	Students []types.Student `json:"students" yaml:"students"`
	Courses  []types.Course  `json:"courses" yaml:"courses"`
}

// EnrollReport holds the two enrollments created by Enroll and their stored
// documents.
type EnrollReport struct {
	Referenced         types.Enrollment `json:"-" yaml:"-"`
	Embedded           types.Enrollment `json:"-" yaml:"-"`
	ReferencedDocument types.Document   `json:"referenced" yaml:"referenced"`
	EmbeddedDocument   types.Document   `json:"embedded" yaml:"embedded"`
}

// EnrollmentResult is one resolved enrollment. Found is false when no
// enrollment of the strategy is stored. A dangling reference leaves View nil
// and fills Missing.
type EnrollmentResult struct {
	Found    bool                `json:"found" yaml:"found"`
	Document types.Document      `json:"document,omitempty" yaml:"document,omitempty"`
	View     *types.HydratedView `json:"view,omitempty" yaml:"view,omitempty"`
	Missing  []string            `json:"missing,omitempty" yaml:"missing,omitempty"`

	enrollment types.Enrollment
}

// QueryReport resolves the first enrollment of each strategy and compares
// their sizes.
type QueryReport struct {
	Referenced EnrollmentResult     `json:"referenced" yaml:"referenced"`
	Embedded   EnrollmentResult     `json:"embedded" yaml:"embedded"`
	Comparison *relation.Comparison `json:"comparison,omitempty" yaml:"comparison,omitempty"`
}

// UpdateReport shows a student rename and what each enrollment strategy sees
// afterwards.
type UpdateReport struct {
	Change          relation.FieldChange `json:"change" yaml:"change"`
	StudentDocument types.Document       `json:"student" yaml:"student"`
	Referenced      EnrollmentResult     `json:"referenced" yaml:"referenced"`
	Embedded        EnrollmentResult     `json:"embedded" yaml:"embedded"`
	Impact          relation.Impact      `json:"impact" yaml:"impact"`
}

// RunAllReport collects the reports of a full run.
type RunAllReport struct {
	Clear  ClearReport  `json:"clear" yaml:"clear"`
	Seed   SeedReport   `json:"seed" yaml:"seed"`
	Enroll EnrollReport `json:"enroll" yaml:"enroll"`
	Query  QueryReport  `json:"query" yaml:"query"`
	Update UpdateReport `json:"update" yaml:"update"`
}

// Runner executes the demonstration steps against one store.
type Runner struct {
	store       types.Store
	names       types.CollectionNames
	logger      *zap.Logger
	entities    *relation.Entities
	enrollments *relation.Enrollments
	resolver    *relation.Resolver
	propagator  *relation.Propagator
	comparator  *relation.Comparator
	now         func() time.Time
}

// NewRunner returns a Runner working on store.
func NewRunner(store types.Store, names types.CollectionNames, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:       store,
		names:       names,
		logger:      logger.Named("scenario"),
		entities:    relation.NewEntities(store, names),
		enrollments: relation.NewEnrollments(store, names),
		resolver:    relation.NewResolver(store, names, logger),
		propagator:  relation.NewPropagator(store, names, logger),
		comparator:  relation.NewComparator(),
		now:         time.Now,
	}
}

// Bootstrap makes sure the three collections exist.
func (r *Runner) Bootstrap(ctx context.Context) (BootstrapReport, error) {
	report := BootstrapReport{Created: []string{}, Existing: []string{}}
	for _, name := range r.names.All() {
		created, err := r.store.EnsureCollection(ctx, name)
		if err != nil {
			return BootstrapReport{}, fmt.Errorf("bootstrap %s: %w", name, err)
		}
		if created {
			report.Created = append(report.Created, name)
		} else {
			report.Existing = append(report.Existing, name)
		}
	}
	r.logger.Debug("bootstrapped collections",
		zap.Strings("created", report.Created),
		zap.Strings("existing", report.Existing))
	return report, nil
}

// Clear removes every document from the three collections.
func (r *Runner) Clear(ctx context.Context) (ClearReport, error) {
	var report ClearReport
	for _, name := range r.names.All() {
		c, err := r.store.Collection(name)
		if err != nil {
			return ClearReport{}, fmt.Errorf("collection %s: %w", name, err)
		}
		n, err := c.Clear(ctx)
		if err != nil {
			return ClearReport{}, fmt.Errorf("clear %s: %w", name, err)
		}
		report.Collections = append(report.Collections, CollectionCount{Collection: name, Removed: n})
	}
	r.logger.Debug("cleared collections")
	return report, nil
}

// Seed inserts the sample students and courses, then lists every student
// and course in the store.
func (r *Runner) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	for _, s := range SampleStudents() {
		if _, err := r.entities.CreateStudent(ctx, s); err != nil {
			return SeedReport{}, err
		}
		report.Inserted++
	}
	for _, c := range SampleCourses() {
		if _, err := r.entities.CreateCourse(ctx, c); err != nil {
			return SeedReport{}, err
		}
		report.Inserted++
	}

	var err error
	if report.Students, err = r.entities.Students(ctx); err != nil {
		return SeedReport{}, err
	}
	if report.Courses, err = r.entities.Courses(ctx); err != nil {
		return SeedReport{}, err
	}
	r.logger.Debug("seeded", zap.Int("inserted", report.Inserted))
	return report, nil
}

// Enroll creates a referenced enrollment of the first student in the first
// course, and an embedded enrollment of the second student in the second
// course.
func (r *Runner) Enroll(ctx context.Context) (EnrollReport, error) {
	first, second, err := r.pair(ctx)
	if err != nil {
		return EnrollReport{}, err
	}
	now := r.now()

	ref, err := r.enrollments.Create(ctx, relation.MakeReferenced(first.student.ID, first.course.ID, ReferencedGrade, now))
	if err != nil {
		return EnrollReport{}, err
	}
	emb, err := r.enrollments.Create(ctx, relation.MakeEmbedded(second.student, second.course, EmbeddedGrade, now))
	if err != nil {
		return EnrollReport{}, err
	}

	report := EnrollReport{Referenced: ref, Embedded: emb}
	if report.ReferencedDocument, err = types.EncodeEnrollment(ref); err != nil {
		return EnrollReport{}, err
	}
	if report.EmbeddedDocument, err = types.EncodeEnrollment(emb); err != nil {
		return EnrollReport{}, err
	}
	r.logger.Debug("enrolled",
		zap.String("referenced", ref.Info().ID),
		zap.String("embedded", emb.Info().ID))
	return report, nil
}

type studentCourse struct {
	student types.Student
	course  types.Course
}

// pair picks the first and second student and course in insertion order.
func (r *Runner) pair(ctx context.Context) (first, second studentCourse, err error) {
	picks := make([]studentCourse, 2)
	for i := range picks {
		s, found, err := r.entities.NthStudent(ctx, int64(i))
		if err != nil {
			return first, second, err
		}
		if !found {
			return first, second, ErrNotSeeded
		}
		c, found, err := r.entities.NthCourse(ctx, int64(i))
		if err != nil {
			return first, second, err
		}
		if !found {
			return first, second, ErrNotSeeded
		}
		picks[i] = studentCourse{student: s, course: c}
	}
	return picks[0], picks[1], nil
}

// EnrollStudent enrolls the student with business key studentID in the
// course with business key courseID using the given strategy, and returns
// the new enrollment resolved. An embedded enrollment copies the stored
// student and course records whole.
func (r *Runner) EnrollStudent(ctx context.Context, kind types.EnrollmentType, studentID, courseID, grade string) (EnrollmentResult, error) {
	if kind != types.EnrollmentReferenced && kind != types.EnrollmentEmbedded {
		return EnrollmentResult{}, fmt.Errorf("%w: unknown %s %q", types.ErrInvalidDocument, types.FieldEnrollmentType, kind)
	}
	studentDoc, found, err := r.entities.StudentDocumentByBusinessID(ctx, studentID)
	if err != nil {
		return EnrollmentResult{}, err
	}
	if !found {
		return EnrollmentResult{}, fmt.Errorf("student %s: %w", studentID, types.ErrNotFound)
	}
	courseDoc, found, err := r.entities.CourseDocumentByBusinessID(ctx, courseID)
	if err != nil {
		return EnrollmentResult{}, err
	}
	if !found {
		return EnrollmentResult{}, fmt.Errorf("course %s: %w", courseID, types.ErrNotFound)
	}

	var e types.Enrollment
	if kind == types.EnrollmentEmbedded {
		if e, err = relation.MakeEmbeddedFromDocuments(studentDoc, courseDoc, grade, r.now()); err != nil {
			return EnrollmentResult{}, err
		}
	} else {
		e = relation.MakeReferenced(studentDoc.ID(), courseDoc.ID(), grade, r.now())
	}
	created, err := r.enrollments.Create(ctx, e)
	if err != nil {
		return EnrollmentResult{}, err
	}
	r.logger.Debug("enrolled student",
		zap.String("type", string(kind)),
		zap.String("studentId", studentID),
		zap.String("courseId", courseID),
		zap.String("enrollment", created.Info().ID))
	return r.result(ctx, created)
}

// Query resolves the first stored enrollment of each strategy and, when both
// exist, compares their sizes.
func (r *Runner) Query(ctx context.Context) (QueryReport, error) {
	var report QueryReport
	var err error
	if report.Referenced, err = r.resolveFirst(ctx, types.EnrollmentReferenced); err != nil {
		return QueryReport{}, err
	}
	if report.Embedded, err = r.resolveFirst(ctx, types.EnrollmentEmbedded); err != nil {
		return QueryReport{}, err
	}
	if report.Referenced.Found && report.Embedded.Found {
		cmp := r.comparator.Compare(report.Referenced.enrollment, report.Embedded.enrollment)
		report.Comparison = &cmp
	}
	return report, nil
}

// resolveFirst resolves the earliest enrollment of kind.
func (r *Runner) resolveFirst(ctx context.Context, kind types.EnrollmentType) (EnrollmentResult, error) {
	e, found, err := r.enrollments.FirstOfType(ctx, kind)
	if err != nil || !found {
		return EnrollmentResult{}, err
	}
	return r.result(ctx, e)
}

// result resolves e. A dangling reference is part of the result, not an
// error.
func (r *Runner) result(ctx context.Context, e types.Enrollment) (EnrollmentResult, error) {
	result := EnrollmentResult{Found: true, enrollment: e}
	var err error
	if result.Document, err = types.EncodeEnrollment(e); err != nil {
		return EnrollmentResult{}, err
	}

	view, err := r.resolver.Resolve(ctx, e)
	var dangling *types.DanglingReferenceError
	switch {
	case errors.As(err, &dangling):
		result.Missing = dangling.Missing()
		r.logger.Debug("dangling reference", zap.String("enrollment", e.Info().ID), zap.Strings("missing", result.Missing))
	case err != nil:
		return EnrollmentResult{}, err
	default:
		result.View = &view
	}
	return result, nil
}

// UpdateStudentName renames the student with business key studentID, then
// resolves the first enrollment of each strategy again. The referenced one
// shows the canonical record; the embedded one shows its copy.
func (r *Runner) UpdateStudentName(ctx context.Context, studentID, newName string) (UpdateReport, error) {
	change, err := r.propagator.RenameStudent(ctx, studentID, newName)
	if err != nil {
		return UpdateReport{}, err
	}
	report := UpdateReport{Change: change}

	students, err := r.store.Collection(r.names.Students)
	if err != nil {
		return UpdateReport{}, fmt.Errorf("collection %s: %w", r.names.Students, err)
	}
	if report.StudentDocument, err = students.Get(ctx, change.ID); err != nil {
		return UpdateReport{}, fmt.Errorf("reload student %s: %w", change.ID, err)
	}
	if report.Referenced, err = r.resolveFirst(ctx, types.EnrollmentReferenced); err != nil {
		return UpdateReport{}, err
	}
	if report.Embedded, err = r.resolveFirst(ctx, types.EnrollmentEmbedded); err != nil {
		return UpdateReport{}, err
	}
	if report.Impact, err = r.propagator.Affected(ctx, r.names.Students, change.ID); err != nil {
		return UpdateReport{}, err
	}
	r.logger.Debug("renamed student",
		zap.String("studentId", studentID),
		zap.Any("old", change.OldValue),
		zap.String("new", newName))
	return report, nil
}

// RunAll runs clear, seed, enroll, query and the default student rename in
// sequence, stopping at the first failure.
func (r *Runner) RunAll(ctx context.Context) (RunAllReport, error) {
	var report RunAllReport
	var err error
	if report.Clear, err = r.Clear(ctx); err != nil {
		return report, err
	}
	if report.Seed, err = r.Seed(ctx); err != nil {
		return report, err
	}
	if report.Enroll, err = r.Enroll(ctx); err != nil {
		return report, err
	}
	if report.Query, err = r.Query(ctx); err != nil {
		return report, err
	}
	if report.Update, err = r.UpdateStudentName(ctx, DefaultUpdateStudentID, DefaultUpdatedName); err != nil {
		return report, err
	}
	return report, nil
}

// Delete removes one document from a collection. Deleting a student or
// course that a referenced enrollment points at leaves that enrollment
// dangling.
func (r *Runner) Delete(ctx context.Context, collection, id string) error {
	c, err := r.store.Collection(collection)
	if err != nil {
		return fmt.Errorf("collection %s: %w", collection, err)
	}
	if err := c.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id, err)
	}
	r.logger.Debug("deleted", zap.String("collection", collection), zap.String("id", id))
	return nil
}

// Resolve loads and resolves one stored enrollment.
func (r *Runner) Resolve(ctx context.Context, enrollmentID string) (EnrollmentResult, error) {
	e, err := r.enrollments.Get(ctx, enrollmentID)
	if err != nil {
		return EnrollmentResult{}, err
	}
	return r.result(ctx, e)
}
