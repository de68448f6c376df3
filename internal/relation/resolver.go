package relation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// Resolver turns stored enrollments into hydrated views. A referenced
// enrollment costs one student and one course lookup and shows the current
// canonical records; an embedded enrollment costs nothing and shows its
// snapshots.
type Resolver struct {
	entities    *Entities
	enrollments *Enrollments
	logger      *zap.Logger
}

// NewResolver returns a Resolver reading from store.
func NewResolver(store types.Store, names types.CollectionNames, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		entities:    NewEntities(store, names),
		enrollments: NewEnrollments(store, names),
		logger:      logger.Named("resolver"),
	}
}

// Resolve hydrates e. For a referenced enrollment whose student or course
// is gone it returns a *types.DanglingReferenceError and no view.
func (r *Resolver) Resolve(ctx context.Context, e types.Enrollment) (types.HydratedView, error) {
	if e == nil {
		return types.HydratedView{}, fmt.Errorf("%w: nil enrollment", types.ErrInvalidDocument)
	}
	v := &resolveVisitor{ctx: ctx, entities: r.entities}
	if err := e.Accept(v); err != nil {
		return types.HydratedView{}, err
	}
	info := e.Info()
	v.view.EnrollmentID = info.ID
	v.view.Type = e.Type()
	v.view.Grade = info.Grade
	v.view.Date = info.Date
	r.logger.Debug("resolved",
		zap.String("enrollment", info.ID),
		zap.String("type", string(e.Type())),
		zap.Int("lookups", v.view.Lookups))
	return v.view, nil
}

// ResolveStored loads the enrollment with the given identifier and
// resolves it.
func (r *Resolver) ResolveStored(ctx context.Context, id string) (types.HydratedView, error) {
	e, err := r.enrollments.Get(ctx, id)
	if err != nil {
		return types.HydratedView{}, err
	}
	return r.Resolve(ctx, e)
}

// resolveVisitor fills in the student and course halves of a view.
type resolveVisitor struct {
	ctx      context.Context
	entities *Entities
	view     types.HydratedView
}

func (v *resolveVisitor) VisitReferenced(e *types.ReferencedEnrollment) error {
	// Both lookups run even when the first misses, so the error can name
	// every missing side.
	student, studentFound, err := v.entities.Student(v.ctx, e.StudentRef)
	if err != nil {
		return fmt.Errorf("resolve student %s: %w", e.StudentRef, err)
	}
	course, courseFound, err := v.entities.Course(v.ctx, e.CourseRef)
	if err != nil {
		return fmt.Errorf("resolve course %s: %w", e.CourseRef, err)
	}
	if !studentFound || !courseFound {
		return &types.DanglingReferenceError{
			EnrollmentID:   e.ID,
			StudentRef:     e.StudentRef,
			CourseRef:      e.CourseRef,
			MissingStudent: !studentFound,
			MissingCourse:  !courseFound,
		}
	}
	v.fill(student, course)
	v.view.Lookups = 2
	return nil
}

func (v *resolveVisitor) VisitEmbedded(e *types.EmbeddedEnrollment) error {
	v.fill(e.Student, e.Course)
	return nil
}

func (v *resolveVisitor) fill(student types.Student, course types.Course) {
	v.view.StudentName = student.Name
	v.view.StudentBusinessID = student.StudentID
	v.view.CourseName = course.Name
	v.view.CourseBusinessID = course.CourseID
}
