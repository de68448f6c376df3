// Package relation is the relationship engine: it builds referenced and
// embedded enrollments, resolves either shape into a hydrated view, applies
// field updates to canonical students and courses, and compares what the
// two shapes cost in bytes and consistency.
//
// Every component takes the types.Store it works on at construction; none of
// them prints or formats output.
package relation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// Entities reads and writes canonical student and course records.
type Entities struct {
	store types.Store
	names types.CollectionNames
}

// NewEntities returns an Entities bound to store.
func NewEntities(store types.Store, names types.CollectionNames) *Entities {
	return &Entities{store: store, names: names}
}

func (e *Entities) collection(name string) (types.Collection, error) {
	c, err := e.store.Collection(name)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	return c, nil
}

// CreateStudent stores s and returns it with its assigned identifier.
func (e *Entities) CreateStudent(ctx context.Context, s types.Student) (types.Student, error) {
	if s.ID != "" {
		return types.Student{}, fmt.Errorf("%w: student already has id %s", types.ErrInvalidDocument, s.ID)
	}
	c, err := e.collection(e.names.Students)
	if err != nil {
		return types.Student{}, err
	}
	id, err := c.Insert(ctx, s.Document())
	if err != nil {
		return types.Student{}, fmt.Errorf("insert student %s: %w", s.StudentID, err)
	}
	s.ID = id
	return s, nil
}

// CreateCourse stores c and returns it with its assigned identifier.
func (e *Entities) CreateCourse(ctx context.Context, course types.Course) (types.Course, error) {
	if course.ID != "" {
		return types.Course{}, fmt.Errorf("%w: course already has id %s", types.ErrInvalidDocument, course.ID)
	}
	c, err := e.collection(e.names.Courses)
	if err != nil {
		return types.Course{}, err
	}
	id, err := c.Insert(ctx, course.Document())
	if err != nil {
		return types.Course{}, fmt.Errorf("insert course %s: %w", course.CourseID, err)
	}
	course.ID = id
	return course, nil
}

// Student loads a student by store identifier. found is false when no
// student has that identifier.
func (e *Entities) Student(ctx context.Context, id string) (s types.Student, found bool, err error) {
	doc, found, err := e.get(ctx, e.names.Students, id)
	if err != nil || !found {
		return types.Student{}, found, err
	}
	s, err = types.DecodeStudent(doc)
	return s, err == nil, err
}

// Course loads a course by store identifier.
func (e *Entities) Course(ctx context.Context, id string) (types.Course, bool, error) {
	doc, found, err := e.get(ctx, e.names.Courses, id)
	if err != nil || !found {
		return types.Course{}, found, err
	}
	course, err := types.DecodeCourse(doc)
	return course, err == nil, err
}

// get turns ErrNotFound into found=false.
func (e *Entities) get(ctx context.Context, collection, id string) (types.Document, bool, error) {
	c, err := e.collection(collection)
	if err != nil {
		return nil, false, err
	}
	doc, err := c.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s %s: %w", collection, id, err)
	}
	return doc, true, nil
}

// StudentByBusinessID finds the first student with the given studentId.
func (e *Entities) StudentByBusinessID(ctx context.Context, studentID string) (types.Student, bool, error) {
	doc, found, err := e.StudentDocumentByBusinessID(ctx, studentID)
	if err != nil || !found {
		return types.Student{}, found, err
	}
	s, err := types.DecodeStudent(doc)
	return s, err == nil, err
}

// StudentDocumentByBusinessID is StudentByBusinessID returning the stored
// record as is.
func (e *Entities) StudentDocumentByBusinessID(ctx context.Context, studentID string) (types.Document, bool, error) {
	return e.first(ctx, e.names.Students, types.Query{}.Where(types.FieldStudentID, studentID))
}

// CourseDocumentByBusinessID finds the stored record of the first course
// with the given courseId.
func (e *Entities) CourseDocumentByBusinessID(ctx context.Context, courseID string) (types.Document, bool, error) {
	return e.first(ctx, e.names.Courses, types.Query{}.Where(types.FieldCourseID, courseID))
}

// NthStudent returns the student at position n (zero-based) in insertion
// order.
func (e *Entities) NthStudent(ctx context.Context, n int64) (types.Student, bool, error) {
	doc, found, err := e.first(ctx, e.names.Students, types.Query{}.WithSkip(n))
	if err != nil || !found {
		return types.Student{}, found, err
	}
	s, err := types.DecodeStudent(doc)
	return s, err == nil, err
}

// NthCourse returns the course at position n in insertion order.
func (e *Entities) NthCourse(ctx context.Context, n int64) (types.Course, bool, error) {
	doc, found, err := e.first(ctx, e.names.Courses, types.Query{}.WithSkip(n))
	if err != nil || !found {
		return types.Course{}, found, err
	}
	course, err := types.DecodeCourse(doc)
	return course, err == nil, err
}

func (e *Entities) first(ctx context.Context, collection string, q types.Query) (types.Document, bool, error) {
	c, err := e.collection(collection)
	if err != nil {
		return nil, false, err
	}
	doc, found, err := c.First(ctx, q)
	if err != nil {
		return nil, false, fmt.Errorf("find %s: %w", collection, err)
	}
	return doc, found, nil
}

// Students lists every student in insertion order.
func (e *Entities) Students(ctx context.Context) ([]types.Student, error) {
	docs, err := e.all(ctx, e.names.Students)
	if err != nil {
		return nil, err
	}
	out := make([]types.Student, 0, len(docs))
	for _, doc := range docs {
		s, err := types.DecodeStudent(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Courses lists every course in insertion order.
func (e *Entities) Courses(ctx context.Context) ([]types.Course, error) {
	docs, err := e.all(ctx, e.names.Courses)
	if err != nil {
		return nil, err
	}
	out := make([]types.Course, 0, len(docs))
	for _, doc := range docs {
		course, err := types.DecodeCourse(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, course)
	}
	return out, nil
}

func (e *Entities) all(ctx context.Context, collection string) ([]types.Document, error) {
	c, err := e.collection(collection)
	if err != nil {
		return nil, err
	}
	docs, err := c.Find(ctx, types.Query{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return docs, nil
}
