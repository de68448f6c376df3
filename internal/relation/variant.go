package relation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// storedTime drops what the store cannot keep: sub-millisecond precision and
// the location. An enrollment built here equals its stored round trip.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// MakeReferenced builds an enrollment that points at its student and course
// by store identifier.
func MakeReferenced(studentID, courseID, grade string, date time.Time) *types.ReferencedEnrollment {
	return &types.ReferencedEnrollment{
		EnrollmentInfo: types.EnrollmentInfo{Date: storedTime(date), Grade: grade},
		StudentRef:     studentID,
		CourseRef:      courseID,
	}
}

// MakeEmbedded builds an enrollment carrying snapshots of student and
// course. The copies share nothing with the caller's values, Extra
// included.
func MakeEmbedded(student types.Student, course types.Course, grade string, date time.Time) *types.EmbeddedEnrollment {
	return &types.EmbeddedEnrollment{
		EnrollmentInfo: types.EnrollmentInfo{Date: storedTime(date), Grade: grade},
		Student:        student.Clone(),
		Course:         course.Clone(),
	}
}

// MakeEmbeddedFromDocuments validates two stored documents and embeds them.
// The embedded payloads encode back to exactly these documents, fields the
// entity types do not model included.
func MakeEmbeddedFromDocuments(studentDoc, courseDoc types.Document, grade string, date time.Time) (*types.EmbeddedEnrollment, error) {
	student, err := types.DecodeStudent(studentDoc.Clone())
	if err != nil {
		return nil, err
	}
	course, err := types.DecodeCourse(courseDoc.Clone())
	if err != nil {
		return nil, err
	}
	return MakeEmbedded(student, course, grade, date), nil
}

// DetectType reports the strategy a raw stored enrollment uses.
func DetectType(doc types.Document) (types.EnrollmentType, error) {
	return types.DetectEnrollmentType(doc)
}

// Enrollments stores and loads enrollments. Stored enrollments are never
// modified.
type Enrollments struct {
	store types.Store
	name  string
}

// NewEnrollments returns an Enrollments bound to store.
func NewEnrollments(store types.Store, names types.CollectionNames) *Enrollments {
	return &Enrollments{store: store, name: names.Enrollments}
}

func (s *Enrollments) collection() (types.Collection, error) {
	c, err := s.store.Collection(s.name)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", s.name, err)
	}
	return c, nil
}

// Create stores e and returns a copy carrying its identifier.
func (s *Enrollments) Create(ctx context.Context, e types.Enrollment) (types.Enrollment, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil enrollment", types.ErrInvalidDocument)
	}
	if e.Info().ID != "" {
		return nil, fmt.Errorf("%w: enrollment already stored as %s", types.ErrInvalidDocument, e.Info().ID)
	}
	doc, err := types.EncodeEnrollment(e)
	if err != nil {
		return nil, err
	}
	c, err := s.collection()
	if err != nil {
		return nil, err
	}
	id, err := c.Insert(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert %s enrollment: %w", e.Type(), err)
	}
	return types.WithID(e, id), nil
}

// Get loads the enrollment with the given identifier.
// Returns types.ErrNotFound if there is none.
func (s *Enrollments) Get(ctx context.Context, id string) (types.Enrollment, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return types.DecodeEnrollment(doc)
}

// GetDocument loads the raw stored form of an enrollment.
func (s *Enrollments) GetDocument(ctx context.Context, id string) (types.Document, error) {
	c, err := s.collection()
	if err != nil {
		return nil, err
	}
	doc, err := c.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get enrollment %s: %w", id, err)
	}
	return doc, nil
}

// FirstOfType returns the earliest stored enrollment of the given strategy.
func (s *Enrollments) FirstOfType(ctx context.Context, kind types.EnrollmentType) (types.Enrollment, bool, error) {
	docs, err := s.find(ctx, types.Query{}.Where(types.FieldEnrollmentType, string(kind)).WithLimit(1))
	if err != nil || len(docs) == 0 {
		return nil, false, err
	}
	e, err := types.DecodeEnrollment(docs[0])
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// List returns every stored enrollment in insertion order.
func (s *Enrollments) List(ctx context.Context) ([]types.Enrollment, error) {
	return s.decodeAll(s.find(ctx, types.Query{}))
}

// Referencing returns the referenced enrollments whose refField
// (studentRef or courseRef) equals id.
func (s *Enrollments) Referencing(ctx context.Context, refField, id string) ([]types.Enrollment, error) {
	q := types.Query{}.
		Where(types.FieldEnrollmentType, string(types.EnrollmentReferenced)).
		Where(refField, id)
	return s.decodeAll(s.find(ctx, q))
}

// Embedding returns the embedded enrollments whose copy under copyField
// (student or course) was taken from the entity with identifier id.
func (s *Enrollments) Embedding(ctx context.Context, copyField, id string) ([]types.Enrollment, error) {
	q := types.Query{}.
		Where(types.FieldEnrollmentType, string(types.EnrollmentEmbedded)).
		Where(copyField+"."+types.IDField, id)
	return s.decodeAll(s.find(ctx, q))
}

func (s *Enrollments) find(ctx context.Context, q types.Query) ([]types.Document, error) {
	c, err := s.collection()
	if err != nil {
		return nil, err
	}
	docs, err := c.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find enrollments: %w", err)
	}
	return docs, nil
}

func (s *Enrollments) decodeAll(docs []types.Document, err error) ([]types.Enrollment, error) {
	if err != nil {
		return nil, err
	}
	out := make([]types.Enrollment, 0, len(docs))
	for _, doc := range docs {
		e, err := types.DecodeEnrollment(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
