package relation

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// FieldChange records one applied update to a canonical entity.
type FieldChange struct {
	Collection string `json:"collection" yaml:"collection"`
	ID         string `json:"id" yaml:"id"`
	Field      string `json:"field" yaml:"field"`
	OldValue   any    `json:"oldValue" yaml:"oldValue"`
	NewValue   any    `json:"newValue" yaml:"newValue"`
	HadField   bool   `json:"hadField" yaml:"hadField"` // false when the field was absent before
}

// StaleCopy is an embedded snapshot whose field no longer matches the
// canonical entity it was copied from.
type StaleCopy struct {
	EnrollmentID string `json:"enrollmentId" yaml:"enrollmentId"`
	Field        string `json:"field" yaml:"field"`
	Embedded     any    `json:"embedded" yaml:"embedded"`
	Canonical    any    `json:"canonical" yaml:"canonical"`
}

// Impact splits the enrollments tied to one canonical entity by how they
// observe its changes.
type Impact struct {
	// Live lists referenced enrollments; they show the entity as it is now.
	Live []string `json:"live" yaml:"live"`
	// Current lists embedded enrollments whose copy still matches.
	Current []string `json:"current" yaml:"current"`
	// Stale lists each differing field of every out-of-date embedded copy.
	Stale []StaleCopy `json:"stale" yaml:"stale"`
}

// Propagator applies field updates to canonical students and courses.
//
// The update touches exactly one stored record. Referenced enrollments
// pointing at it resolve to the new value on their next resolve. Embedded
// enrollments keep the value captured when they were created; nothing
// cascades into them and nothing marks them invalid.
type Propagator struct {
	store       types.Store
	names       types.CollectionNames
	entities    *Entities
	enrollments *Enrollments
	logger      *zap.Logger
}

// NewPropagator returns a Propagator writing to store.
func NewPropagator(store types.Store, names types.CollectionNames, logger *zap.Logger) *Propagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Propagator{
		store:       store,
		names:       names,
		entities:    NewEntities(store, names),
		enrollments: NewEnrollments(store, names),
		logger:      logger.Named("propagator"),
	}
}

// entityFieldKinds lists the typed fields of students and courses; updates
// to them must keep the record decodable.
var entityFieldKinds = map[string]reflect.Kind{
	types.FieldName:       reflect.String,
	types.FieldStudentID:  reflect.String,
	types.FieldCourseID:   reflect.String,
	types.FieldEmail:      reflect.String,
	types.FieldInstructor: reflect.String,
	types.FieldAge:        reflect.Int,
	types.FieldCredits:    reflect.Int,
}

// entityCollection rejects every collection but students and courses.
// Enrollments are written once and never updated.
func (p *Propagator) entityCollection(collection string) error {
	if collection != p.names.Students && collection != p.names.Courses {
		return fmt.Errorf("%w: %s holds no canonical entities", types.ErrCollectionNotFound, collection)
	}
	return nil
}

func checkValue(field string, value any) error {
	kind, typed := entityFieldKinds[field]
	if !typed {
		return nil
	}
	switch kind {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string, got %T", types.ErrInvalidDocument, field, value)
		}
		required := field == types.FieldName || field == types.FieldStudentID || field == types.FieldCourseID
		if required && s == "" {
			return fmt.Errorf("%w: %s must not be empty", types.ErrInvalidDocument, field)
		}
	case reflect.Int:
		if _, ok := (types.Document{field: value}).Int(field); !ok {
			return fmt.Errorf("%w: %s must be an integer, got %T", types.ErrInvalidDocument, field, value)
		}
	}
	return nil
}

// UpdateEntityField sets field to newValue on the record id in collection
// and returns the change. collection must be the students or courses
// collection, else types.ErrCollectionNotFound. Returns types.ErrNotFound
// when no such record exists.
func (p *Propagator) UpdateEntityField(ctx context.Context, collection, id, field string, newValue any) (FieldChange, error) {
	if err := p.entityCollection(collection); err != nil {
		return FieldChange{}, err
	}
	if err := checkValue(field, newValue); err != nil {
		return FieldChange{}, err
	}
	c, err := p.store.Collection(collection)
	if err != nil {
		return FieldChange{}, fmt.Errorf("collection %s: %w", collection, err)
	}
	old, err := c.Update(ctx, id, types.Document{field: newValue})
	if err != nil {
		return FieldChange{}, fmt.Errorf("update %s %s: %w", collection, id, err)
	}

	oldValue, had := old[field]
	p.logger.Debug("updated entity field",
		zap.String("collection", collection),
		zap.String("id", id),
		zap.String("field", field))
	return FieldChange{
		Collection: collection,
		ID:         id,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		HadField:   had,
	}, nil
}

// RenameStudent updates the name of the student with the given business
// key (studentId).
func (p *Propagator) RenameStudent(ctx context.Context, studentID, newName string) (FieldChange, error) {
	s, found, err := p.entities.StudentByBusinessID(ctx, studentID)
	if err != nil {
		return FieldChange{}, err
	}
	if !found {
		return FieldChange{}, fmt.Errorf("student %s: %w", studentID, types.ErrNotFound)
	}
	return p.UpdateEntityField(ctx, p.names.Students, s.ID, types.FieldName, newName)
}

// Affected reports, without writing anything, which enrollments track the
// canonical entity id live and which embedded copies of it have drifted.
// collection must be the students or courses collection.
func (p *Propagator) Affected(ctx context.Context, collection, id string) (Impact, error) {
	var (
		refField, copyField string
		canonical           types.Document
	)
	if err := p.entityCollection(collection); err != nil {
		return Impact{}, err
	}
	switch collection {
	case p.names.Students:
		s, found, err := p.entities.Student(ctx, id)
		if err != nil {
			return Impact{}, err
		}
		if !found {
			return Impact{}, fmt.Errorf("student %s: %w", id, types.ErrNotFound)
		}
		refField, copyField, canonical = types.FieldStudentRef, types.FieldStudent, s.Document()
	case p.names.Courses:
		course, found, err := p.entities.Course(ctx, id)
		if err != nil {
			return Impact{}, err
		}
		if !found {
			return Impact{}, fmt.Errorf("course %s: %w", id, types.ErrNotFound)
		}
		refField, copyField, canonical = types.FieldCourseRef, types.FieldCourse, course.Document()
	}

	impact := Impact{Live: []string{}, Current: []string{}, Stale: []StaleCopy{}}

	live, err := p.enrollments.Referencing(ctx, refField, id)
	if err != nil {
		return Impact{}, err
	}
	for _, e := range live {
		impact.Live = append(impact.Live, e.Info().ID)
	}

	copies, err := p.enrollments.Embedding(ctx, copyField, id)
	if err != nil {
		return Impact{}, err
	}
	for _, e := range copies {
		doc, err := types.EncodeEnrollment(e)
		if err != nil {
			return Impact{}, err
		}
		snapshot, _ := doc.Doc(copyField)
		stale := diffFields(e.Info().ID, snapshot, canonical)
		if len(stale) == 0 {
			impact.Current = append(impact.Current, e.Info().ID)
			continue
		}
		impact.Stale = append(impact.Stale, stale...)
	}
	return impact, nil
}

// diffFields compares every field of an embedded snapshot with the
// canonical record, in field name order. A field present on one side only
// differs, with nil on the other.
func diffFields(enrollmentID string, snapshot, canonical types.Document) []StaleCopy {
	fields := map[string]bool{}
	for field := range maps.Keys(snapshot) {
		fields[field] = true
	}
	for field := range maps.Keys(canonical) {
		fields[field] = true
	}
	delete(fields, types.IDField)

	var out []StaleCopy
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		embedded, inSnapshot := snapshot[field]
		current, inCanonical := canonical[field]
		if inSnapshot != inCanonical || !reflect.DeepEqual(embedded, current) {
			out = append(out, StaleCopy{
				EnrollmentID: enrollmentID,
				Field:        field,
				Embedded:     embedded,
				Canonical:    current,
			})
		}
	}
	return out
}
