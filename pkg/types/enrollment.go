package types

import (
	"fmt"
	"time"
)

// EnrollmentType names the relationship strategy an enrollment uses.
type EnrollmentType string

// Enrollment strategies.
const (
	EnrollmentReferenced EnrollmentType = "referenced"
	EnrollmentEmbedded   EnrollmentType = "embedded"
)

// Enrollment document fields.
const (
	FieldEnrollmentType = "enrollmentType"
	FieldDate           = "date"
	FieldGrade          = "grade"
	FieldStudentRef     = "studentRef"
	FieldCourseRef      = "courseRef"
	FieldStudent        = "student"
	FieldCourse         = "course"
)

// Enrollment is a student–course relationship in one of two shapes. The
// interface is sealed: ReferencedEnrollment and EmbeddedEnrollment are its
// only implementations.
type Enrollment interface {
	// Type reports the strategy. It never changes after construction.
	Type() EnrollmentType

	// Info returns the fields common to both strategies.
	Info() EnrollmentInfo

	// Accept dispatches to the visitor method for the concrete shape.
	Accept(v EnrollmentVisitor) error

	sealed()
}

// EnrollmentVisitor branches exhaustively over the enrollment shapes. Adding
// a strategy adds a method here, so every visitor must handle it.
type EnrollmentVisitor interface {
	VisitReferenced(e *ReferencedEnrollment) error
	VisitEmbedded(e *EmbeddedEnrollment) error
}

// EnrollmentInfo holds the fields shared by both shapes.
type EnrollmentInfo struct {
	ID    string    // Store-assigned, empty before the enrollment is stored.
	Date  time.Time // Enrollment date, millisecond precision.
	Grade string
}

// ReferencedEnrollment points at its student and course by identifier.
// Nothing guarantees the targets still exist.
type ReferencedEnrollment struct {
	EnrollmentInfo
	StudentRef string
	CourseRef  string
}

// EmbeddedEnrollment carries value copies of its student and course taken
// when it was built. Later changes to the canonical records never reach it.
type EmbeddedEnrollment struct {
	EnrollmentInfo
	Student Student
	Course  Course
}

func (e *ReferencedEnrollment) Type() EnrollmentType             { return EnrollmentReferenced }
func (e *ReferencedEnrollment) Info() EnrollmentInfo             { return e.EnrollmentInfo }
func (e *ReferencedEnrollment) Accept(v EnrollmentVisitor) error { return v.VisitReferenced(e) }
func (e *ReferencedEnrollment) sealed()                          {}

func (e *EmbeddedEnrollment) Type() EnrollmentType             { return EnrollmentEmbedded }
func (e *EmbeddedEnrollment) Info() EnrollmentInfo             { return e.EnrollmentInfo }
func (e *EmbeddedEnrollment) Accept(v EnrollmentVisitor) error { return v.VisitEmbedded(e) }
func (e *EmbeddedEnrollment) sealed()                          {}

// WithID returns a copy of e carrying the given identifier. e is unchanged.
func WithID(e Enrollment, id string) Enrollment {
	switch v := e.(type) {
	case *ReferencedEnrollment:
		cp := *v
		cp.ID = id
		return &cp
	case *EmbeddedEnrollment:
		cp := *v
		cp.ID = id
		cp.Student = v.Student.Clone()
		cp.Course = v.Course.Clone()
		return &cp
	}
	return e
}

// encodeVisitor builds the stored form of an enrollment.
type encodeVisitor struct {
	doc Document
}

func (ev *encodeVisitor) VisitReferenced(e *ReferencedEnrollment) error {
	if e.StudentRef == "" || e.CourseRef == "" {
		return fmt.Errorf("%w: referenced enrollment needs both references", ErrInvalidDocument)
	}
	ev.doc[FieldStudentRef] = e.StudentRef
	ev.doc[FieldCourseRef] = e.CourseRef
	return nil
}

func (ev *encodeVisitor) VisitEmbedded(e *EmbeddedEnrollment) error {
	if e.Student.StudentID == "" || e.Course.CourseID == "" {
		return fmt.Errorf("%w: embedded enrollment needs both documents", ErrInvalidDocument)
	}
	ev.doc[FieldStudent] = e.Student.Document()
	ev.doc[FieldCourse] = e.Course.Document()
	return nil
}

// EncodeEnrollment returns the stored form of e. Only the payload fields of
// e's own strategy are written.
func EncodeEnrollment(e Enrollment) (Document, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil enrollment", ErrInvalidDocument)
	}
	info := e.Info()
	ev := &encodeVisitor{doc: Document{
		FieldEnrollmentType: string(e.Type()),
		FieldDate:           info.Date,
		FieldGrade:          info.Grade,
	}}
	if info.ID != "" {
		ev.doc[IDField] = info.ID
	}
	if err := e.Accept(ev); err != nil {
		return nil, err
	}
	return ev.doc, nil
}

// DetectEnrollmentType reports the strategy a stored enrollment uses, after
// checking that its payload fields agree with its type tag.
func DetectEnrollmentType(doc Document) (EnrollmentType, error) {
	tag, ok := doc.String(FieldEnrollmentType)
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidDocument, FieldEnrollmentType)
	}
	hasRefs := doc.Has(FieldStudentRef) || doc.Has(FieldCourseRef)
	hasCopies := doc.Has(FieldStudent) || doc.Has(FieldCourse)
	switch EnrollmentType(tag) {
	case EnrollmentReferenced:
		if hasCopies {
			return "", fmt.Errorf("%w: referenced enrollment carries embedded payload", ErrInvalidDocument)
		}
		return EnrollmentReferenced, nil
	case EnrollmentEmbedded:
		if hasRefs {
			return "", fmt.Errorf("%w: embedded enrollment carries references", ErrInvalidDocument)
		}
		return EnrollmentEmbedded, nil
	default:
		return "", fmt.Errorf("%w: unknown %s %q", ErrInvalidDocument, FieldEnrollmentType, tag)
	}
}

// DecodeEnrollment validates a stored enrollment and returns its typed form.
func DecodeEnrollment(doc Document) (Enrollment, error) {
	kind, err := DetectEnrollmentType(doc)
	if err != nil {
		return nil, err
	}
	info := EnrollmentInfo{ID: doc.ID()}
	if info.Date, err = optionalTime(doc, FieldDate); err != nil {
		return nil, err
	}
	if info.Grade, err = optionalString(doc, FieldGrade); err != nil {
		return nil, err
	}

	switch kind {
	case EnrollmentReferenced:
		e := &ReferencedEnrollment{EnrollmentInfo: info}
		if e.StudentRef, err = requiredString(doc, FieldStudentRef); err != nil {
			return nil, err
		}
		if e.CourseRef, err = requiredString(doc, FieldCourseRef); err != nil {
			return nil, err
		}
		return e, nil
	default:
		e := &EmbeddedEnrollment{EnrollmentInfo: info}
		studentDoc, ok := doc.Doc(FieldStudent)
		if !ok {
			return nil, fmt.Errorf("%w: missing embedded %s", ErrInvalidDocument, FieldStudent)
		}
		courseDoc, ok := doc.Doc(FieldCourse)
		if !ok {
			return nil, fmt.Errorf("%w: missing embedded %s", ErrInvalidDocument, FieldCourse)
		}
		if e.Student, err = DecodeStudent(studentDoc); err != nil {
			return nil, err
		}
		if e.Course, err = DecodeCourse(courseDoc); err != nil {
			return nil, err
		}
		return e, nil
	}
}

func optionalTime(doc Document, field string) (time.Time, error) {
	if doc[field] == nil {
		return time.Time{}, nil
	}
	t, ok := doc.Time(field)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s is %T, want time", ErrInvalidDocument, field, doc[field])
	}
	return t, nil
}
