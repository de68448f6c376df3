package types

import "fmt"

// Student document fields.
const (
	FieldName      = "name"
	FieldStudentID = "studentId"
	FieldEmail     = "email"
	FieldAge       = "age"
)

// Course document fields. FieldName is shared with Student.
const (
	FieldCourseID   = "courseId"
	FieldCredits    = "credits"
	FieldInstructor = "instructor"
)

// Student is a canonical student record.
type Student struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"` // Store-assigned, empty before Insert.
	Name      string `json:"name" yaml:"name"`
	StudentID string `json:"studentId" yaml:"studentId"` // Business key; uniqueness is the caller's concern.
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Age       int    `json:"age,omitempty" yaml:"age,omitempty"`

	// Extra holds stored fields the struct does not model, and optional
	// fields stored with their zero value, so Document reproduces the
	// stored record exactly.
	Extra Document `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Course is a canonical course record.
type Course struct {
	ID         string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string   `json:"name" yaml:"name"`
	CourseID   string   `json:"courseId" yaml:"courseId"`
	Credits    int      `json:"credits,omitempty" yaml:"credits,omitempty"`
	Instructor string   `json:"instructor,omitempty" yaml:"instructor,omitempty"`
	Extra      Document `json:"extra,omitempty" yaml:"extra,omitempty"` // As Student.Extra.
}

// Document returns the stored form of the student: Extra, overlaid with
// the required fields and every optional field that is set. The identifier
// is included only when set.
func (s Student) Document() Document {
	doc := s.Extra.Clone()
	if doc == nil {
		doc = Document{}
	}
	doc[FieldName] = s.Name
	doc[FieldStudentID] = s.StudentID
	if s.Email != "" {
		doc[FieldEmail] = s.Email
	}
	if s.Age != 0 {
		doc[FieldAge] = s.Age
	}
	if s.ID != "" {
		doc[IDField] = s.ID
	}
	return doc
}

// Clone returns a copy that shares no Extra data with s.
func (s Student) Clone() Student {
	s.Extra = s.Extra.Clone()
	return s
}

// Document returns the stored form of the course, built as Student.Document.
func (c Course) Document() Document {
	doc := c.Extra.Clone()
	if doc == nil {
		doc = Document{}
	}
	doc[FieldName] = c.Name
	doc[FieldCourseID] = c.CourseID
	if c.Credits != 0 {
		doc[FieldCredits] = c.Credits
	}
	if c.Instructor != "" {
		doc[FieldInstructor] = c.Instructor
	}
	if c.ID != "" {
		doc[IDField] = c.ID
	}
	return doc
}

// Clone returns a copy that shares no Extra data with c.
func (c Course) Clone() Course {
	c.Extra = c.Extra.Clone()
	return c
}

// DecodeStudent validates and converts a stored document. name and
// studentId are required strings; email and age default to zero values when
// absent but must have the right type when present.
func DecodeStudent(doc Document) (Student, error) {
	var s Student
	var err error
	s.ID = doc.ID()
	if s.Name, err = requiredString(doc, FieldName); err != nil {
		return Student{}, fmt.Errorf("student: %w", err)
	}
	if s.StudentID, err = requiredString(doc, FieldStudentID); err != nil {
		return Student{}, fmt.Errorf("student: %w", err)
	}
	if s.Email, err = optionalString(doc, FieldEmail); err != nil {
		return Student{}, fmt.Errorf("student: %w", err)
	}
	if s.Age, err = optionalInt(doc, FieldAge); err != nil {
		return Student{}, fmt.Errorf("student: %w", err)
	}
	s.Extra = extraFields(doc, map[string]bool{FieldEmail: s.Email != "", FieldAge: s.Age != 0},
		FieldName, FieldStudentID)
	return s, nil
}

// DecodeCourse validates and converts a stored document. name and courseId
// are required.
func DecodeCourse(doc Document) (Course, error) {
	var c Course
	var err error
	c.ID = doc.ID()
	if c.Name, err = requiredString(doc, FieldName); err != nil {
		return Course{}, fmt.Errorf("course: %w", err)
	}
	if c.CourseID, err = requiredString(doc, FieldCourseID); err != nil {
		return Course{}, fmt.Errorf("course: %w", err)
	}
	if c.Credits, err = optionalInt(doc, FieldCredits); err != nil {
		return Course{}, fmt.Errorf("course: %w", err)
	}
	if c.Instructor, err = optionalString(doc, FieldInstructor); err != nil {
		return Course{}, fmt.Errorf("course: %w", err)
	}
	c.Extra = extraFields(doc, map[string]bool{FieldCredits: c.Credits != 0, FieldInstructor: c.Instructor != ""},
		FieldName, FieldCourseID)
	return c, nil
}

// extraFields copies what a decoded struct cannot reproduce: every field
// other than the identifier and the required ones, except optional fields
// whose value the struct holds. It returns nil when nothing is left.
func extraFields(doc Document, optionalSet map[string]bool, required ...string) Document {
	extra := doc.Clone()
	delete(extra, IDField)
	for _, field := range required {
		delete(extra, field)
	}
	for field, set := range optionalSet {
		if set {
			delete(extra, field)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func requiredString(doc Document, field string) (string, error) {
	if !doc.Has(field) {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidDocument, field)
	}
	s, ok := doc.String(field)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrInvalidDocument, field, doc[field])
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty %s", ErrInvalidDocument, field)
	}
	return s, nil
}

func optionalString(doc Document, field string) (string, error) {
	if doc[field] == nil {
		return "", nil
	}
	s, ok := doc.String(field)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrInvalidDocument, field, doc[field])
	}
	return s, nil
}

func optionalInt(doc Document, field string) (int, error) {
	if doc[field] == nil {
		return 0, nil
	}
	n, ok := doc.Int(field)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, want integer", ErrInvalidDocument, field, doc[field])
	}
	return n, nil
}
