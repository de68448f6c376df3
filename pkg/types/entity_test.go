package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentDocumentRoundTrip(t *testing.T) {
	s := Student{ID: "stu-1", Name: "John Smith", StudentID: "S1001", Email: "john.smith@example.com", Age: 20}

	got, err := DecodeStudent(s.Document())
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestStudentDocumentOmitsEmptyID(t *testing.T) {
	doc := Student{Name: "John Smith", StudentID: "S1001"}.Document()
	assert.False(t, doc.Has(IDField))
}

func TestCourseDocumentRoundTrip(t *testing.T) {
	c := Course{ID: "crs-1", Name: "Intro to Programming", CourseID: "CS101", Credits: 3, Instructor: "Prof. Anderson"}

	got, err := DecodeCourse(c.Document())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDecodeStudentValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{"required fields only", Document{FieldName: "A", FieldStudentID: "S1"}, false},
		{"json number age", Document{FieldName: "A", FieldStudentID: "S1", FieldAge: float64(20)}, false},
		{"missing name", Document{FieldStudentID: "S1"}, true},
		{"empty studentId", Document{FieldName: "A", FieldStudentID: ""}, true},
		{"numeric name", Document{FieldName: 12, FieldStudentID: "S1"}, true},
		{"string age", Document{FieldName: "A", FieldStudentID: "S1", FieldAge: "twenty"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStudent(tt.doc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDocument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeCourseValidation(t *testing.T) {
	_, err := DecodeCourse(Document{FieldName: "Databases"})
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = DecodeCourse(Document{FieldName: "Databases", FieldCourseID: "CS202", FieldCredits: 4.5})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestStudentKeepsUnmodeledFields(t *testing.T) {
	stored := Document{
		IDField:        "stu-1",
		FieldName:      "John Smith",
		FieldStudentID: "S1001",
		FieldEmail:     "",
		"major":        "Physics",
		"advisor":      Document{"name": "Dr. Lee"},
	}

	s, err := DecodeStudent(stored)
	require.NoError(t, err)
	assert.Equal(t, "Physics", s.Extra["major"])
	assert.Equal(t, stored, s.Document(), "an empty email stays as stored")
	assert.False(t, s.Document().Has(FieldAge), "an absent age is not added")

	stored["advisor"].(Document)["name"] = "changed"
	advisor, _ := s.Extra.Doc("advisor")
	assert.Equal(t, "Dr. Lee", advisor["name"])
}

func TestCourseKeepsUnmodeledFields(t *testing.T) {
	stored := Document{FieldName: "Databases", FieldCourseID: "CS202", "room": "B12"}

	c, err := DecodeCourse(stored)
	require.NoError(t, err)
	assert.Equal(t, stored, c.Document())
	assert.False(t, c.Document().Has(FieldCredits))
	assert.False(t, c.Document().Has(FieldInstructor))
}

func TestStructFieldsOverrideExtra(t *testing.T) {
	c, err := DecodeCourse(Document{FieldName: "Databases", FieldCourseID: "CS202", FieldCredits: 4})
	require.NoError(t, err)
	assert.Nil(t, c.Extra)

	c.Extra = Document{FieldName: "stale", "room": "B12"}
	doc := c.Document()
	assert.Equal(t, "Databases", doc[FieldName])
	assert.Equal(t, "B12", doc["room"])
	assert.Equal(t, 4, doc[FieldCredits])

	clone := c.Clone()
	clone.Extra["room"] = "C3"
	assert.Equal(t, "B12", c.Extra["room"])
}
