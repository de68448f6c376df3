package scenario

import "github.com/mesh-intelligence/embedref/pkg/types"

// Grades given to the two demonstration enrollments.
const (
	ReferencedGrade = "A"
	EmbeddedGrade   = "B+"
)

// Defaults for UpdateStudentName.
const (
	DefaultUpdateStudentID = "S1001"
	DefaultUpdatedName     = "John Smith-Updated"
)

// SampleStudents returns the students inserted by Seed.
func SampleStudents() []types.Student {
	return []types.Student{
		{Name: "John Smith", StudentID: "S1001", Email: "john.smith@example.com", Age: 20},
		{Name: "Emily Johnson", StudentID: "S1002", Email: "emily.johnson@example.com", Age: 21},
		{Name: "Michael Brown", StudentID: "S1003", Email: "michael.brown@example.com", Age: 19},
	}
}

// SampleCourses returns the courses inserted by Seed.
func SampleCourses() []types.Course {
	return []types.Course{
		{Name: "Introduction to Java Programming", CourseID: "CS101", Credits: 3, Instructor: "Prof. Anderson"},
		{Name: "Database Management Systems", CourseID: "CS202", Credits: 4, Instructor: "Prof. Martinez"},
		{Name: "Web Development Fundamentals", CourseID: "CS303", Credits: 3, Instructor: "Prof. Wilson"},
	}
}
