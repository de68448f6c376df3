package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HydratedView is the display-ready form of an enrollment, whichever
// strategy stored it.
type HydratedView struct {
	EnrollmentID      string         `json:"enrollmentId" yaml:"enrollmentId"`
	Type              EnrollmentType `json:"enrollmentType" yaml:"enrollmentType"`
	StudentName       string         `json:"studentName" yaml:"studentName"`
	StudentBusinessID string         `json:"studentId" yaml:"studentId"`
	CourseName        string         `json:"courseName" yaml:"courseName"`
	CourseBusinessID  string         `json:"courseId" yaml:"courseId"`
	Grade             string         `json:"grade" yaml:"grade"`
	Date              time.Time      `json:"date" yaml:"date"`

	// Lookups counts the store round trips the resolve performed: two for a
	// referenced enrollment, zero for an embedded one.
	Lookups int `json:"lookups" yaml:"lookups"`
}

// ErrDanglingReference marks a referenced enrollment whose student or course
// no longer exists. Match it with errors.Is; use errors.As with
// *DanglingReferenceError for the details.
var ErrDanglingReference = errors.New("dangling reference")

// DanglingReferenceError names the side or sides of a referenced enrollment
// that did not resolve.
type DanglingReferenceError struct {
	EnrollmentID   string
	StudentRef     string
	CourseRef      string
	MissingStudent bool
	MissingCourse  bool
}

// Missing lists the unresolved sides, "student" and/or "course".
func (e *DanglingReferenceError) Missing() []string {
	var sides []string
	if e.MissingStudent {
		sides = append(sides, "student")
	}
	if e.MissingCourse {
		sides = append(sides, "course")
	}
	return sides
}

func (e *DanglingReferenceError) Error() string {
	var parts []string
	if e.MissingStudent {
		parts = append(parts, fmt.Sprintf("student %s", e.StudentRef))
	}
	if e.MissingCourse {
		parts = append(parts, fmt.Sprintf("course %s", e.CourseRef))
	}
	return fmt.Sprintf("enrollment %s: %s: %s not found", e.EnrollmentID, ErrDanglingReference, strings.Join(parts, " and "))
}

// Is reports a match against ErrDanglingReference.
func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}
