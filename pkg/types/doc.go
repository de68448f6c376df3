// Package types defines the Store and Collection interfaces, the student,
// course, and enrollment entity types, and the standard error values for
// the embedref relationship engine.
//
// Enrollments come in two shapes. A ReferencedEnrollment stores only the
// identifiers of its student and course; an EmbeddedEnrollment stores full
// copies of both documents as they were when the enrollment was created.
// Enrollment is a sealed interface over exactly these two structs, and
// EnrollmentVisitor is the exhaustive way to branch on it.
package types
