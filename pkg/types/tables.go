package types

// Default collection names.
const (
	DefaultStudentsCollection    = "students"
	DefaultCoursesCollection     = "courses"
	DefaultEnrollmentsCollection = "enrollments"
)

// CollectionNames names the three collections the engine works with.
type CollectionNames struct {
	Students    string `json:"students" yaml:"students" mapstructure:"students"`
	Courses     string `json:"courses" yaml:"courses" mapstructure:"courses"`
	Enrollments string `json:"enrollments" yaml:"enrollments" mapstructure:"enrollments"`
}

// DefaultCollectionNames returns the standard collection names.
func DefaultCollectionNames() CollectionNames {
	return CollectionNames{
		Students:    DefaultStudentsCollection,
		Courses:     DefaultCoursesCollection,
		Enrollments: DefaultEnrollmentsCollection,
	}
}

// All lists the collection names in bootstrap order.
func (n CollectionNames) All() []string {
	return []string{n.Students, n.Courses, n.Enrollments}
}

// Validate reports ErrCollectionNameEmpty or ErrCollectionNameReused.
func (n CollectionNames) Validate() error {
	seen := make(map[string]bool, 3)
	for _, name := range n.All() {
		if name == "" {
			return ErrCollectionNameEmpty
		}
		if seen[name] {
			return ErrCollectionNameReused
		}
		seen[name] = true
	}
	return nil
}
