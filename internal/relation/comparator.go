package relation

import (
	"fmt"

	"github.com/mesh-intelligence/embedref/internal/codec"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// Risk describes how a stored representation can disagree with the
// canonical records.
type Risk struct {
	CanGoStale bool   `json:"canGoStale" yaml:"canGoStale"`
	CanDangle  bool   `json:"canDangle" yaml:"canDangle"`
	Note       string `json:"note" yaml:"note"`
}

// StalenessRisk holds the risk of each strategy.
type StalenessRisk struct {
	Referenced Risk `json:"referenced" yaml:"referenced"`
	Embedded   Risk `json:"embedded" yaml:"embedded"`
}

// Comparison is the size and consistency trade-off between one referenced
// and one embedded enrollment.
type Comparison struct {
	ReferencedBytes int           `json:"referencedBytes" yaml:"referencedBytes"`
	EmbeddedBytes   int           `json:"embeddedBytes" yaml:"embeddedBytes"`
	Ratio           float64       `json:"ratio" yaml:"ratio"`
	Available       bool          `json:"available" yaml:"available"`
	StalenessRisk   StalenessRisk `json:"stalenessRisk" yaml:"stalenessRisk"`
	Err             error         `json:"-" yaml:"-"`
}

// Comparator measures enrollments as canonical Extended JSON. It reads
// nothing from the store.
type Comparator struct{}

// NewComparator returns a Comparator.
func NewComparator() *Comparator {
	return &Comparator{}
}

// Compare sizes referenced and embedded. Ratio is embedded over referenced
// and is only set when both sizes are positive. The arguments may be of
// either strategy; the risk reported for each follows its actual type.
func (c *Comparator) Compare(referenced, embedded types.Enrollment) Comparison {
	var cmp Comparison

	refRisk, err := riskOf(referenced)
	if err != nil {
		cmp.Err = err
		return cmp
	}
	embRisk, err := riskOf(embedded)
	if err != nil {
		cmp.Err = err
		return cmp
	}
	cmp.StalenessRisk = StalenessRisk{Referenced: refRisk, Embedded: embRisk}

	if cmp.ReferencedBytes, err = Size(referenced); err != nil {
		cmp.Err = fmt.Errorf("size referenced enrollment: %w", err)
		return cmp
	}
	if cmp.EmbeddedBytes, err = Size(embedded); err != nil {
		cmp.Err = fmt.Errorf("size embedded enrollment: %w", err)
		return cmp
	}
	if cmp.ReferencedBytes > 0 && cmp.EmbeddedBytes > 0 {
		cmp.Ratio = float64(cmp.EmbeddedBytes) / float64(cmp.ReferencedBytes)
		cmp.Available = true
	}
	return cmp
}

// Size returns the length of e rendered as canonical Extended JSON.
func Size(e types.Enrollment) (int, error) {
	if e == nil {
		return 0, fmt.Errorf("%w: nil enrollment", types.ErrInvalidDocument)
	}
	doc, err := types.EncodeEnrollment(e)
	if err != nil {
		return 0, err
	}
	data, err := codec.MarshalExtJSON(doc, true)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func riskOf(e types.Enrollment) (Risk, error) {
	if e == nil {
		return Risk{}, fmt.Errorf("%w: nil enrollment", types.ErrInvalidDocument)
	}
	var v riskVisitor
	if err := e.Accept(&v); err != nil {
		return Risk{}, err
	}
	return v.risk, nil
}

type riskVisitor struct {
	risk Risk
}

func (v *riskVisitor) VisitReferenced(*types.ReferencedEnrollment) error {
	v.risk = Risk{
		CanDangle: true,
		Note:      "always current; breaks if the student or course is deleted",
	}
	return nil
}

func (v *riskVisitor) VisitEmbedded(*types.EmbeddedEnrollment) error {
	v.risk = Risk{
		CanGoStale: true,
		Note:       "point-in-time copy; later updates to the student or course are not reflected",
	}
	return nil
}
