package scenario

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/pkg/types"
)

// ImportReport is the result of Import.
type ImportReport struct {
	Files []ExportFile `json:"files" yaml:"files"`
	// Unresolved counts references that named a document absent from the
	// import; they are kept as they were and will dangle.
	Unresolved int `json:"unresolved" yaml:"unresolved"`
}

// Import loads <dir>/<collection>.jsonl files written by Export into the
// store. Students and courses load before enrollments. Every document gets
// a new store-assigned identifier, and the references inside enrollments
// are rewritten to the new identifiers. A missing file loads nothing.
func (r *Runner) Import(ctx context.Context, dir string) (ImportReport, error) {
	var report ImportReport
	remap := map[string]string{}

	for _, name := range r.names.All() {
		path := filepath.Join(dir, name+".jsonl")
		docs, err := readJSONL(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return report, err
		}
		c, err := r.store.Collection(name)
		if err != nil {
			return report, fmt.Errorf("collection %s: %w", name, err)
		}

		for _, doc := range docs {
			oldID := doc.ID()
			fresh := doc.Clone()
			delete(fresh, types.IDField)
			if name == r.names.Enrollments {
				report.Unresolved += rewriteReferences(fresh, remap)
			}
			newID, err := c.Insert(ctx, fresh)
			if err != nil {
				return report, fmt.Errorf("import %s: %w", path, err)
			}
			if oldID != "" {
				remap[oldID] = newID
			}
		}
		report.Files = append(report.Files, ExportFile{Collection: name, Path: path, Documents: len(docs)})
	}
	r.logger.Debug("imported",
		zap.String("dir", dir),
		zap.Int("unresolved", report.Unresolved))
	return report, nil
}

// rewriteReferences points the identifiers an enrollment holds at their
// imported replacements. It returns how many could not be mapped.
func rewriteReferences(doc types.Document, remap map[string]string) int {
	unresolved := 0
	swap := func(d types.Document, field string) {
		old, ok := d.String(field)
		if !ok || old == "" {
			return
		}
		if id, ok := remap[old]; ok {
			d[field] = id
			return
		}
		unresolved++
	}

	swap(doc, types.FieldStudentRef)
	swap(doc, types.FieldCourseRef)
	for _, field := range []string{types.FieldStudent, types.FieldCourse} {
		if sub, ok := doc.Doc(field); ok {
			sub = sub.Clone()
			swap(sub, types.IDField)
			doc[field] = sub
		}
	}
	return unresolved
}
