package scenario

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/embedref/internal/codec"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// ExportFile describes one collection written by Export.
type ExportFile struct {
	Collection string `json:"collection" yaml:"collection"`
	Path       string `json:"path" yaml:"path"`
	Documents  int    `json:"documents" yaml:"documents"`
}

// ExportReport is the result of Export.
type ExportReport struct {
	Files []ExportFile `json:"files" yaml:"files"`
}

// Export writes each collection to <dir>/<collection>.jsonl, one relaxed
// Extended JSON document per line in insertion order. Files are replaced
// atomically.
func (r *Runner) Export(ctx context.Context, dir string) (ExportReport, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportReport{}, fmt.Errorf("creating export dir: %w", err)
	}
	var report ExportReport
	for _, name := range r.names.All() {
		c, err := r.store.Collection(name)
		if err != nil {
			return ExportReport{}, fmt.Errorf("collection %s: %w", name, err)
		}
		docs, err := c.Find(ctx, types.Query{})
		if err != nil {
			return ExportReport{}, fmt.Errorf("read %s: %w", name, err)
		}
		records := make([][]byte, 0, len(docs))
		for _, doc := range docs {
			line, err := codec.MarshalExtJSON(doc, false)
			if err != nil {
				return ExportReport{}, err
			}
			records = append(records, line)
		}
		path := filepath.Join(dir, name+".jsonl")
		if err := writeJSONL(path, records); err != nil {
			return ExportReport{}, err
		}
		report.Files = append(report.Files, ExportFile{Collection: name, Path: path, Documents: len(docs)})
	}
	r.logger.Debug("exported", zap.String("dir", dir))
	return report, nil
}

// readJSONL parses an exported file. Blank lines are skipped; a line that is
// not Extended JSON is an error.
func readJSONL(path string) ([]types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var docs []types.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		doc, err := codec.UnmarshalExtJSON(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return docs, nil
}

// writeJSONL writes records to path using the temp-file, fsync, rename
// pattern.
func writeJSONL(path string, records [][]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
