//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// docFiles are the prose documents Stats counts words in.
var docFiles = []string{"spec.md", "SPEC_FULL.md", "DESIGN.md"}

// packageStats is the line count of one Go package directory.
type packageStats struct {
	Prod  int `json:"prod"`
	Test  int `json:"test"`
	Tests int `json:"tests"` // Test functions.
}

// Stats prints one JSON record with Go lines per package, split into
// production and test code, and the word count of each document.
func Stats() error {
	packages := map[string]*packageStats{}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (skipDir(path) || strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		lines, tests, err := scanGoFile(path)
		if err != nil {
			return err
		}
		pkg := filepath.ToSlash(filepath.Dir(path))
		if packages[pkg] == nil {
			packages[pkg] = &packageStats{}
		}
		if strings.HasSuffix(path, "_test.go") {
			packages[pkg].Test += lines
			packages[pkg].Tests += tests
		} else {
			packages[pkg].Prod += lines
		}
		return nil
	})
	if err != nil {
		return err
	}

	var total packageStats
	for _, s := range packages {
		total.Prod += s.Prod
		total.Test += s.Test
		total.Tests += s.Tests
	}
	words := map[string]int{}
	for _, name := range docFiles {
		n, err := countWordsInFile(name)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		words[name] = n
	}

	record := struct {
		Packages map[string]*packageStats `json:"packages"`
		Total    packageStats             `json:"total"`
		Words    map[string]int           `json:"words"`
	}{packages, total, words}
	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func skipDir(path string) bool {
	return slices.Contains([]string{"vendor", binaryDir, "magefiles"}, path)
}

// scanGoFile returns the line count of a Go file and how many top-level
// Test functions it declares.
func scanGoFile(path string) (lines, tests int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		if strings.HasPrefix(scanner.Text(), "func Test") {
			tests++
		}
	}
	return lines, tests, scanner.Err()
}

func countWordsInFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(strings.Fields(string(data))), nil
}
