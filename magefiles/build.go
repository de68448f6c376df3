//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the embedref project using Mage.
//
// Usage:
//
//	mage build       Compile embedref to bin/, stamped with $EMBEDREF_VERSION
//	mage test:all    Run every test
//	mage test:unit   Run tests that need no external services
//	mage test:mongo  Run the MongoDB backend tests against $EMBEDREF_TEST_MONGODB_URI
//	mage lint        Check gofmt, run go vet and golangci-lint
//	mage fmt         List files that need gofmt
//	mage demo        Build, then run the whole scenario against a scratch store
//	mage clean       Remove build artifacts and demo state
//	mage install     Install embedref to GOPATH/bin
//	mage stats       Print Go LOC per package and doc word counts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo       = "go"
	binaryName  = "embedref"
	binaryDir   = "bin"
	cmdDir      = "./cmd/embedref"
	versionVar  = "github.com/mesh-intelligence/embedref/internal/cli.Version"
	demoDataDir = ".embedref-demo"
)

// stateDirs are what the CLI creates in the working directory.
var stateDirs = []string{".embedref", ".embedref-db", demoDataDir}

func binaryPath() string {
	return filepath.Join(binaryDir, binaryName)
}

// Build compiles the embedref binary to bin/. A non-empty $EMBEDREF_VERSION
// replaces the version compiled into the binary.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", binaryPath()}
	if v := os.Getenv("EMBEDREF_VERSION"); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Demo runs run-all against a fresh SQLite store under .embedref-demo.
func Demo() error {
	mg.Deps(Build)
	if err := os.RemoveAll(demoDataDir); err != nil {
		return err
	}
	return sh.RunV(binaryPath(), "--data-dir", demoDataDir, "--config-dir", filepath.Join(demoDataDir, "config"), "run-all")
}

// Clean removes build artifacts and local demo state.
func Clean() error {
	for _, dir := range append([]string{binaryDir}, stateDirs...) {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath())
}
