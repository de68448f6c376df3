//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// envMongoURI points the MongoDB backend tests at a live server.
const envMongoURI = "EMBEDREF_TEST_MONGODB_URI"

// Test groups test targets (all, unit, mongo).
type Test mg.Namespace

// All runs all tests. The MongoDB tests skip themselves unless
// EMBEDREF_TEST_MONGODB_URI is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs all tests with the MongoDB server unset.
func (Test) Unit() error {
	return sh.RunWithV(map[string]string{envMongoURI: ""}, binGo, "test", "-v", "./...")
}

// Mongo runs the MongoDB backend tests. It fails when no server is
// configured rather than skipping.
func (Test) Mongo() error {
	if os.Getenv(envMongoURI) == "" {
		return fmt.Errorf("%s is not set", envMongoURI)
	}
	return sh.RunV(binGo, "test", "-v", "-count=1", "./internal/mongo/...")
}
