//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Test groups test targets (all, unit, features, cover).
type Test mg.Namespace

// All runs every test with the race detector.
func (Test) All() error {
	return gocmd("test", "-v", "-race", "./...")
}

// Unit runs every test once, without caching.
func (Test) Unit() error {
	return gocmd("test", "-count=1", "./...")
}

// Features runs the godog scenarios of the step bindings.
func (Test) Features() error {
	return gocmd("test", "-v", "-run", "Feature|Scenario", "./internal/steps/...")
}

// Cover writes a coverage profile to bin/coverage.out and prints the summary.
func (Test) Cover() error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(outDir, "coverage.out")
	if err := gocmd("test", "-coverprofile="+profile, "./..."); err != nil {
		return err
	}
	return gocmd("tool", "cover", "-func="+profile)
}
