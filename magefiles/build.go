//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the dbunit project using Mage.
//
// Usage:
//
//	mage build          Compile bin/dbunit
//	mage install        go install the dbunit command
//	mage test:all       Run all tests with the race detector
//	mage test:unit      Run tests once, uncached
//	mage test:features  Run the godog step binding suite
//	mage test:cover     Write coverage to bin/coverage.out
//	mage lint           go vet, then golangci-lint
//	mage clean          Remove bin/
//	mage stats          Print Go line counts per package
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// outDir holds the binary and the coverage profile.
const outDir = "bin"

const cmdPkg = "./cmd/dbunit"

// gocmd runs the go tool mage was built with.
var gocmd = sh.RunCmd(mg.GoCmd())

// Build compiles bin/dbunit.
func Build() error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return gocmd("build", "-o", filepath.Join(outDir, "dbunit"), cmdPkg)
}

// Install runs go install for the dbunit command.
func Install() error {
	return gocmd("install", cmdPkg)
}

// Clean removes bin/.
func Clean() error {
	return os.RemoveAll(outDir)
}
