// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, race, golden).
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs tests in short mode. Tests that open TCP listeners skip
// themselves.
func (Test) Unit() error {
	pkgs, err := packages()
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No test packages found.")
		return nil
	}
	args := append([]string{"test", "-short"}, pkgs...)
	return sh.RunV(binGo, args...)
}

// Race runs every test with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Golden regenerates the HTTP transcript golden files.
func (Test) Golden() error {
	return sh.RunV(binGo, "test", "./internal/server/", "-run", "TestGolden", "-update")
}

// packages lists module packages, excluding magefiles.
func packages() ([]string, error) {
	out, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for pkg := range strings.SplitSeq(out, "\n") {
		if pkg == "" || strings.HasPrefix(pkg, modulePath+"/magefiles") {
			continue
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}
