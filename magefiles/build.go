// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "todos"
	binaryDir  = "bin"
	cmdDir     = "./cmd/todos"
	modulePath = "github.com/mesh-intelligence/todos"
)

// Build compiles the todos binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", binaryPath(), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
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
	dst := filepath.Join(gopath, "bin", binaryName)
	if err := sh.Copy(dst, binaryPath()); err != nil {
		return err
	}
	fmt.Printf("installed %s\n", dst)
	return nil
}

// Run builds the binary and starts the server. TODOS_* environment
// variables pass through to the process.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(binaryPath(), "serve")
}

// Version prints the version compiled into the binary.
func Version() error {
	mg.Deps(Build)
	return sh.RunV(binaryPath(), "version")
}

func binaryPath() string {
	return filepath.Join(binaryDir, binaryName)
}
