// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

// Package main provides build targets for the todos service using Mage.
//
// Usage:
//
//	mage build       Compile the todos binary to bin/
//	mage test:all    Run every test
//	mage test:unit   Run tests in short mode (no TCP listeners)
//	mage test:race   Run every test with the race detector
//	mage lint        Run golangci-lint
//	mage clean       Remove build artifacts
//	mage install     Install todos to GOPATH/bin
//	mage run         Build and start the server with the default config
package main
