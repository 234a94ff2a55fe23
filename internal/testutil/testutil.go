// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package testutil provides fixtures shared across the core packages'
// test suites: fake external tools for the Tool Registry and Stage
// Scheduler, and small source trees for the Dependency Analyzer.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakeTool writes an executable script to a temp directory that exits
// with exitCode, writing stdout/stderr verbatim, then returns its path.
// On a probe invocation (`--version`), tools conventionally print a
// version line to stdout; callers pass that as stdout directly.
func FakeTool(t *testing.T, exitCode int, stdout, stderr string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "fake-tool")

	// Single-quote for sh so newlines and backslashes reach printf as-is.
	q := func(s string) string { return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'" }
	script := fmt.Sprintf("#!/bin/sh\nprintf %%s %s\nprintf %%s %s >&2\nexit %d\n", q(stdout), q(stderr), exitCode)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// FakeToolWithOutputFile writes an executable script that writes
// contents to outputPath (creating its directory) and exits with
// exitCode, so the caller can exercise a Scheduler's artifact locator.
// Unlike FakeTool it prints nothing to stdout or stderr.
func FakeToolWithOutputFile(t *testing.T, exitCode int, outputPath, contents string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(outputPath), 0o755))

	dir := t.TempDir()
	path := filepath.Join(dir, "fake-tool")
	script := fmt.Sprintf("#!/bin/sh\nmkdir -p %q\nprintf %%s %q > %q\nexit %d\n",
		filepath.Dir(outputPath), contents, outputPath, exitCode)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// WriteSourceTree materializes a map of relative path -> file contents
// under a fresh temp directory and returns its root.
func WriteSourceTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, contents := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
	}
	return root
}
