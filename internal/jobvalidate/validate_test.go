// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package jobvalidate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nativeforge/forge/internal/builderrors"
	"github.com/nativeforge/forge/pkg/job"
)

func writeTempFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(path, []byte("import os\n"), 0o644))
	return path
}

func TestValidateMissingInput(t *testing.T) {
	err := Validate(job.Spec{InputPath: "/no/such/file.py"})
	require.NotNil(t, err)
	require.True(t, builderrors.Is(err, builderrors.InputNotFound))
}

func TestValidateOK(t *testing.T) {
	spec := job.Spec{
		InputPath:         writeTempFile(t),
		CompressionMethod: job.CompressionAuto,
		CompressionLevel:  6,
		ProtectionLevel:   job.ProtectionBasic,
	}
	require.Nil(t, Validate(spec))
}

func TestValidateBadCompressionLevel(t *testing.T) {
	spec := job.Spec{InputPath: writeTempFile(t), CompressionLevel: 42}
	err := Validate(spec)
	require.NotNil(t, err)
	require.True(t, builderrors.Is(err, builderrors.ParseError))
}

func TestValidateUnknownProtectionLevel(t *testing.T) {
	spec := job.Spec{InputPath: writeTempFile(t), ProtectionLevel: "ultra"}
	err := Validate(spec)
	require.NotNil(t, err)
	require.True(t, builderrors.Is(err, builderrors.ParseError))
}

func TestValidateTooManyExcludes(t *testing.T) {
	excludes := make([]string, DefaultMaxExcludes+1)
	spec := job.Spec{InputPath: writeTempFile(t), Excludes: excludes}
	err := Validate(spec)
	require.NotNil(t, err)
	require.True(t, builderrors.Is(err, builderrors.ParseError))
}
