// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nativeforge/forge/pkg/job"
)

func TestLoadJobDefaultsMissingFile(t *testing.T) {
	d, err := LoadJobDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, JobDefaults{}, d)
}

func TestLoadJobDefaultsParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forge.yaml")
	contents := "console: true\ncompression_method: adaptive\ncompression_level: 7\ntool_paths:\n  pyinstaller: /opt/pyinstaller/bin/pyinstaller\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	d, err := LoadJobDefaults(path)
	require.NoError(t, err)
	require.True(t, d.Console)
	require.Equal(t, job.CompressionAdaptive, d.CompressionMethod)
	require.Equal(t, 7, d.CompressionLevel)
	require.Equal(t, "/opt/pyinstaller/bin/pyinstaller", d.ToolPaths["pyinstaller"])
}

func TestApplyDoesNotOverrideExplicitSpec(t *testing.T) {
	d := JobDefaults{CompressionMethod: job.CompressionLZMA}
	spec := job.Spec{CompressionMethod: job.CompressionUPX}

	out := d.Apply(spec)
	require.Equal(t, job.CompressionUPX, out.CompressionMethod)
}
