// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package regcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsNotError(t *testing.T) {
	snap, err := Load(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)
	require.True(t, snap.Stale(time.Hour))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry-cache.json")
	want := Snapshot{
		ProbedAt: time.Now(),
		Entries: []Entry{
			{Kind: "compiler", Name: "pyinstaller", Path: "/usr/bin/pyinstaller", Version: "6.0", Available: true},
		},
	}

	require.NoError(t, Save(path, want, nil))

	got, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	require.Equal(t, want.Entries[0].Name, got.Entries[0].Name)
	require.False(t, got.Stale(time.Hour))
}

func TestLoadCorruptFileReturnsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	snap, err := Load(path, nil)
	require.NoError(t, err)
	require.True(t, snap.Stale(time.Hour))
}
