// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateSizesUsesFileSizeWhenResolved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	g := newGraph("root")
	g.node("mod").Path = path
	g.node("mod").Classification = Local

	estimateSizes(g)
	require.Equal(t, int64(4096), g.Nodes["mod"].SizeBytes)
}

func TestEstimateSizesDefaultsWhenUnresolved(t *testing.T) {
	g := newGraph("root")
	g.node("thirdparty").Classification = ThirdParty

	estimateSizes(g)
	require.Equal(t, int64(defaultThirdPartySize), g.Nodes["thirdparty"].SizeBytes)
}

func TestEstimateSizesSumsPackageDirectoryForInit(t *testing.T) {
	dir := t.TempDir()
	pkgDir := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "__init__.py"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "mod.py"), make([]byte, 200), 0o644))

	g := newGraph("root")
	g.node("pkg").Path = filepath.Join(pkgDir, "__init__.py")
	g.node("pkg").Classification = Local

	estimateSizes(g)
	require.Equal(t, int64(300), g.Nodes["pkg"].SizeBytes)
}
