// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nativeforge/forge/internal/builderrors"
	"github.com/nativeforge/forge/internal/testutil"
)

type stubResolver struct {
	classifications map[string]Classification
}

func (s stubResolver) Resolve(name string) (Info, error) {
	if c, ok := s.classifications[name]; ok {
		return Info{Classification: c}, nil
	}
	return Info{Classification: Unresolved}, nil
}

func TestAnalyzeClassifiesBuiltinImports(t *testing.T) {
	root := testutil.WriteSourceTree(t, map[string]string{
		"main.py": "import os\nimport sys\nimport json\nimport datetime\n",
	})

	a := &Analyzer{
		SkipDynamic: true,
		Resolver: stubResolver{classifications: map[string]Classification{
			"os": Builtin, "sys": Builtin, "json": Builtin, "datetime": Builtin,
		}},
	}

	result, buildErr := a.Analyze(context.Background(), filepath.Join(root, "main.py"))
	require.Nil(t, buildErr)

	for _, name := range []string{"os", "sys", "json", "datetime"} {
		node, ok := result.Graph.Nodes[name]
		require.True(t, ok, "missing node %s", name)
		require.Equal(t, Builtin, node.Classification)
		require.Greater(t, node.SizeBytes, int64(0))
		require.True(t, node.RequiredBy[result.Graph.EntryName])
	}
}

func TestAnalyzeDetectsTwoFileCycle(t *testing.T) {
	root := testutil.WriteSourceTree(t, map[string]string{
		"a.py": "from b import x\n",
		"b.py": "from a import y\n",
	})

	a := &Analyzer{SkipDynamic: true, Resolver: stubResolver{classifications: map[string]Classification{
		"a": Local, "b": Local,
	}}}
	result, buildErr := a.Analyze(context.Background(), filepath.Join(root, "a.py"))
	require.Nil(t, buildErr)

	require.Len(t, result.Cycles, 1)
	require.Len(t, result.Cycles[0], 2)

	require.Equal(t, Local, result.Graph.Nodes["b"].Classification)
}

func TestAnalyzeMissingEntryFails(t *testing.T) {
	a := &Analyzer{SkipDynamic: true, Resolver: stubResolver{}}
	_, buildErr := a.Analyze(context.Background(), "/no/such/entry.py")
	require.NotNil(t, buildErr)
	require.True(t, builderrors.Is(buildErr, builderrors.InputNotFound))
}
