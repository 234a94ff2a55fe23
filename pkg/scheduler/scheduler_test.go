// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nativeforge/forge/internal/builderrors"
	"github.com/nativeforge/forge/internal/testutil"
	"github.com/nativeforge/forge/pkg/job"
	"github.com/nativeforge/forge/pkg/registry"
)

type fakeCompileBackend struct {
	name       string
	score      int
	outputPath string
}

func (f fakeCompileBackend) Name() string                                { return f.name }
func (f fakeCompileBackend) Score(job.Spec, InputInfo) int                { return f.score }
func (f fakeCompileBackend) BuildArgs(job.Spec, InputInfo) []string       { return nil }
func (f fakeCompileBackend) Locate(job.Spec, InputInfo) []string          { return []string{f.outputPath} }

func TestSelectPicksHighestScore(t *testing.T) {
	reg := registry.New(nil)
	reg.Discover(context.Background(), []registry.Probe{
		{Kind: registry.KindCompiler, Name: "a", Builtin: true},
		{Kind: registry.KindCompiler, Name: "b", Builtin: true},
	})

	backends := []Backend{
		fakeCompileBackend{name: "a", score: 50},
		fakeCompileBackend{name: "b", score: 90},
	}
	s := New(registry.KindCompiler, reg, backends, nil)

	backend, desc, buildErr := s.Select(job.Spec{}, "", InputInfo{})
	require.Nil(t, buildErr)
	require.Equal(t, "b", backend.Name())
	require.Equal(t, "b", desc.Name)
}

func TestSelectTieBrokenAlphabetically(t *testing.T) {
	reg := registry.New(nil)
	reg.Discover(context.Background(), []registry.Probe{
		{Kind: registry.KindCompiler, Name: "zeta", Builtin: true},
		{Kind: registry.KindCompiler, Name: "alpha", Builtin: true},
	})

	backends := []Backend{
		fakeCompileBackend{name: "zeta", score: 80},
		fakeCompileBackend{name: "alpha", score: 80},
	}
	s := New(registry.KindCompiler, reg, backends, nil)

	backend, _, buildErr := s.Select(job.Spec{}, "", InputInfo{})
	require.Nil(t, buildErr)
	require.Equal(t, "alpha", backend.Name())
}

func TestSelectNoCandidatesFails(t *testing.T) {
	reg := registry.New(nil)
	s := New(registry.KindCompiler, reg, nil, nil)

	_, _, buildErr := s.Select(job.Spec{}, "", InputInfo{})
	require.NotNil(t, buildErr)
	require.True(t, builderrors.Is(buildErr, builderrors.NoToolAvailable))
}

func TestRunLocatesArtifactOnSuccess(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "artifact")
	tool := testutil.FakeToolWithOutputFile(t, 0, outputPath, "binary-contents")

	reg := registry.New(nil)
	reg.Discover(context.Background(), []registry.Probe{
		{Kind: registry.KindCompiler, Name: "pyinstaller", PathOverride: tool},
	})

	s := New(registry.KindCompiler, reg, []Backend{
		fakeCompileBackend{name: "pyinstaller", score: 90, outputPath: outputPath},
	}, nil)

	desc, ok := reg.Lookup(registry.KindCompiler, "pyinstaller")
	require.True(t, ok)

	outcome, buildErr := s.Run(context.Background(), fakeCompileBackend{name: "pyinstaller", outputPath: outputPath}, desc, job.Spec{}, InputInfo{Path: "entry.py"}, Invocation{Stage: "compile"})
	require.Nil(t, buildErr)
	require.Equal(t, outputPath, outcome.ArtifactPath)
	require.Equal(t, int64(len("binary-contents")), outcome.ByteSize)
}

func TestRunMissingArtifactFails(t *testing.T) {
	tool := testutil.FakeTool(t, 0, "", "")

	reg := registry.New(nil)
	reg.Discover(context.Background(), []registry.Probe{
		{Kind: registry.KindCompiler, Name: "pyinstaller", PathOverride: tool},
	})
	desc, _ := reg.Lookup(registry.KindCompiler, "pyinstaller")

	s := New(registry.KindCompiler, reg, nil, nil)
	_, buildErr := s.Run(context.Background(), fakeCompileBackend{name: "pyinstaller", outputPath: "/no/such/artifact"}, desc, job.Spec{}, InputInfo{Path: "entry.py"}, Invocation{Stage: "compile"})
	require.NotNil(t, buildErr)
	require.True(t, builderrors.Is(buildErr, builderrors.ArtifactNotFound))
}

func TestRunSubprocessFailureReported(t *testing.T) {
	tool := testutil.FakeTool(t, 1, "", "boom")

	reg := registry.New(nil)
	reg.Discover(context.Background(), []registry.Probe{
		{Kind: registry.KindCompiler, Name: "pyinstaller", PathOverride: tool},
	})
	desc, _ := reg.Lookup(registry.KindCompiler, "pyinstaller")

	s := New(registry.KindCompiler, reg, nil, nil)
	_, buildErr := s.Run(context.Background(), fakeCompileBackend{name: "pyinstaller"}, desc, job.Spec{}, InputInfo{Path: "entry.py"}, Invocation{Stage: "compile"})
	require.NotNil(t, buildErr)
	require.True(t, builderrors.Is(buildErr, builderrors.SubprocessFailure))
}
