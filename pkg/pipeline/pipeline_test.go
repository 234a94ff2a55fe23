// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nativeforge/forge/internal/testutil"
	"github.com/nativeforge/forge/pkg/job"
	"github.com/nativeforge/forge/pkg/registry"
	"github.com/nativeforge/forge/pkg/scheduler"
)

type fakeBackend struct {
	name       string
	outputPath string
}

func (f fakeBackend) Name() string                                      { return f.name }
func (f fakeBackend) Score(job.Spec, scheduler.InputInfo) int            { return 90 }
func (f fakeBackend) BuildArgs(job.Spec, scheduler.InputInfo) []string   { return nil }
func (f fakeBackend) Locate(job.Spec, scheduler.InputInfo) []string      { return []string{f.outputPath} }

// newTestPipeline wires a Pipeline whose three schedulers each carry a
// single fake backend backed by a real (scripted) subprocess, so Run
// exercises the genuine Select/Run/subprocess path without shelling out
// to a real compiler, compressor, or obfuscator.
func newTestPipeline(t *testing.T, compileTool, compressTool, protectTool string, compileOut, compressOut, protectOut string) *Pipeline {
	t.Helper()

	reg := registry.New(nil)
	probes := []registry.Probe{}
	if compileTool != "" {
		probes = append(probes, registry.Probe{Kind: registry.KindCompiler, Name: "pyinstaller", PathOverride: compileTool})
	}
	if compressTool != "" {
		probes = append(probes, registry.Probe{Kind: registry.KindCompressor, Name: "upx", PathOverride: compressTool})
	}
	if protectTool != "" {
		probes = append(probes, registry.Probe{Kind: registry.KindProtector, Name: "bytecode-encryptor", PathOverride: protectTool})
	}
	reg.Discover(context.Background(), probes)

	compileSched := scheduler.New(registry.KindCompiler, reg, []scheduler.Backend{
		fakeBackend{name: "pyinstaller", outputPath: compileOut},
	}, nil)
	compressSched := scheduler.New(registry.KindCompressor, reg, []scheduler.Backend{
		fakeBackend{name: "upx", outputPath: compressOut},
	}, nil)
	protectSched := scheduler.New(registry.KindProtector, reg, []scheduler.Backend{
		fakeBackend{name: "bytecode-encryptor", outputPath: protectOut},
	}, nil)

	return New(compileSched, compressSched, protectSched, nil, nil)
}

func TestRunCompileOnlySucceeds(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(input, []byte("print('hi')\n"), 0o644))
	artifact := filepath.Join(dir, "out", "main")

	compileTool := testutil.FakeToolWithOutputFile(t, 0, artifact, "compiled-binary")
	p := newTestPipeline(t, compileTool, "", "", artifact, "", "")

	spec := job.Spec{InputPath: input, OutputDir: filepath.Join(dir, "out")}
	report := p.Run(context.Background(), spec)

	require.True(t, report.Success)
	require.NotNil(t, report.Compile)
	require.True(t, report.Compile.Success)
	require.Equal(t, artifact, report.Compile.ArtifactPath)
	require.Nil(t, report.Compress)
	require.Nil(t, report.Protect)
}

func TestRunCompressSuccessRemovesBackup(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(input, []byte("print('hi')\n"), 0o644))
	artifact := filepath.Join(dir, "out", "main")

	compileTool := testutil.FakeToolWithOutputFile(t, 0, artifact, "compiled-binary-contents")
	compressTool := testutil.FakeToolWithOutputFile(t, 0, artifact, "small")
	p := newTestPipeline(t, compileTool, compressTool, "", artifact, artifact, "")

	spec := job.Spec{
		InputPath:         input,
		OutputDir:         filepath.Join(dir, "out"),
		CompressionMethod: job.CompressionUPX,
	}
	report := p.Run(context.Background(), spec)

	require.True(t, report.Success)
	require.NotNil(t, report.Compress)
	require.True(t, report.Compress.Success)
	require.Equal(t, int64(len("compiled-binary-contents")), report.Compress.OriginalSize)
	require.Equal(t, int64(len("small")), report.Compress.CompressedSize)

	_, statErr := os.Stat(artifact + ".backup")
	require.True(t, os.IsNotExist(statErr))

	contents, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Equal(t, "small", string(contents))
}

func TestRunCompressFailureRollsBackArtifact(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(input, []byte("print('hi')\n"), 0o644))
	artifact := filepath.Join(dir, "out", "main")

	compileTool := testutil.FakeToolWithOutputFile(t, 0, artifact, "compiled-binary-contents")
	compressTool := testutil.FakeTool(t, 1, "", "compressor exploded")
	p := newTestPipeline(t, compileTool, compressTool, "", artifact, artifact, "")
	// The fake compressor also exits 1 on the registry's --version probe,
	// so mark it available by hand; otherwise the stage fails at
	// selection and the rollback path never runs.
	descs := []registry.Descriptor{{Kind: registry.KindCompressor, Name: "upx", Path: compressTool, Available: true}}
	descs = append(descs, p.Compile.Registry.ByKind(registry.KindCompiler)...)
	p.Compress.Registry.LoadDescriptors(descs)

	spec := job.Spec{
		InputPath:         input,
		OutputDir:         filepath.Join(dir, "out"),
		CompressionMethod: job.CompressionUPX,
	}
	report := p.Run(context.Background(), spec)

	require.False(t, report.Success)
	require.NotNil(t, report.Compress)
	require.False(t, report.Compress.Success)

	_, statErr := os.Stat(artifact + ".backup")
	require.True(t, os.IsNotExist(statErr))

	contents, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Equal(t, "compiled-binary-contents", string(contents))
}

func TestRunMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, "", "", "", "", "", "")

	spec := job.Spec{InputPath: filepath.Join(dir, "missing.py"), OutputDir: dir}
	report := p.Run(context.Background(), spec)

	require.False(t, report.Success)
	require.Nil(t, report.Compile)
}

func TestRunProtectRecordsProtectedPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(input, []byte("print('hi')\n"), 0o644))
	artifact := filepath.Join(dir, "out", "main")
	protectedOut := filepath.Join(dir, "main.protected.py")

	compileTool := testutil.FakeToolWithOutputFile(t, 0, artifact, "compiled-binary")
	protectTool := testutil.FakeToolWithOutputFile(t, 0, protectedOut, "protected-source")
	p := newTestPipeline(t, compileTool, "", protectTool, artifact, "", protectedOut)

	spec := job.Spec{
		InputPath:       input,
		OutputDir:       filepath.Join(dir, "out"),
		ProtectionLevel: job.ProtectionBasic,
	}
	report := p.Run(context.Background(), spec)

	require.True(t, report.Success)
	require.NotNil(t, report.Protect)
	require.True(t, report.Protect.Success)
	require.Equal(t, protectedOut, report.Protect.Protected[input])
}

func TestEffectiveObfuscationDerivesFromProtectionLevel(t *testing.T) {
	cases := []struct {
		level job.ProtectionLevel
		want  job.ObfuscationFlags
	}{
		{job.ProtectionNone, job.ObfuscationFlags{}},
		{job.ProtectionBasic, job.ObfuscationFlags{BytecodeEncr: true}},
		{job.ProtectionIntermediate, job.ObfuscationFlags{Names: true, Strings: true}},
		{job.ProtectionAdvanced, job.ObfuscationFlags{Names: true, Strings: true, ControlFlow: true}},
		{job.ProtectionMaximum, job.ObfuscationFlags{Names: true, Strings: true, ControlFlow: true, BytecodeEncr: true}},
	}
	for _, tc := range cases {
		got := effectiveObfuscation(job.Spec{ProtectionLevel: tc.level})
		require.Equal(t, tc.want, got, "level %s", tc.level)
	}
}

func TestEffectiveObfuscationPreservesExplicitOverride(t *testing.T) {
	got := effectiveObfuscation(job.Spec{
		ProtectionLevel: job.ProtectionIntermediate,
		Obfuscation:     job.ObfuscationFlags{AntiDebug: true},
	})
	require.Equal(t, job.ObfuscationFlags{Names: true, Strings: true, AntiDebug: true}, got)
}

func TestRunProtectAdvancedEnablesControlFlowPass(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(input, []byte("print('hi')\n"), 0o644))
	artifact := filepath.Join(dir, "out", "main")
	protectedOut := filepath.Join(dir, "main.protected.py")

	compileTool := testutil.FakeToolWithOutputFile(t, 0, artifact, "compiled-binary")
	protectTool := testutil.FakeToolWithOutputFile(t, 0, protectedOut, "protected-source")
	p := newTestPipeline(t, compileTool, "", protectTool, artifact, "", protectedOut)
	// "advanced" routes the protect stage to the self-obfuscator, so wire
	// that name to the scripted tool in place of the bytecode-encryptor.
	p.Protect.Backends = map[string]scheduler.Backend{"self-obfuscator": fakeBackend{name: "self-obfuscator", outputPath: protectedOut}}
	descs := []registry.Descriptor{{Kind: registry.KindProtector, Name: "self-obfuscator", Path: protectTool, Available: true}}
	descs = append(descs, p.Compile.Registry.ByKind(registry.KindCompiler)...)
	p.Protect.Registry.LoadDescriptors(descs)

	spec := job.Spec{
		InputPath:       input,
		OutputDir:       filepath.Join(dir, "out"),
		ProtectionLevel: job.ProtectionAdvanced,
	}
	report := p.Run(context.Background(), spec)

	require.True(t, report.Success)
	require.NotNil(t, report.Protect)
	require.True(t, report.Protect.Success)
	// effectiveObfuscation must turn on names+strings+control-flow for
	// "advanced" even though the caller never set spec.Obfuscation directly.
	want := job.ObfuscationFlags{Names: true, Strings: true, ControlFlow: true}
	require.Equal(t, want, effectiveObfuscation(spec))
}
