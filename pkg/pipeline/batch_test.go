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
	"github.com/nativeforge/forge/pkg/scheduler"
)

func TestRunBatchReturnsReportForEveryJob(t *testing.T) {
	dir := t.TempDir()
	batchSpecs := make([]job.Spec, 0, 5)
	for i := 0; i < 5; i++ {
		sub := filepath.Join(dir, string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(sub, 0o755))
		input := filepath.Join(sub, "main.py")
		require.NoError(t, os.WriteFile(input, []byte("print('hi')\n"), 0o644))
		batchSpecs = append(batchSpecs, job.Spec{
			ID:        "job-" + string(rune('a'+i)),
			InputPath: input,
			OutputDir: filepath.Join(sub, "out"),
		})
	}

	// The fake backend locates its artifact under the job's own output
	// directory rather than a fixed path, so one shared Pipeline serves
	// every job in the batch even though each writes to its own
	// directory; the tool itself only needs to exit zero.
	compileTool := testutil.FakeTool(t, 0, "", "")
	p := newTestPipeline(t, compileTool, "", "", "", "", "")
	p.Compile.Backends["pyinstaller"] = perJobLocateBackend{}

	reports, err := RunBatch(context.Background(), p, batchSpecs, 2)
	require.NoError(t, err)
	require.Len(t, reports, 5)
	for _, r := range reports {
		require.NotNil(t, r)
	}
}

// perJobLocateBackend locates its artifact under the job's own output
// directory; its tool never actually creates the file, so the compile
// stage is expected to report ArtifactNotFound for every job here. The
// point of this test is RunBatch's fan-out and accounting, not a
// successful compile.
type perJobLocateBackend struct{}

func (perJobLocateBackend) Name() string                                    { return "pyinstaller" }
func (perJobLocateBackend) Score(job.Spec, scheduler.InputInfo) int          { return 90 }
func (perJobLocateBackend) BuildArgs(job.Spec, scheduler.InputInfo) []string { return nil }
func (perJobLocateBackend) Locate(spec job.Spec, input scheduler.InputInfo) []string {
	return []string{filepath.Join(spec.OutputDir, spec.Name())}
}

func TestRunBatchDetectsOutputCollision(t *testing.T) {
	dir := t.TempDir()
	input1 := filepath.Join(dir, "a.py")
	input2 := filepath.Join(dir, "b.py")
	require.NoError(t, os.WriteFile(input1, []byte("print(1)\n"), 0o644))
	require.NoError(t, os.WriteFile(input2, []byte("print(2)\n"), 0o644))

	specs := []job.Spec{
		{ID: "1", InputPath: input1, OutputDir: dir, ArtifactName: "same"},
		{ID: "2", InputPath: input2, OutputDir: dir, ArtifactName: "same"},
	}

	p := newTestPipeline(t, "", "", "", "", "", "")
	_, err := RunBatch(context.Background(), p, specs, 2)
	require.Error(t, err)

	var collisionErr *CollisionError
	require.ErrorAs(t, err, &collisionErr)
}

func TestRunBatchStopsSubmittingAfterFirstErrorWhenRequested(t *testing.T) {
	dir := t.TempDir()
	failingInput := filepath.Join(dir, "fail.py")
	require.NoError(t, os.WriteFile(failingInput, []byte("print(1)\n"), 0o644))

	failTool := testutil.FakeTool(t, 1, "", "boom")
	p := newTestPipeline(t, failTool, "", "", filepath.Join(dir, "out", "fail"), "", "")

	specs := []job.Spec{
		{ID: "fail", InputPath: failingInput, OutputDir: filepath.Join(dir, "out"), StopOnFirstError: true},
		{ID: "second", InputPath: failingInput, OutputDir: filepath.Join(dir, "out"), ArtifactName: "second"},
	}

	// With one worker the second job starts only after the first has
	// failed and set the pool draining, so it is never run.
	reports, err := RunBatch(context.Background(), p, specs, 1)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.False(t, reports[0].Success)
	require.Nil(t, reports[1])
}
