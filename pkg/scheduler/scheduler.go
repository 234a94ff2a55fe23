// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package scheduler implements the Stage Scheduler: given a job and a
// set of candidate tools of one kind, it scores each candidate, picks
// the highest, invokes it as a subprocess, and normalizes the result.
// One Scheduler instance exists per stage kind; all share this contract.
package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/nativeforge/forge/internal/builderrors"
	"github.com/nativeforge/forge/internal/metrics"
	"github.com/nativeforge/forge/pkg/job"
	"github.com/nativeforge/forge/pkg/registry"
)

// InputInfo is the file-level context a scoring function needs about
// the stage's input, computed once by the caller and passed to every
// candidate so scoring stays a pure, side-effect-free function.
type InputInfo struct {
	Path        string
	SizeBytes   int64
	IsPE        bool
	IsExecutable bool
	Extension   string
}

// Backend is one concrete tool adapter: it knows its own scoring rule,
// its own command-line grammar, and its own output-location convention.
type Backend interface {
	// Name must match the registry Descriptor.Name this backend adapts.
	Name() string

	// Score is a pure function in [0,100]; the scheduler may call it
	// repeatedly and concurrently.
	Score(spec job.Spec, input InputInfo) int

	// BuildArgs renders the subprocess argument list from the job.
	BuildArgs(spec job.Spec, input InputInfo) []string

	// Locate returns candidate output paths in preference order; the
	// scheduler returns the first that exists on disk.
	Locate(spec job.Spec, input InputInfo) []string
}

// Invocation is everything the scheduler needs to run a selected
// backend: stage name (for metrics/logging), timeout, and working
// directory override (defaults to the input file's parent).
type Invocation struct {
	Stage   string
	Timeout time.Duration // zero means no timeout
	WorkDir string
}

// Outcome is the normalized result of one Run call: exit code, captured
// streams, wall time, located artifact, and byte size, prior to being
// packed into a job.CompileResult/CompressResult/ProtectResult by the
// caller (each stage's result shape differs, so Scheduler stays
// stage-agnostic and returns this common envelope).
type Outcome struct {
	ToolName     string
	Stdout       string
	Stderr       string
	ExitCode     int
	WallTime     time.Duration
	ArtifactPath string
	ByteSize     int64
}

// Scheduler selects and invokes a Backend for one stage kind.
type Scheduler struct {
	Kind     registry.Kind
	Registry *registry.Registry
	Backends map[string]Backend // by tool name
	Logger   *slog.Logger
}

// New constructs a Scheduler for kind, wiring backends by name.
func New(kind registry.Kind, reg *registry.Registry, backends []Backend, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}
	return &Scheduler{Kind: kind, Registry: reg, Backends: byName, Logger: logger}
}

// candidates returns the available descriptors for this scheduler's
// kind, filtered by the job's explicit preference if any, in the
// registry's stable alphabetical order.
func (s *Scheduler) candidates(spec job.Spec, preferred string) []registry.Descriptor {
	all := s.Registry.ByKind(s.Kind)
	var out []registry.Descriptor
	for _, d := range all {
		if !d.Available {
			continue
		}
		if _, ok := s.Backends[d.Name]; !ok {
			continue
		}
		if preferred != "" && d.Name != preferred {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Select scores every available candidate and returns the winning
// backend and descriptor. Ties are broken by the registry's
// alphabetical order, which candidates() already preserves.
func (s *Scheduler) Select(spec job.Spec, preferred string, input InputInfo) (Backend, registry.Descriptor, *builderrors.BuildError) {
	cands := s.candidates(spec, preferred)
	if len(cands) == 0 {
		return nil, registry.Descriptor{}, builderrors.New(builderrors.NoToolAvailable, "no candidate tool available for stage", nil)
	}

	type scored struct {
		backend Backend
		desc    registry.Descriptor
		score   int
	}
	var best *scored
	results := make([]scored, len(cands))
	for i, d := range cands {
		b := s.Backends[d.Name]
		results[i] = scored{backend: b, desc: d, score: b.Score(spec, input)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].desc.Name < results[j].desc.Name
	})
	best = &results[0]
	return best.backend, best.desc, nil
}

// InProcessRunner is implemented by backends that need no external
// executable (the adaptive compressor, the self-obfuscator): a
// "builtin" descriptor routes here instead of through a subprocess.
type InProcessRunner interface {
	RunInProcess(spec job.Spec, input InputInfo) (Outcome, *builderrors.BuildError)
}

// Run invokes backend per inv. Builtin backends implementing
// InProcessRunner run in-process; everything else is spawned as a
// subprocess, with streams captured and output located via the
// backend's own locator convention.
func (s *Scheduler) Run(ctx context.Context, backend Backend, desc registry.Descriptor, spec job.Spec, input InputInfo, inv Invocation) (Outcome, *builderrors.BuildError) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(inv.Stage, desc.Name).Observe(time.Since(start).Seconds())
	}()

	if desc.Path == "builtin" {
		if ipr, ok := backend.(InProcessRunner); ok {
			out, buildErr := ipr.RunInProcess(spec, input)
			out.WallTime = time.Since(start)
			return out, buildErr
		}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if inv.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	args := backend.BuildArgs(spec, input)
	cmd := exec.CommandContext(runCtx, desc.Path, args...)
	if inv.WorkDir != "" {
		cmd.Dir = inv.WorkDir
	} else {
		cmd.Dir = dirOf(input.Path)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	wall := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		s.Logger.Warn("scheduler.stage.timeout", "stage", inv.Stage, "tool", desc.Name)
		return Outcome{ToolName: desc.Name, Stdout: stdout.String(), Stderr: stderr.String(), WallTime: wall},
			builderrors.New(builderrors.Timeout, "stage timed out", runErr).WithCause(stderr.String())
	}
	if runErr != nil {
		s.Logger.Warn("scheduler.stage.failed", "stage", inv.Stage, "tool", desc.Name, "err", runErr)
		exitCode := -1
		if ee, ok := runErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return Outcome{ToolName: desc.Name, Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode, WallTime: wall},
			builderrors.New(builderrors.SubprocessFailure, "tool exited non-zero", runErr).WithCause(stderr.String())
	}

	for _, candidate := range backend.Locate(spec, input) {
		if fi, statErr := os.Stat(candidate); statErr == nil && !fi.IsDir() {
			s.Logger.Info("scheduler.stage.artifact", "stage", inv.Stage, "tool", desc.Name, "path", candidate)
			return Outcome{
				ToolName:     desc.Name,
				Stdout:       stdout.String(),
				Stderr:       stderr.String(),
				WallTime:     wall,
				ArtifactPath: candidate,
				ByteSize:     fi.Size(),
			}, nil
		}
	}

	return Outcome{ToolName: desc.Name, Stdout: stdout.String(), Stderr: stderr.String(), WallTime: wall},
		builderrors.New(builderrors.ArtifactNotFound, "tool exited zero but produced no located artifact", nil)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}
