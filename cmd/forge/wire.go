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

// Package main implements the forge CLI: a thin wrapper over the core
// orchestration packages (registry, depgraph, scheduler, pipeline).
// This file owns default wiring only; no orchestration logic lives in
// cmd/forge itself.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nativeforge/forge/internal/config"
	"github.com/nativeforge/forge/internal/regcache"
	"github.com/nativeforge/forge/pkg/depgraph"
	"github.com/nativeforge/forge/pkg/pipeline"
	"github.com/nativeforge/forge/pkg/registry"
	"github.com/nativeforge/forge/pkg/scheduler"
)

// registryCacheMaxAge bounds how long a cached registry snapshot is
// trusted before the CLI re-probes every tool.
const registryCacheMaxAge = 24 * time.Hour

// defaultProbes enumerates every tool the core packages know how to
// drive, across all three stage kinds.
func defaultProbes(toolPaths map[string]string) []registry.Probe {
	return []registry.Probe{
		{Kind: registry.KindCompiler, Name: "pyinstaller", PathOverride: toolPaths["pyinstaller"]},
		{Kind: registry.KindCompiler, Name: "nuitka", PathOverride: toolPaths["nuitka"]},
		{Kind: registry.KindCompiler, Name: "cx-freeze", PathOverride: toolPaths["cx-freeze"]},

		{Kind: registry.KindCompressor, Name: "upx", PathOverride: toolPaths["upx"]},
		{Kind: registry.KindCompressor, Name: "lzma", Builtin: true},
		{Kind: registry.KindCompressor, Name: "brotli", Builtin: true},
		{Kind: registry.KindCompressor, Name: "adaptive", Builtin: true},

		{Kind: registry.KindProtector, Name: "external-obfuscator", PathOverride: toolPaths["external-obfuscator"]},
		{Kind: registry.KindProtector, Name: "self-obfuscator", Builtin: true},
		{Kind: registry.KindProtector, Name: "bytecode-encryptor", Builtin: true},
	}
}

// buildRegistry constructs a Registry and populates it via Discover,
// consulting the on-disk cache first so a warm CLI invocation skips
// re-probing tools that answered recently.
func buildRegistry(ctx context.Context, defaults config.JobDefaults, logger *slog.Logger) *registry.Registry {
	reg := registry.New(logger)

	cachePath := regcache.DefaultPath()
	snap, err := regcache.Load(cachePath, logger)
	if err == nil && !snap.Stale(registryCacheMaxAge) && len(snap.Entries) > 0 {
		logger.Debug("forge.registry.cache_hit", "path", cachePath, "entries", len(snap.Entries))
		reg.LoadDescriptors(descriptorsFromCache(snap.Entries))
		return reg
	}

	probes := defaultProbes(defaults.ToolPaths)
	reg.Discover(ctx, probes)

	entries := make([]regcache.Entry, 0)
	for _, kind := range []registry.Kind{registry.KindCompiler, registry.KindCompressor, registry.KindProtector} {
		for _, d := range reg.ByKind(kind) {
			entries = append(entries, regcache.Entry{
				Kind: string(d.Kind), Name: d.Name, Path: d.Path, Version: d.Version, Available: d.Available,
			})
		}
	}
	if err := regcache.Save(cachePath, regcache.Snapshot{ProbedAt: time.Now(), Entries: entries}, logger); err != nil {
		logger.Warn("forge.registry.cache_save_failed", "err", err)
	}

	return reg
}

func descriptorsFromCache(entries []regcache.Entry) []registry.Descriptor {
	out := make([]registry.Descriptor, len(entries))
	for i, e := range entries {
		out[i] = registry.Descriptor{
			Kind: registry.Kind(e.Kind), Name: e.Name, Path: e.Path, Version: e.Version, Available: e.Available,
		}
	}
	return out
}

// buildPipeline wires a full Pipeline from a populated Registry
// (freshly probed or loaded from the cache): one Scheduler per stage kind, each loaded with every
// backend this binary knows how to drive, plus a Dependency Analyzer.
func buildPipeline(reg *registry.Registry, logger *slog.Logger) *pipeline.Pipeline {
	compileSched := scheduler.New(registry.KindCompiler, reg, scheduler.DefaultCompileBackends(), logger)
	compressSched := scheduler.New(registry.KindCompressor, reg, scheduler.DefaultCompressBackends(), logger)
	protectSched := scheduler.New(registry.KindProtector, reg, scheduler.DefaultProtectBackends(os.Getenv("FORGE_PASSPHRASE")), logger)
	analyzer := depgraph.NewAnalyzer(logger)

	return pipeline.New(compileSched, compressSched, protectSched, analyzer, logger)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, so an
// interrupted run reaches the Pipeline's own cancellation handling
// (e.g. the compress stage's rollback-on-cancel path) instead of the
// process dying mid-stage with a half-written artifact.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		logger.Info("forge.shutdown.signal", "signal", sig.String())
		cancel()
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		close(sigCh)
		cancel()
	}
}

// newLogger builds the structured logger every forge subcommand shares,
// writing to stderr so stdout stays free for --json payloads.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
