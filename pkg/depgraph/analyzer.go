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

package depgraph

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nativeforge/forge/internal/builderrors"
)

const resolveTimeout = 5 * time.Second

// Analyzer computes the Dependency Analyzer's merged, classified,
// cycle-checked graph for one entry program.
type Analyzer struct {
	Interpreter string // used for both classification queries and the dynamic pass
	Resolver    Resolver
	Logger      *slog.Logger

	// SkipDynamic disables the instrumented subprocess pass, e.g. in
	// tests or for entry programs with side effects unsafe to trigger.
	SkipDynamic bool
}

// NewAnalyzer returns an Analyzer using sensible defaults: the python3
// interpreter, a HostResolver backed by it, and slog.Default().
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		Interpreter: "python3",
		Resolver:    NewHostResolver("python3"),
		Logger:      logger,
	}
}

// Analyze computes the merged dependency graph for entryPath.
func (a *Analyzer) Analyze(ctx context.Context, entryPath string) (*Result, *builderrors.BuildError) {
	if _, err := os.Stat(entryPath); err != nil {
		return nil, builderrors.New(builderrors.InputNotFound, "entry file not found", err)
	}

	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	entryName := entrySyntheticName(entryPath)
	logger.Info("analyzer.start", "entry", entryPath)

	g := newGraph(entryName)
	g.node(entryName)

	sp := newStaticPass(logger, g)
	staticWarnings := sp.run(ctx, entryName, entryPath)

	var dynamicWarnings []Warning
	if !a.SkipDynamic {
		dynamicModules, warnings := runDynamicPass(ctx, a.Interpreter, entryPath, logger)
		dynamicWarnings = warnings
		for m := range dynamicModules {
			g.addEdge(entryName, m)
		}
	}

	resolver := a.Resolver
	if resolver == nil {
		resolver = NewHostResolver(a.Interpreter)
	}
	classify(g, resolver)
	addReverseEdges(g)
	estimateSizes(g)

	cycles := detectCycles(g)
	suggestions := buildSuggestions(g)

	warnings := append(staticWarnings, dynamicWarnings...)
	logger.Info("analyzer.done", "entry", entryPath, "nodes", len(g.Nodes), "cycles", len(cycles))

	return &Result{
		Graph:       g,
		Cycles:      cycles,
		Suggestions: suggestions,
		Warnings:    warnings,
	}, nil
}

// entrySyntheticName derives the entry module's graph key from its
// file path: the base name without extension.
func entrySyntheticName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
