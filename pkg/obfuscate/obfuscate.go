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

// Package obfuscate implements the self-obfuscator's four source-level
// AST transforms: identifier rewriting, string literal encoding,
// control-flow noise injection, and an anti-debug prelude. Each pass
// parses its input (the previous pass's output) with Tree-sitter,
// collects byte-range edits from a tree walk, and splices them into a
// new buffer, so every pass produces syntactically valid source and the
// whole chain, fed its own output, again produces source that parses.
// A second run is not a no-op: it encodes and prepends once more.
package obfuscate

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Options selects which passes Apply runs and seeds their randomness.
type Options struct {
	Names       bool
	Strings     bool
	ControlFlow bool
	AntiDebug   bool

	// NameSeed seeds the fresh-identifier generator. Zero uses a fixed
	// default so tests are reproducible without passing a seed.
	NameSeed int64

	// ControlFlowSeed seeds the per-statement probability draws for the
	// control-flow noise pass. Zero uses a fixed default.
	ControlFlowSeed int64

	// IfTautologyProbability and ForWrapProbability override the
	// control-flow pass's default 0.3 / 0.2 draw probabilities; zero
	// means use the default.
	IfTautologyProbability float64
	ForWrapProbability      float64
}

const (
	defaultNameSeed        int64   = 1
	defaultControlFlowSeed int64   = 1
	defaultIfProbability   float64 = 0.3
	defaultForProbability  float64 = 0.2
)

// Apply runs the selected passes over src in the fixed order: names,
// then strings, then control-flow noise, then the anti-debug prelude.
// Each pass's output feeds the next, so later passes see earlier
// passes' rewrites.
func Apply(src []byte, opts Options) ([]byte, error) {
	out := src

	if opts.Names {
		rewritten, err := rewriteNames(out, seedOr(opts.NameSeed, defaultNameSeed))
		if err != nil {
			return nil, err
		}
		out = rewritten
	}

	if opts.Strings {
		rewritten, err := encodeStrings(out)
		if err != nil {
			return nil, err
		}
		out = rewritten
	}

	if opts.ControlFlow {
		ifProb := opts.IfTautologyProbability
		if ifProb == 0 {
			ifProb = defaultIfProbability
		}
		forProb := opts.ForWrapProbability
		if forProb == 0 {
			forProb = defaultForProbability
		}
		rewritten, err := injectControlFlowNoise(out, seedOr(opts.ControlFlowSeed, defaultControlFlowSeed), ifProb, forProb)
		if err != nil {
			return nil, err
		}
		out = rewritten
	}

	if opts.AntiDebug {
		out = prependAntiDebugShim(out)
	}

	return out, nil
}

func seedOr(seed, fallback int64) int64 {
	if seed == 0 {
		return fallback
	}
	return seed
}

// parsePython parses src and returns its root node alongside the tree,
// whose Close the caller must defer.
func parsePython(src []byte) (*sitter.Tree, *sitter.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, nil, err
	}
	return tree, tree.RootNode(), nil
}

// edit is a byte-range replacement collected during a tree walk.
type edit struct {
	start, end int
	replacement string
}

// splice applies non-overlapping edits (sorted by start) to src,
// copying unchanged regions verbatim.
func splice(src []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return append([]byte(nil), src...)
	}

	out := make([]byte, 0, len(src))
	cursor := 0
	for _, e := range edits {
		if e.start < cursor {
			continue // overlapping edit from a nested match, skip
		}
		out = append(out, src[cursor:e.start]...)
		out = append(out, e.replacement...)
		cursor = e.end
	}
	out = append(out, src[cursor:]...)
	return out
}

func textOf(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}
