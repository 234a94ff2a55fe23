// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultBuiltinSize    = 1 << 10  // 1 KiB
	defaultThirdPartySize = 50 << 10 // 50 KiB
	defaultLocalSize      = 5 << 10  // 5 KiB

	sizeWalkMaxDepth = 2
)

// estimateSizes fills SizeBytes on every node: nodes with a resolved
// path ending in a package's __init__ file get a depth-capped recursive
// directory sum; other resolved paths use the file's own size;
// unresolved paths fall back to per-classification defaults.
func estimateSizes(g *Graph) {
	for _, node := range g.Nodes {
		node.SizeBytes = estimateNodeSize(node)
	}
}

func estimateNodeSize(node *Node) int64 {
	if node.Path == "" {
		return defaultSizeFor(node.Classification)
	}

	if isPackageInit(node.Path) {
		return dirSizeCapped(filepath.Dir(node.Path), sizeWalkMaxDepth)
	}

	if fi, err := os.Stat(node.Path); err == nil && !fi.IsDir() {
		return fi.Size()
	}
	return defaultSizeFor(node.Classification)
}

func isPackageInit(path string) bool {
	base := filepath.Base(path)
	return base == "__init__.py" || strings.HasPrefix(base, "__init__.")
}

func defaultSizeFor(c Classification) int64 {
	switch c {
	case Builtin:
		return defaultBuiltinSize
	case ThirdParty:
		return defaultThirdPartySize
	case Local:
		return defaultLocalSize
	default:
		return 0
	}
}

// dirSizeCapped sums file sizes under dir, recursing at most depth
// levels (depth 0 = dir's own immediate files only).
func dirSizeCapped(dir string, depth int) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	var total int64
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if depth > 0 {
				total += dirSizeCapped(full, depth-1)
			}
			continue
		}
		if fi, err := e.Info(); err == nil {
			total += fi.Size()
		}
	}
	return total
}
