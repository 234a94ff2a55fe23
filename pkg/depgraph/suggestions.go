// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

import "sort"

// DefaultExcludes lists modules that are safe to drop from a compiled
// artifact in the common case: test harnesses, GUI toolkits, email/XML
// libraries, and REPL helpers. A Job's own exclusion list is additive
// to this, not a replacement.
var DefaultExcludes = map[string]bool{
	"unittest":  true,
	"pytest":    true,
	"doctest":   true,
	"tkinter":   true,
	"turtle":    true,
	"email":     true,
	"xml":       true,
	"xmlrpc":    true,
	"pdb":       true,
	"code":      true,
	"idlelib":   true,
	"lib2to3":   true,
	"ensurepip": true,
}

// buildSuggestions derives the optimization view: modules present in
// the default-exclusion list, the top-10 largest dependencies by
// estimated size, and total excludable bytes.
func buildSuggestions(g *Graph) OptimizationSuggestions {
	var excludable []string
	var totalExcludable int64

	all := make([]Node, 0, len(g.Nodes))
	for name, node := range g.Nodes {
		all = append(all, *node)
		if DefaultExcludes[name] {
			excludable = append(excludable, name)
			totalExcludable += node.SizeBytes
		}
	}
	sort.Strings(excludable)

	sort.Slice(all, func(i, j int) bool {
		if all[i].SizeBytes != all[j].SizeBytes {
			return all[i].SizeBytes > all[j].SizeBytes
		}
		return all[i].Name < all[j].Name
	})
	top := all
	if len(top) > 10 {
		top = top[:10]
	}

	return OptimizationSuggestions{
		ExcludableModules:    excludable,
		TopLargest:           top,
		TotalExcludableBytes: totalExcludable,
	}
}
