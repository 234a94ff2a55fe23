// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

// classify resolves and tags every node in g using resolver. The entry
// node is marked Local without consulting resolver, since the entry
// file is never resolved against the host's module index.
func classify(g *Graph, resolver Resolver) {
	for name, node := range g.Nodes {
		if name == g.EntryName {
			node.Classification = Local
			continue
		}
		info, err := resolver.Resolve(name)
		if err != nil || info.Classification == "" {
			node.Classification = Unresolved
			continue
		}
		node.Classification = info.Classification
		node.Path = info.Path
		node.Version = info.Version
	}
}

// addReverseEdges walks the child map once and, for every edge
// parent->child, inserts parent into child's RequiredBy set.
func addReverseEdges(g *Graph) {
	for parentName, parent := range g.Nodes {
		for child := range parent.SubDependencies {
			g.node(child).RequiredBy[parentName] = true
		}
	}
}
