// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// staticPass walks the entry file and every local file it imports,
// recording every top-level module referenced by plain imports,
// from-imports (the package root, not the leaf), literal __import__
// calls, and literal importlib.import_module calls. A per-run visited
// set prevents re-entering the same file.
type staticPass struct {
	parser  *sitter.Parser
	logger  *slog.Logger
	visited map[string]bool
	graph   *Graph
	warnings []Warning
}

func newStaticPass(logger *slog.Logger, graph *Graph) *staticPass {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &staticPass{
		parser:  parser,
		logger:  logger,
		visited: make(map[string]bool),
		graph:   graph,
	}
}

// run parses entryPath (recorded under entryName in the graph) and
// recurses into any locally-resolvable import.
func (s *staticPass) run(ctx context.Context, entryName, entryPath string) []Warning {
	s.walkFile(ctx, entryName, entryPath)
	return s.warnings
}

func (s *staticPass) walkFile(ctx context.Context, moduleName, path string) {
	if s.visited[path] {
		return
	}
	s.visited[path] = true

	content, err := os.ReadFile(path)
	if err != nil {
		s.warnings = append(s.warnings, Warning{Source: "static", Path: path, Message: err.Error()})
		return
	}

	tree, err := s.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		s.logger.Warn("analyzer.static.parse_error", "path", path, "err", err)
		s.warnings = append(s.warnings, Warning{Source: "static", Path: path, Message: err.Error()})
		return
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		s.logger.Warn("analyzer.static.syntax_errors", "path", path)
	}

	imports := extractImports(root, content)
	dir := filepath.Dir(path)

	for _, imp := range imports {
		s.graph.addEdge(moduleName, imp)
		if childPath, ok := resolveLocalImport(dir, imp); ok {
			s.walkFile(ctx, imp, childPath)
		}
	}
}

// extractImports walks the root node collecting the package-root name
// for every import_statement, import_from_statement, and literal
// __import__/importlib.import_module call.
func extractImports(root *sitter.Node, content []byte) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				out = append(out, packageRoot(textOf(n.NamedChild(i), content)))
			}
		case "import_from_statement":
			if mod := n.ChildByFieldName("module_name"); mod != nil {
				out = append(out, packageRoot(textOf(mod, content)))
			}
		case "call":
			if fn := n.ChildByFieldName("function"); fn != nil {
				name := textOf(fn, content)
				if name == "__import__" || name == "importlib.import_module" {
					if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
						lit := textOf(args.NamedChild(0), content)
						out = append(out, packageRoot(trimQuotes(lit)))
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

func textOf(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// packageRoot reduces "a.b.c" or "a.b.c as d" to "a".
func packageRoot(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		switch dotted[i] {
		case '.', ' ':
			return dotted[:i]
		}
	}
	return dotted
}

// resolveLocalImport follows the spec's local-resolution rule: a name
// resolves locally if it names a file next to the current source or
// one directory up.
func resolveLocalImport(dir, name string) (string, bool) {
	candidates := []string{
		filepath.Join(dir, name+".py"),
		filepath.Join(dir, "..", name+".py"),
		filepath.Join(dir, name, "__init__.py"),
		filepath.Join(dir, "..", name, "__init__.py"),
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, true
		}
	}
	return "", false
}
