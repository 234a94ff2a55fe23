// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"math/rand"

	sitter "github.com/smacker/go-tree-sitter"
)

// pythonKeywords is never renamed; dunder names (__init__, __main__,
// ...) are excluded separately since they carry host-interpreter
// meaning.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
	"self": true, "cls": true,
}

const nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// nameGenerator hands out fresh underscore-prefixed 8-character
// identifiers and remembers every mapping so repeated occurrences of
// the same original name stay consistent within one pass.
type nameGenerator struct {
	rng     *rand.Rand
	mapping map[string]string
	used    map[string]bool
}

func newNameGenerator(seed int64) *nameGenerator {
	return &nameGenerator{
		rng:     rand.New(rand.NewSource(seed)),
		mapping: make(map[string]string),
		used:    make(map[string]bool),
	}
}

func (g *nameGenerator) rename(original string) string {
	if fresh, ok := g.mapping[original]; ok {
		return fresh
	}
	var fresh string
	for {
		fresh = "_" + g.randomSuffix(8)
		if !g.used[fresh] {
			break
		}
	}
	g.used[fresh] = true
	g.mapping[original] = fresh
	return fresh
}

func (g *nameGenerator) randomSuffix(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = nameAlphabet[g.rng.Intn(len(nameAlphabet))]
	}
	return string(buf)
}

func isRenamable(name string) bool {
	if name == "" || pythonKeywords[name] {
		return false
	}
	if len(name) >= 4 && name[:2] == "__" && name[len(name)-2:] == "__" {
		return false // dunder
	}
	return true
}

// rewriteNames replaces every non-dunder function name, class name, and
// stored local identifier with a fresh name from gen, consistently
// across occurrences.
func rewriteNames(src []byte, seed int64) ([]byte, error) {
	tree, root, err := parsePython(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	gen := newNameGenerator(seed)
	var edits []edit

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition", "class_definition":
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				collectRename(nameNode, src, gen, &edits)
			}
		case "assignment":
			if left := n.ChildByFieldName("left"); left != nil {
				collectAssignmentTargets(left, src, gen, &edits)
			}
		case "parameters":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				p := n.NamedChild(i)
				if p.Type() == "identifier" {
					collectRename(p, src, gen, &edits)
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	sortEditsByStart(edits)
	return splice(src, edits), nil
}

func collectRename(nameNode *sitter.Node, src []byte, gen *nameGenerator, edits *[]edit) {
	original := textOf(nameNode, src)
	if !isRenamable(original) {
		return
	}
	*edits = append(*edits, edit{
		start:       int(nameNode.StartByte()),
		end:         int(nameNode.EndByte()),
		replacement: gen.rename(original),
	})
}

func collectAssignmentTargets(left *sitter.Node, src []byte, gen *nameGenerator, edits *[]edit) {
	if left.Type() == "identifier" {
		collectRename(left, src, gen, edits)
		return
	}
	// Tuple/list unpacking targets: rename every identifier leaf.
	for i := 0; i < int(left.NamedChildCount()); i++ {
		child := left.NamedChild(i)
		if child.Type() == "identifier" {
			collectRename(child, src, gen, edits)
		}
	}
}

func sortEditsByStart(edits []edit) {
	for i := 1; i < len(edits); i++ {
		for j := i; j > 0 && edits[j-1].start > edits[j].start; j-- {
			edits[j-1], edits[j] = edits[j], edits[j-1]
		}
	}
}
