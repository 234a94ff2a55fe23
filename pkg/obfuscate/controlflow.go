// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"math/rand"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// injectControlFlowNoise conjoins if-predicates with a tautology and
// wraps for-loops in a one-iteration outer loop, each independently at
// the given probability. The draws are seeded so tests are
// reproducible: the same seed and source always produce the same
// rewrite.
func injectControlFlowNoise(src []byte, seed int64, ifProb, forProb float64) ([]byte, error) {
	tree, root, err := parsePython(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	rng := rand.New(rand.NewSource(seed))
	var edits []edit
	noiseCounter := 0

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "if_statement":
			if rng.Float64() < ifProb {
				if cond := n.ChildByFieldName("condition"); cond != nil {
					edits = append(edits, edit{
						start:       int(cond.EndByte()),
						end:         int(cond.EndByte()),
						replacement: " and (1 == 1)",
					})
				}
			}
		case "for_statement":
			if rng.Float64() < forProb {
				noiseCounter++
				edits = append(edits, wrapForLoop(n, src, noiseCounter))
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

// wrapForLoop builds a full-node replacement that nests n's text one
// level deeper under a synthetic single-iteration for loop, preserving
// n's original column so the result stays correctly indented.
func wrapForLoop(n *sitter.Node, src []byte, counter int) edit {
	col := columnOf(src, int(n.StartByte()))
	text := textOf(n, src)
	lines := strings.Split(text, "\n")

	var body strings.Builder
	body.WriteString(strings.Repeat(" ", col))
	body.WriteString("    ")
	body.WriteString(lines[0])
	for _, line := range lines[1:] {
		body.WriteString("\n    ")
		body.WriteString(line)
	}

	var out strings.Builder
	out.WriteString("for __forge_noise_")
	out.WriteString(strconv.Itoa(counter))
	out.WriteString(" in range(1):\n")
	out.WriteString(body.String())

	return edit{start: int(n.StartByte()), end: int(n.EndByte()), replacement: out.String()}
}

// columnOf returns the zero-based column of byte offset pos, scanning
// backward to the preceding newline (or start of file).
func columnOf(src []byte, pos int) int {
	col := 0
	for i := pos - 1; i >= 0 && src[i] != '\n'; i-- {
		col++
	}
	return col
}
