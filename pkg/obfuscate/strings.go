// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"encoding/base64"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const minEncodedStringLen = 3

// encodeStrings replaces every literal string longer than
// minEncodedStringLen characters with a call that decodes its base64
// encoding at runtime. F-strings and byte-strings are left untouched:
// rewriting their contents would change interpolation or encoding
// semantics, not just obscure them.
func encodeStrings(src []byte) ([]byte, error) {
	tree, root, err := parsePython(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var edits []edit
	needsHelper := false

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "string" && isPlainString(n, src) {
			raw := textOf(n, src)
			inner, ok := stripQuotes(raw)
			if ok && len(inner) > minEncodedStringLen {
				encoded := base64.StdEncoding.EncodeToString([]byte(inner))
				edits = append(edits, edit{
					start:       int(n.StartByte()),
					end:         int(n.EndByte()),
					replacement: `__forge_decode("` + encoded + `")`,
				})
				needsHelper = true
			}
			return // do not descend into a string's own children
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	sortEditsByStart(edits)
	out := splice(src, edits)
	if needsHelper {
		out = append([]byte(stringHelperPrelude), out...)
	}
	return out, nil
}

const stringHelperPrelude = "import base64 as __forge_b64\n\n\ndef __forge_decode(s):\n    return __forge_b64.b64decode(s).decode()\n\n\n"

// isPlainString rejects f-strings and byte-strings by checking the
// node's preceding prefix characters in source, since the grammar
// models both as "string" nodes distinguished only by a prefix token.
func isPlainString(n *sitter.Node, src []byte) bool {
	// The grammar folds any prefix letters (r, b, f, u in any case
	// combination) into the string node itself, preceding the quote.
	text := textOf(n, src)
	prefixEnd := 0
	for prefixEnd < len(text) && text[prefixEnd] != '"' && text[prefixEnd] != '\'' {
		prefixEnd++
	}
	prefix := strings.ToLower(text[:prefixEnd])
	return !strings.ContainsAny(prefix, "fb")
}

// stripQuotes removes a leading/trailing triple or single quote run
// from a string node's literal text, returning its inner content.
func stripQuotes(raw string) (string, bool) {
	prefixEnd := 0
	for prefixEnd < len(raw) && raw[prefixEnd] != '"' && raw[prefixEnd] != '\'' {
		prefixEnd++
	}
	body := raw[prefixEnd:]

	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(body, q) && strings.HasSuffix(body, q) && len(body) >= 2*len(q) {
			return body[len(q) : len(body)-len(q)], true
		}
	}
	return "", false
}
