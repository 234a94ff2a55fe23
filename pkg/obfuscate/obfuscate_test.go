// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/stretchr/testify/require"
)

const sampleSource = `def greet(name):
    message = "hello there friend"
    if name == "world":
        print(message)
    for i in range(3):
        print(i)
    return message
`

func parsesCleanly(t *testing.T, src []byte) bool {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)
	defer tree.Close()
	return !tree.RootNode().HasError()
}

func TestApplyNamesProducesValidSyntax(t *testing.T) {
	out, err := Apply([]byte(sampleSource), Options{Names: true})
	require.NoError(t, err)
	require.True(t, parsesCleanly(t, out))
	require.NotContains(t, string(out), "greet")
}

func TestApplyStringsEncodesLongLiterals(t *testing.T) {
	out, err := Apply([]byte(sampleSource), Options{Strings: true})
	require.NoError(t, err)
	require.True(t, parsesCleanly(t, out))
	require.Contains(t, string(out), "__forge_decode(")
	require.NotContains(t, string(out), "hello there friend")
}

func TestApplyControlFlowProducesValidSyntax(t *testing.T) {
	out, err := Apply([]byte(sampleSource), Options{
		ControlFlow:             true,
		ControlFlowSeed:         7,
		IfTautologyProbability:  1.0,
		ForWrapProbability:      1.0,
	})
	require.NoError(t, err)
	require.True(t, parsesCleanly(t, out))
	require.Contains(t, string(out), "and (1 == 1)")
	require.Contains(t, string(out), "__forge_noise_")
}

func TestApplyAntiDebugPrependsShim(t *testing.T) {
	out, err := Apply([]byte(sampleSource), Options{AntiDebug: true})
	require.NoError(t, err)
	require.True(t, parsesCleanly(t, out))
	require.Contains(t, string(out), "__forge_antidebug_check")
}

func TestApplyAllPassesIsIdempotentOnSyntax(t *testing.T) {
	opts := Options{
		Names:                  true,
		Strings:                true,
		ControlFlow:            true,
		AntiDebug:              true,
		IfTautologyProbability: 1.0,
		ForWrapProbability:     1.0,
	}

	first, err := Apply([]byte(sampleSource), opts)
	require.NoError(t, err)
	require.True(t, parsesCleanly(t, first))

	second, err := Apply(first, opts)
	require.NoError(t, err)
	require.True(t, parsesCleanly(t, second))
}
