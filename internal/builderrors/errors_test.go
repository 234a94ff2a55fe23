// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package builderrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildErrorUnwrap(t *testing.T) {
	underlying := errors.New("exit status 1")
	be := New(SubprocessFailure, "compile failed", underlying)

	require.ErrorIs(t, be, underlying)
	require.Equal(t, "compile failed: exit status 1", be.Error())
}

func TestBuildErrorWithoutUnderlying(t *testing.T) {
	be := New(InputNotFound, "entry file missing", nil)
	require.Equal(t, "entry file missing", be.Error())
	require.Nil(t, be.Unwrap())
}

func TestWithCauseAndFixAreImmutable(t *testing.T) {
	base := New(NoToolAvailable, "no compiler available", nil)
	withCause := base.WithCause("all backends unavailable")

	require.Empty(t, base.Cause)
	require.Equal(t, "all backends unavailable", withCause.Cause)

	withFix := withCause.WithFix("install pyinstaller")
	require.Empty(t, withCause.Fix)
	require.Equal(t, "install pyinstaller", withFix.Fix)
}

func TestIsMatchesKind(t *testing.T) {
	err := New(Timeout, "compress timed out", nil)
	require.True(t, Is(err, Timeout))
	require.False(t, Is(err, SubprocessFailure))
	require.False(t, Is(errors.New("plain error"), Timeout))
}
