// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONToPrettyPrints(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONTo(&buf, sample{Name: "forge", Count: 3}))
	require.Contains(t, buf.String(), "\n  \"name\": \"forge\"")
}

func TestJSONCompactToIsSingleLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONCompactTo(&buf, sample{Name: "forge", Count: 3}))
	require.Equal(t, "{\"name\":\"forge\",\"count\":3}\n", buf.String())
}

func TestJSONErrorToWrapsMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONErrorTo(&buf, errors.New("no tool available")))
	require.Contains(t, buf.String(), "\"error\": \"no tool available\"")
}
