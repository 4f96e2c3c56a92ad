// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

package env_test

import (
	"testing"

	"github.com/llnl/cram/env"
	cerrors "github.com/llnl/cram/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDecompressNilBaseIsChanged(t *testing.T) {
	out, err := env.Decompress(nil, nil, []string{"A", "B"}, []string{"1", "2"})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, out.Keys)
	require.Equal(t, []string{"1", "2"}, out.Values)
}

func TestDecompressNilBaseWithSubtractedIsInvalid(t *testing.T) {
	_, err := env.Decompress(nil, []string{"A"}, nil, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.InvalidDelta, ""))
}

func TestDecompressEmptyDeltaIsIdentity(t *testing.T) {
	base := &env.Environment{Keys: []string{"A", "B", "C"}, Values: []string{"1", "2", "3"}}
	out, err := env.Decompress(base, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, base.Keys, out.Keys)
	require.Equal(t, base.Values, out.Values)
}

func TestDecompressSubtractionAndChange(t *testing.T) {
	// A base environment with one subtraction, one overwrite, one addition.
	base := &env.Environment{
		Keys:   []string{"A", "B", "C"},
		Values: []string{"1", "2", "3"},
	}
	subtracted := []string{"B"}
	changedKeys := []string{"C", "D"}
	changedValues := []string{"9", "4"}

	out, err := env.Decompress(base, subtracted, changedKeys, changedValues)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "D"}, out.Keys)
	require.Equal(t, []string{"1", "9", "4"}, out.Values)
}

func TestDecompressEmptyBaseEnvironment(t *testing.T) {
	base := &env.Environment{}
	out, err := env.Decompress(base, nil, []string{"X"}, []string{"y"})
	require.NoError(t, err)
	require.Equal(t, []string{"X"}, out.Keys)
}

func TestDiffRoundTrip(t *testing.T) {
	base := &env.Environment{Keys: []string{"A", "B", "C"}, Values: []string{"1", "2", "3"}}
	target := &env.Environment{Keys: []string{"A", "C", "D"}, Values: []string{"1", "9", "4"}}

	subtracted, changedKeys, changedValues := env.Diff(base, target)
	out, err := env.Decompress(base, subtracted, changedKeys, changedValues)
	require.NoError(t, err)
	require.Equal(t, target.Keys, out.Keys)
	require.Equal(t, target.Values, out.Values)
}

func TestDecompressDoesNotAliasInputs(t *testing.T) {
	base := &env.Environment{Keys: []string{"A"}, Values: []string{"1"}}
	changedKeys := []string{"B"}
	changedValues := []string{"2"}

	out, err := env.Decompress(base, nil, changedKeys, changedValues)
	require.NoError(t, err)

	changedKeys[0] = "mutated"
	require.Equal(t, "B", out.Keys[1])
}
