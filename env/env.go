// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// Package env implements the environment diff engine: reconstructing a
// per-job environment from a base environment plus a delta
// (subtracted keys, changed key/value pairs) in a single linear merge
// over sorted arrays.
package env

import (
	"sort"

	cerrors "github.com/llnl/cram/pkg/errors"
)

// Environment is a sorted key/value mapping, represented as two parallel
// arrays: keys strictly ascending, values aligned by index.
type Environment struct {
	Keys   []string
	Values []string
}

// Len returns the number of entries.
func (e *Environment) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Keys)
}

// Clone returns a deep copy of e, so mutating or discarding the
// original never dangles the copy's strings.
func (e *Environment) Clone() *Environment {
	if e == nil {
		return nil
	}
	out := &Environment{
		Keys:   make([]string, len(e.Keys)),
		Values: make([]string, len(e.Values)),
	}
	copy(out.Keys, e.Keys)
	copy(out.Values, e.Values)
	return out
}

// indexOf reports whether key is present in a sorted array, by explicit
// presence check rather than by comparing a bsearch result's pointer
// against the array base — the original C used the latter, which is
// undefined behavior when the key isn't found.
func indexOf(sorted []string, key string) bool {
	i := sort.SearchStrings(sorted, key)
	return i < len(sorted) && sorted[i] == key
}

// Decompress reconstructs an environment from a base environment plus a
// delta (subtracted keys, changed key/value pairs), via the merge
// algorithm: (base \ subtracted) ⊕ changed, right-hand side wins.
//
// base may be nil, meaning "no decompression" — the result is exactly
// changed. In that case subtracted must be empty, or this returns an
// InvalidDelta error (subtractions without a base job are meaningless).
//
// changedKeys/changedValues and subtracted must each be sorted ascending
// (subtracted strictly; changedKeys ascending by key); this is a
// documented precondition of the merge, not re-validated here, beyond
// the explicit overlap/guard logic the algorithm requires.
func Decompress(base *Environment, subtracted, changedKeys, changedValues []string) (*Environment, error) {
	if base == nil {
		if len(subtracted) > 0 {
			return nil, cerrors.New(cerrors.InvalidDelta, "subtracted keys present without a base job")
		}
		return &Environment{
			Keys:   append([]string(nil), changedKeys...),
			Values: append([]string(nil), changedValues...),
		}, nil
	}

	// Count the overlap between changed and base so the output length
	// can be allocated up front.
	overlap := 0
	for _, k := range changedKeys {
		if indexOf(base.Keys, k) {
			overlap++
		}
	}

	outLen := base.Len() + len(changedKeys) - len(subtracted) - overlap
	if outLen < 0 {
		return nil, cerrors.New(cerrors.InvalidDelta, "delta produces a negative-length environment")
	}

	out := &Environment{
		Keys:   make([]string, 0, outLen),
		Values: make([]string, 0, outLen),
	}

	bx, cx, sx := 0, 0, 0
	numBase, numChanged, numSubtracted := base.Len(), len(changedKeys), len(subtracted)

	for len(out.Keys) < outLen {
		switch {
		case bx >= numBase && cx < numChanged:
			out.Keys = append(out.Keys, changedKeys[cx])
			out.Values = append(out.Values, changedValues[cx])
			cx++

		case bx >= numBase:
			return nil, cerrors.New(cerrors.InvalidDelta, "merge ran out of base and changed entries early")

		case cx >= numChanged || base.Keys[bx] < changedKeys[cx]:
			if sx < numSubtracted && base.Keys[bx] == subtracted[sx] {
				bx++
				sx++
				continue
			}
			out.Keys = append(out.Keys, base.Keys[bx])
			out.Values = append(out.Values, base.Values[bx])
			bx++

		case base.Keys[bx] == changedKeys[cx]:
			out.Keys = append(out.Keys, changedKeys[cx])
			out.Values = append(out.Values, changedValues[cx])
			bx++
			cx++

		default: // base.Keys[bx] > changedKeys[cx]
			out.Keys = append(out.Keys, changedKeys[cx])
			out.Values = append(out.Values, changedValues[cx])
			cx++
		}
	}

	return out, nil
}

// Diff computes the (subtracted, changedKeys, changedValues) delta that
// Decompress(base, subtracted, changedKeys, changedValues) would turn
// back into target. Both base and target must have sorted keys. This is
// the inverse operation used by tests (and by out-of-core producer
// tooling) to exercise the round-trip law.
func Diff(base, target *Environment) (subtracted, changedKeys, changedValues []string) {
	baseIdx := make(map[string]string, base.Len())
	for i, k := range base.Keys {
		baseIdx[k] = base.Values[i]
	}
	targetIdx := make(map[string]bool, target.Len())
	for _, k := range target.Keys {
		targetIdx[k] = true
	}

	for _, k := range base.Keys {
		if !targetIdx[k] {
			subtracted = append(subtracted, k)
		}
	}
	for i, k := range target.Keys {
		if v, ok := baseIdx[k]; !ok || v != target.Values[i] {
			changedKeys = append(changedKeys, k)
			changedValues = append(changedValues, target.Values[i])
		}
	}
	sort.Strings(subtracted)
	// changedKeys/changedValues are already ascending since target.Keys is sorted.
	return subtracted, changedKeys, changedValues
}
