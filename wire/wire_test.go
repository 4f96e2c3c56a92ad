// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

package wire_test

import (
	"bytes"
	"testing"

	cerrors "github.com/llnl/cram/pkg/errors"
	"github.com/llnl/cram/wire"
	"github.com/stretchr/testify/require"
)

func TestReaderRoundTrip(t *testing.T) {
	w := wire.NewWriter()
	w.WriteUint32(42)
	w.WriteString("hello")
	w.WriteString("")

	r := wire.NewReader(w.Bytes())

	v, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)

	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	s, err = r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "", s)

	require.Equal(t, 0, r.Remaining())
}

func TestReaderTruncatedUint32(t *testing.T) {
	r := wire.NewReader([]byte{0, 1, 2})
	_, err := r.ReadUint32()
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.Truncated, ""))
}

func TestReaderTruncatedString(t *testing.T) {
	w := wire.NewWriter()
	w.WriteUint32(10) // claims 10 bytes but none follow
	r := wire.NewReader(w.Bytes())

	_, err := r.ReadString()
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.Truncated, ""))
}

func TestStreamReaderRoundTrip(t *testing.T) {
	w := wire.NewWriter()
	w.WriteUint32(7)
	buf := bytes.NewReader(w.Bytes())

	sr := wire.NewStreamReader(buf)
	v, err := sr.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(7), v)
}

func TestStreamReaderShortRead(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0})
	sr := wire.NewStreamReader(buf)

	_, err := sr.ReadUint32()
	require.Error(t, err)

	dst := make([]byte, 4)
	buf2 := bytes.NewReader([]byte{1, 2})
	sr2 := wire.NewStreamReader(buf2)
	require.Error(t, sr2.ReadFull(dst))
}
