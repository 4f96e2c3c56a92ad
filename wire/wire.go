// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the two primitives the cram binary format is
// built from: big-endian 32-bit integers and length-prefixed opaque byte
// strings. It imposes no alignment requirements on the underlying buffer
// or stream.
package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	cerrors "github.com/llnl/cram/pkg/errors"
)

// Reader decodes wire primitives from an in-memory buffer with a moving
// cursor.
type Reader struct {
	buf    []byte
	offset int
}

// NewReader wraps buf for sequential reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.offset }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.offset }

// ReadUint32 reads a big-endian u32 at the cursor and advances by 4.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, cerrors.New(cerrors.Truncated, "not enough bytes for a u32")
	}
	v := binary.BigEndian.Uint32(r.buf[r.offset : r.offset+4])
	r.offset += 4
	return v, nil
}

// ReadString reads a u32 length L followed by L raw bytes, advancing by
// 4+L. The returned bytes are not null-terminated on disk and are
// treated as opaque: a caller that needs a C-style terminator adds one.
func (r *Reader) ReadString() (string, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if uint64(r.Remaining()) < uint64(length) {
		return "", cerrors.New(cerrors.Truncated, "string length exceeds remaining buffer")
	}
	s := string(r.buf[r.offset : r.offset+int(length)])
	r.offset += int(length)
	return s, nil
}

// StreamReader decodes the same wire primitives directly from an
// io.Reader (normally a buffered file stream), for the file header and
// the job-record-size prefix, which are read before a record's bytes
// are known.
type StreamReader struct {
	r io.Reader
}

// NewStreamReader wraps r, which should typically be a *bufio.Reader
// sized per pkg/config.Config.BufferSize.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// NewBufferedStreamReader wraps f in a bufio.Reader of the given size
// before constructing a StreamReader.
func NewBufferedStreamReader(f io.Reader, bufferSize int) *StreamReader {
	return NewStreamReader(bufio.NewReaderSize(f, bufferSize))
}

// ReadUint32 reads a big-endian u32 from the stream.
func (s *StreamReader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return 0, cerrors.Wrap(cerrors.Truncated, "short read of u32 from stream", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadFull reads exactly len(dst) bytes into dst from the stream.
func (s *StreamReader) ReadFull(dst []byte) error {
	n, err := io.ReadFull(s.r, dst)
	if err != nil || n != len(dst) {
		return cerrors.Wrap(cerrors.Truncated, "short read from stream", err)
	}
	return nil
}

// Writer encodes wire primitives into a growable byte buffer. It is not
// part of the normative decode path but is used by internal/testutil to
// construct cram files bit-exactly in tests.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteUint32 appends v as a big-endian u32.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteString appends a u32 length prefix followed by s's raw bytes.
func (w *Writer) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteRaw appends b verbatim, with no length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}
