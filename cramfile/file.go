// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// Package cramfile implements the sequential reader over a cram file:
// the 20-byte header followed by length-prefixed job records, read once
// each in order with no random access or backward seeking. Only the
// rank that opens a File ever touches the filesystem; bootstrap.Bootstrap
// scatters each record to the ranks it covers from there.
package cramfile

import (
	"io"
	"os"

	"github.com/llnl/cram/pkg/config"
	cerrors "github.com/llnl/cram/pkg/errors"
	"github.com/llnl/cram/wire"
)

// magic is the four-byte value every cram file starts with, ASCII "cram".
const magic = 0x6372616d

// Header is the fixed 20-byte file header.
type Header struct {
	Version    uint32
	NumJobs    uint32
	TotalProcs uint32
	MaxJobSize uint32
}

// File is a sequential reader over one cram file. It is not safe for
// concurrent use, and it holds no decoded job state — that's job.Job's
// job; File only yields raw record bytes.
type File struct {
	f      *os.File
	stream *wire.StreamReader
	header Header
	curJob int
}

// Open validates the header and positions the reader at the first job
// record. cfg controls the underlying read-buffer size (CRAM_BUFFER_SIZE);
// a nil cfg uses config.Default().
func Open(path string, cfg *config.Config) (*File, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cerrors.Wrap(cerrors.NotFound, "cram file not found: "+path, err)
		}
		return nil, cerrors.Wrap(cerrors.NotFound, "could not open cram file: "+path, err)
	}

	stream := wire.NewBufferedStreamReader(f, cfg.BufferSize)

	gotMagic, err := stream.ReadUint32()
	if err != nil {
		f.Close()
		return nil, cerrors.Wrap(cerrors.NotCramFile, path+" is not a cram file", err)
	}
	if gotMagic != magic {
		f.Close()
		return nil, cerrors.New(cerrors.NotCramFile, path+" is not a cram file")
	}

	var hdr Header
	for _, field := range []*uint32{&hdr.Version, &hdr.NumJobs, &hdr.TotalProcs, &hdr.MaxJobSize} {
		v, err := stream.ReadUint32()
		if err != nil {
			f.Close()
			return nil, cerrors.Wrap(cerrors.Truncated, "truncated cram file header: "+path, err)
		}
		*field = v
	}

	return &File{f: f, stream: stream, header: hdr, curJob: -1}, nil
}

// Header returns the file's fixed header.
func (file *File) Header() Header { return file.header }

// NumJobs returns the header's job count.
func (file *File) NumJobs() int { return int(file.header.NumJobs) }

// TotalProcs returns the header's total process count across all jobs.
func (file *File) TotalProcs() int { return int(file.header.TotalProcs) }

// MaxJobSize returns the header's largest single job record size.
func (file *File) MaxJobSize() int { return int(file.header.MaxJobSize) }

// HasMore reports whether at least one more job record remains unread.
func (file *File) HasMore() bool {
	return file.curJob < int(file.header.NumJobs)-1
}

// Next reads and returns the next job record's raw bytes, advancing the
// reader by one job. The returned slice is owned by the caller; File
// does not retain it. Calling Next when HasMore is false returns an
// error rather than silently yielding nothing.
func (file *File) Next() ([]byte, error) {
	if !file.HasMore() {
		return nil, cerrors.New(cerrors.Truncated, "no more job records in this cram file")
	}

	size, err := file.stream.ReadUint32()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Truncated, "truncated job record length prefix", err)
	}
	if size > file.header.MaxJobSize {
		return nil, cerrors.New(cerrors.OversizeRecord, "job record exceeds the header's max_job_size")
	}

	rec := make([]byte, size)
	if err := file.stream.ReadFull(rec); err != nil {
		if err == io.EOF {
			return nil, cerrors.Wrap(cerrors.Truncated, "truncated job record body", err)
		}
		return nil, cerrors.Wrap(cerrors.Truncated, "truncated job record body", err)
	}

	file.curJob++
	return rec, nil
}

// Close releases the underlying file handle.
func (file *File) Close() error {
	return file.f.Close()
}
