// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap implements the collective dispatcher that scatters a
// cram file's job records across an MPI communicator without every rank
// touching the filesystem.
package bootstrap

import "context"

// Request is a handle to an outstanding non-blocking send, returned by
// Communicator.ISendInt32 and Communicator.ISendBytes and consumed by
// Communicator.WaitAll.
type Request interface{}

// Communicator is the subset of MPI collective and point-to-point
// operations the dispatcher needs. internal/mpi implements it over cgo
// bindings to a real MPI library; internal/testutil implements it as an
// in-process fake over goroutines and channels so the dispatcher can be
// unit-tested without a real MPI runtime.
type Communicator interface {
	// Rank returns this process's rank within the communicator.
	Rank() int
	// Size returns the number of ranks in the communicator.
	Size() int

	// BcastBytes broadcasts buf from root to every rank. Every rank,
	// including root, must pass a buffer of the agreed-upon length;
	// callers broadcast a length first via BcastInt32 when the length
	// isn't already known to all ranks.
	BcastBytes(buf []byte, root int) error
	// BcastInt32 broadcasts a single int32 from root to every rank.
	BcastInt32(v int32, root int) (int32, error)

	// ISendInt32 starts a non-blocking send of a single int32 to dest,
	// and returns a Request to be waited on with WaitAll.
	ISendInt32(v int32, dest, tag int) (Request, error)
	// ISendBytes starts a non-blocking send of b to dest, tagged tag,
	// and returns a Request to be waited on with WaitAll.
	ISendBytes(b []byte, dest, tag int) (Request, error)
	// WaitAll blocks until every Request in reqs has completed.
	WaitAll(reqs []Request) error

	// SendInt32 performs a blocking send of a single int32 to dest.
	SendInt32(v int32, dest, tag int) error
	// RecvInt32 performs a blocking receive of a single int32 from src.
	RecvInt32(src, tag int) (int32, error)
	// RecvBytes performs a blocking receive of exactly len(buf) bytes
	// from src into buf.
	RecvBytes(buf []byte, src, tag int) error

	// Abort terminates every rank in the communicator with the given
	// exit code; it does not return under normal operation.
	Abort(ctx context.Context, code int, reason string) error
}
