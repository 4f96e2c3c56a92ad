// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

// Package mpi is a thin cgo binding over the system MPI library, just
// wide enough to implement bootstrap.Communicator. It is the only
// package in this module that imports "C"; everything above it
// programs against the Communicator interface so it stays testable
// without a real MPI runtime.
package mpi

/*
#cgo pkg-config: ompi
#include <stdlib.h>
#include "mpi.h"

MPI_Comm World = MPI_COMM_WORLD;
*/
import "C"

import (
	"context"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/llnl/cram/bootstrap"
)

var _ bootstrap.Communicator = (*Comm)(nil)

// Error converts an MPI return code into a Go error, or nil on success.
func Error(ec C.int, ctxt string) error {
	if ec == C.MPI_SUCCESS {
		return nil
	}
	var rsz C.int
	buf := C.malloc(C.size_t(C.MPI_MAX_ERROR_STRING))
	defer C.free(buf)
	C.MPI_Error_string(ec, (*C.char)(buf), &rsz)
	return fmt.Errorf("MPI error %d in %s: %s", int(ec), ctxt, C.GoStringN((*C.char)(buf), rsz))
}

// Init initializes MPI. It must be called once, before any Comm is used.
func Init() error {
	return Error(C.MPI_Init(nil, nil), "MPI_Init")
}

// Finalize shuts MPI down.
func Finalize() error {
	return Error(C.MPI_Finalize(), "MPI_Finalize")
}

// Comm wraps a single MPI communicator and implements
// bootstrap.Communicator.
type Comm struct {
	comm C.MPI_Comm
}

// World returns a Comm over MPI_COMM_WORLD.
func World() *Comm {
	return &Comm{comm: C.World}
}

func (c *Comm) Rank() int {
	var r C.int
	C.MPI_Comm_rank(c.comm, &r)
	return int(r)
}

func (c *Comm) Size() int {
	var s C.int
	C.MPI_Comm_size(c.comm, &s)
	return int(s)
}

func (c *Comm) BcastBytes(buf []byte, root int) error {
	if len(buf) == 0 {
		return nil
	}
	return Error(C.MPI_Bcast(unsafe.Pointer(&buf[0]), C.int(len(buf)), C.MPI_BYTE, C.int(root), c.comm), "MPI_Bcast")
}

func (c *Comm) BcastInt32(v int32, root int) (int32, error) {
	cv := C.int32_t(v)
	err := Error(C.MPI_Bcast(unsafe.Pointer(&cv), 1, C.MPI_INT32_T, C.int(root), c.comm), "MPI_Bcast")
	return int32(cv), err
}

// request pairs an MPI_Request with the buffer it refers to, so the
// buffer isn't garbage-collected or reused while the send is in flight.
type request struct {
	req C.MPI_Request
	buf []byte
}

func (c *Comm) ISendInt32(v int32, dest, tag int) (bootstrap.Request, error) {
	buf := make([]byte, 4)
	putInt32(buf, v)
	return c.ISendBytes(buf, dest, tag)
}

func (c *Comm) ISendBytes(b []byte, dest, tag int) (bootstrap.Request, error) {
	if len(b) == 0 {
		b = []byte{0}
	}
	r := &request{buf: b}
	err := Error(C.MPI_Isend(unsafe.Pointer(&r.buf[0]), C.int(len(r.buf)), C.MPI_BYTE,
		C.int(dest), C.int(tag), c.comm, &r.req), "MPI_Isend")
	return r, err
}

func (c *Comm) WaitAll(reqs []bootstrap.Request) error {
	for _, r := range reqs {
		req, ok := r.(*request)
		if !ok || req == nil {
			continue
		}
		if err := Error(C.MPI_Wait(&req.req, C.MPI_STATUS_IGNORE), "MPI_Wait"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Comm) SendInt32(v int32, dest, tag int) error {
	cv := C.int32_t(v)
	return Error(C.MPI_Send(unsafe.Pointer(&cv), 1, C.MPI_INT32_T, C.int(dest), C.int(tag), c.comm), "MPI_Send")
}

func (c *Comm) RecvInt32(src, tag int) (int32, error) {
	var cv C.int32_t
	err := Error(C.MPI_Recv(unsafe.Pointer(&cv), 1, C.MPI_INT32_T, C.int(src), C.int(tag), c.comm, C.MPI_STATUS_IGNORE), "MPI_Recv")
	return int32(cv), err
}

func (c *Comm) RecvBytes(buf []byte, src, tag int) error {
	if len(buf) == 0 {
		return nil
	}
	return Error(C.MPI_Recv(unsafe.Pointer(&buf[0]), C.int(len(buf)), C.MPI_BYTE, C.int(src), C.int(tag), c.comm, C.MPI_STATUS_IGNORE), "MPI_Recv")
}

func (c *Comm) Abort(ctx context.Context, code int, reason string) error {
	return Error(C.MPI_Abort(c.comm, C.int(code)), "MPI_Abort: "+reason)
}

// putInt32 writes v in the host's native byte order, the layout the
// receiving side's MPI_INT32_T receive expects.
func putInt32(buf []byte, v int32) {
	binary.NativeEndian.PutUint32(buf, uint32(v))
}
