// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/llnl/cram/bootstrap"
)

// inboxCapacity bounds how many point-to-point messages can be
// outstanding to a single rank before a send blocks; it's sized well
// above anything a test fleet needs so SendInt32/ISendBytes behave as
// effectively non-blocking as the real dispatcher expects.
const inboxCapacity = 1 << 16

type ptMsg struct {
	tag     int
	isInt32 bool
	i32     int32
	data    []byte
}

// Fleet simulates size MPI ranks in-process with goroutines and
// channels, implementing enough of MPI's collective and point-to-point
// semantics for bootstrap.Bootstrap to run unmodified against it.
type Fleet struct {
	size int

	mu         sync.Mutex
	bcastChans map[int][]chan []byte

	inboxes []chan ptMsg

	bcastSeq []int32 // per-rank local sequence counter

	aborted     chan struct{}
	abortOnce   sync.Once
	abortCode   int32
	abortReason atomic.Value // string
}

// NewFleet builds a Fleet of size ranks.
func NewFleet(size int) *Fleet {
	f := &Fleet{
		size:       size,
		bcastChans: make(map[int][]chan []byte),
		inboxes:    make([]chan ptMsg, size),
		bcastSeq:   make([]int32, size),
		aborted:    make(chan struct{}),
	}
	for i := range f.inboxes {
		f.inboxes[i] = make(chan ptMsg, inboxCapacity)
	}
	return f
}

// Comm returns the Communicator for the given rank.
func (f *Fleet) Comm(rank int) bootstrap.Communicator {
	return &FakeComm{rank: rank, fleet: f}
}

// Aborted reports whether any rank called Abort.
func (f *Fleet) Aborted() bool {
	select {
	case <-f.aborted:
		return true
	default:
		return false
	}
}

// AbortCode returns the exit code passed to Abort, if any.
func (f *Fleet) AbortCode() int { return int(atomic.LoadInt32(&f.abortCode)) }

// AbortReason returns the reason string passed to Abort, if any.
func (f *Fleet) AbortReason() string {
	if v := f.abortReason.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (f *Fleet) getBcastChans(seq int) []chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	chans, ok := f.bcastChans[seq]
	if !ok {
		chans = make([]chan []byte, f.size)
		for i := range chans {
			chans[i] = make(chan []byte, 1)
		}
		f.bcastChans[seq] = chans
	}
	return chans
}

// FakeComm is one rank's view of a Fleet.
type FakeComm struct {
	rank  int
	fleet *Fleet
}

var _ bootstrap.Communicator = (*FakeComm)(nil)

func (c *FakeComm) Rank() int { return c.rank }
func (c *FakeComm) Size() int { return c.fleet.size }

func (c *FakeComm) nextSeq() int {
	return int(atomic.AddInt32(&c.fleet.bcastSeq[c.rank], 1)) - 1
}

func (c *FakeComm) BcastBytes(buf []byte, root int) error {
	seq := c.nextSeq()
	chans := c.fleet.getBcastChans(seq)

	if c.rank == root {
		cp := append([]byte(nil), buf...)
		for i, ch := range chans {
			if i == root {
				continue
			}
			select {
			case ch <- cp:
			case <-c.fleet.aborted:
				return fmt.Errorf("aborted")
			}
		}
		return nil
	}

	select {
	case data := <-chans[c.rank]:
		copy(buf, data)
		return nil
	case <-c.fleet.aborted:
		return fmt.Errorf("aborted")
	}
}

func (c *FakeComm) BcastInt32(v int32, root int) (int32, error) {
	buf := make([]byte, 4)
	if c.rank == root {
		binary.BigEndian.PutUint32(buf, uint32(v))
	}
	if err := c.BcastBytes(buf, root); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

func (c *FakeComm) ISendInt32(v int32, dest, tag int) (bootstrap.Request, error) {
	select {
	case c.fleet.inboxes[dest] <- ptMsg{tag: tag, isInt32: true, i32: v}:
		return struct{}{}, nil
	case <-c.fleet.aborted:
		return nil, fmt.Errorf("aborted")
	}
}

func (c *FakeComm) ISendBytes(b []byte, dest, tag int) (bootstrap.Request, error) {
	cp := append([]byte(nil), b...)
	select {
	case c.fleet.inboxes[dest] <- ptMsg{tag: tag, data: cp}:
		return struct{}{}, nil
	case <-c.fleet.aborted:
		return nil, fmt.Errorf("aborted")
	}
}

func (c *FakeComm) WaitAll(reqs []bootstrap.Request) error {
	select {
	case <-c.fleet.aborted:
		return fmt.Errorf("aborted")
	default:
		return nil
	}
}

func (c *FakeComm) SendInt32(v int32, dest, tag int) error {
	select {
	case c.fleet.inboxes[dest] <- ptMsg{tag: tag, isInt32: true, i32: v}:
		return nil
	case <-c.fleet.aborted:
		return fmt.Errorf("aborted")
	}
}

func (c *FakeComm) RecvInt32(src, tag int) (int32, error) {
	select {
	case msg := <-c.fleet.inboxes[c.rank]:
		return msg.i32, nil
	case <-c.fleet.aborted:
		return 0, fmt.Errorf("aborted")
	}
}

func (c *FakeComm) RecvBytes(buf []byte, src, tag int) error {
	select {
	case msg := <-c.fleet.inboxes[c.rank]:
		copy(buf, msg.data)
		return nil
	case <-c.fleet.aborted:
		return fmt.Errorf("aborted")
	}
}

func (c *FakeComm) Abort(ctx context.Context, code int, reason string) error {
	c.fleet.abortOnce.Do(func() {
		atomic.StoreInt32(&c.fleet.abortCode, int32(code))
		c.fleet.abortReason.Store(reason)
		close(c.fleet.aborted)
	})
	return nil
}
