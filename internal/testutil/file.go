// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// Package testutil builds cram files and job records bit-exactly for use
// in tests, and provides an in-process fake Communicator so the bootstrap
// dispatcher can be exercised without a real MPI runtime.
package testutil

import (
	"sort"

	"github.com/llnl/cram/env"
	"github.com/llnl/cram/wire"
)

// Magic is the cram file magic number, ASCII "cram".
const Magic = 0x6372616d

// JobSpec is the human-friendly description of a job used to build test
// fixtures; Env is given as a map for convenience and sorted on encode.
type JobSpec struct {
	NumProcs   int
	WorkingDir string
	Args       []string
	Env        map[string]string
}

func sortedEnv(m map[string]string) *env.Environment {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}
	return &env.Environment{Keys: keys, Values: values}
}

// EncodeJobRecord encodes spec into the raw record_size byte window (no
// length prefix) a job record occupies inside a cram file. If base is
// non-nil, the record carries the (subtracted, changed) delta between
// base.Env and spec.Env; otherwise it carries spec.Env verbatim as
// "changed" with no subtractions, as the first job in a file always
// does.
func EncodeJobRecord(spec JobSpec, base *JobSpec) []byte {
	w := wire.NewWriter()
	w.WriteUint32(uint32(spec.NumProcs))
	w.WriteString(spec.WorkingDir)

	w.WriteUint32(uint32(len(spec.Args)))
	for _, a := range spec.Args {
		w.WriteString(a)
	}

	specEnv := sortedEnv(spec.Env)

	var subtracted, changedKeys, changedValues []string
	if base == nil {
		changedKeys = specEnv.Keys
		changedValues = specEnv.Values
	} else {
		baseEnv := sortedEnv(base.Env)
		subtracted, changedKeys, changedValues = env.Diff(baseEnv, specEnv)
	}

	w.WriteUint32(uint32(len(subtracted)))
	for _, k := range subtracted {
		w.WriteString(k)
	}

	w.WriteUint32(uint32(len(changedKeys)))
	for i, k := range changedKeys {
		w.WriteString(k)
		w.WriteString(changedValues[i])
	}

	return w.Bytes()
}

// RawJobRecordWithDanglingSubtraction builds a syntactically valid record
// whose num_subtracted is non-zero, for exercising the InvalidDelta path
// when it's decoded with a nil base.
func RawJobRecordWithDanglingSubtraction() []byte {
	w := wire.NewWriter()
	w.WriteUint32(1)  // num_procs
	w.WriteString("/") // working_dir
	w.WriteUint32(0)  // num_args
	w.WriteUint32(1)  // num_subtracted
	w.WriteString("X")
	w.WriteUint32(0) // num_changed
	return w.Bytes()
}

// BuildFile encodes a complete cram file (header + length-prefixed job
// records) from specs[0] as job 0 and every later spec diffed against
// job 0.
func BuildFile(version uint32, specs []JobSpec) []byte {
	var records [][]byte
	var base *JobSpec
	totalProcs := 0
	maxJobSize := 0

	for i, s := range specs {
		var rec []byte
		if i == 0 {
			rec = EncodeJobRecord(s, nil)
			base = &specs[0]
		} else {
			rec = EncodeJobRecord(s, base)
		}
		records = append(records, rec)
		totalProcs += s.NumProcs
		if len(rec) > maxJobSize {
			maxJobSize = len(rec)
		}
	}

	w := wire.NewWriter()
	w.WriteUint32(Magic)
	w.WriteUint32(version)
	w.WriteUint32(uint32(len(specs)))
	w.WriteUint32(uint32(totalProcs))
	w.WriteUint32(uint32(maxJobSize))

	for _, rec := range records {
		w.WriteUint32(uint32(len(rec)))
		w.WriteRaw(rec)
	}

	return w.Bytes()
}

// BuildFileWithMaxJobSize is like BuildFile but overrides the header's
// max_job_size field, for exercising OversizeRecord handling.
func BuildFileWithMaxJobSize(version uint32, specs []JobSpec, maxJobSize int) []byte {
	var records [][]byte
	var base *JobSpec
	totalProcs := 0

	for i, s := range specs {
		var rec []byte
		if i == 0 {
			rec = EncodeJobRecord(s, nil)
			base = &specs[0]
		} else {
			rec = EncodeJobRecord(s, base)
		}
		records = append(records, rec)
		totalProcs += s.NumProcs
	}

	w := wire.NewWriter()
	w.WriteUint32(Magic)
	w.WriteUint32(version)
	w.WriteUint32(uint32(len(specs)))
	w.WriteUint32(uint32(totalProcs))
	w.WriteUint32(uint32(maxJobSize))

	for _, rec := range records {
		w.WriteUint32(uint32(len(rec)))
		w.WriteRaw(rec)
	}

	return w.Bytes()
}

// MalformedMagicFile returns a file whose first four bytes are zero
// instead of the cram magic number.
func MalformedMagicFile() []byte {
	w := wire.NewWriter()
	w.WriteUint32(0)
	w.WriteUint32(1)
	w.WriteUint32(0)
	w.WriteUint32(0)
	w.WriteUint32(0)
	return w.Bytes()
}
