// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// Package job decodes one cram job record — the compressed description
// of a sub-job's process count, working directory, arguments, and
// environment delta — into a fully decoded, self-contained Job.
package job

import (
	"fmt"
	"sort"

	"github.com/llnl/cram/env"
	cerrors "github.com/llnl/cram/pkg/errors"
	"github.com/llnl/cram/wire"
)

// DefaultExeSentinel is the literal argv[0] value a cram-file producer
// writes when it wants the launching collaborator to substitute the
// real executable path at job-setup time (see the original cram's
// CRAM_DEFAULT_EXE). The core never substitutes it — argv rewriting is
// a collaborator's job — but it's exported so that collaborator doesn't
// have to invent the constant.
const DefaultExeSentinel = "<exe>"

// Job is a fully decoded, owned job record: every string here is an
// independent copy, safe to use after the record buffer it was decoded
// from is reused or released.
type Job struct {
	NumProcs   int
	WorkingDir string
	Args       []string
	Env        *env.Environment
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := &Job{
		NumProcs:   j.NumProcs,
		WorkingDir: j.WorkingDir,
		Args:       append([]string(nil), j.Args...),
		Env:        j.Env.Clone(),
	}
	return out
}

// Decode parses one raw job record (the record_size byte window copied
// out of a cram file) into a fully owned Job. When base is non-nil, the
// record's environment delta is applied on top of base via env.Decompress;
// when base is nil, the record is the first job in the file and its
// "changed" list is taken as the entire environment verbatim.
func Decode(record []byte, base *Job) (*Job, error) {
	r := wire.NewReader(record)

	numProcsRaw, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	workingDir, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	numArgs, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	args := make([]string, numArgs)
	for i := range args {
		args[i], err = r.ReadString()
		if err != nil {
			return nil, err
		}
	}

	numSubtracted, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	subtracted := make([]string, numSubtracted)
	for i := range subtracted {
		subtracted[i], err = r.ReadString()
		if err != nil {
			return nil, err
		}
	}

	numChanged, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	changedKeys := make([]string, numChanged)
	changedValues := make([]string, numChanged)
	for i := range changedKeys {
		changedKeys[i], err = r.ReadString()
		if err != nil {
			return nil, err
		}
		changedValues[i], err = r.ReadString()
		if err != nil {
			return nil, err
		}
	}

	var baseEnv *env.Environment
	if base != nil {
		baseEnv = base.Env
	} else if numSubtracted > 0 {
		return nil, cerrors.New(cerrors.InvalidDelta, "cannot decode this job without a base job")
	}

	newEnv, err := env.Decompress(baseEnv, subtracted, changedKeys, changedValues)
	if err != nil {
		return nil, err
	}

	return &Job{
		NumProcs:   int(numProcsRaw),
		WorkingDir: workingDir,
		Args:       args,
		Env:        newEnv,
	}, nil
}

// Validate checks the invariants that must hold for any decoded job:
// environment keys strictly ascending and keys/values the same length.
func (j *Job) Validate() error {
	if j.Env == nil {
		return nil
	}
	if len(j.Env.Keys) != len(j.Env.Values) {
		return cerrors.New(cerrors.InvalidDelta, "environment keys and values have different lengths")
	}
	if !sort.StringsAreSorted(j.Env.Keys) {
		return cerrors.New(cerrors.InvalidDelta, "environment keys are not strictly ascending")
	}
	for i := 1; i < len(j.Env.Keys); i++ {
		if j.Env.Keys[i] == j.Env.Keys[i-1] {
			return cerrors.New(cerrors.InvalidDelta, "duplicate environment key: "+j.Env.Keys[i])
		}
	}
	return nil
}

// Print renders a job's metadata in the stable, human-readable form the
// cat CLI uses, matching the original cram's cram_job_print layout.
func (j *Job) Print(w interface{ Write([]byte) (int, error) }) {
	fmt.Fprintf(w, "  Num procs: %d\n", j.NumProcs)
	fmt.Fprintf(w, "  Working dir: %s\n", j.WorkingDir)
	fmt.Fprintf(w, "  Arguments:\n")
	fmt.Fprintf(w, "      ")
	for i, a := range j.Args {
		if i > 0 {
			fmt.Fprintf(w, " ")
		}
		fmt.Fprintf(w, "%s", a)
	}
	fmt.Fprintf(w, "\n  Environment:\n")
	for i, k := range j.Env.Keys {
		fmt.Fprintf(w, "      '%s' : '%s'\n", k, j.Env.Values[i])
	}
}
