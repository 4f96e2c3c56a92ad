// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

package job_test

import (
	"bytes"
	"testing"

	"github.com/llnl/cram/internal/testutil"
	"github.com/llnl/cram/job"
	cerrors "github.com/llnl/cram/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDecodeFirstJobNoBase(t *testing.T) {
	rec := testutil.EncodeJobRecord(testutil.JobSpec{
		NumProcs:   4,
		WorkingDir: "/tmp/a",
		Args:       []string{"./app", "-n", "10"},
		Env:        map[string]string{"LANG": "C", "PATH": "/bin"},
	}, nil)

	j, err := job.Decode(rec, nil)
	require.NoError(t, err)
	require.Equal(t, 4, j.NumProcs)
	require.Equal(t, "/tmp/a", j.WorkingDir)
	require.Equal(t, []string{"./app", "-n", "10"}, j.Args)
	require.Equal(t, []string{"LANG", "PATH"}, j.Env.Keys)
	require.Equal(t, []string{"C", "/bin"}, j.Env.Values)
	require.NoError(t, j.Validate())
}

func TestDecodeSecondJobAgainstBase(t *testing.T) {
	base := testutil.JobSpec{
		NumProcs:   4,
		WorkingDir: "/tmp/a",
		Args:       []string{"./app"},
		Env:        map[string]string{"A": "1", "B": "2", "C": "3"},
	}
	baseRec := testutil.EncodeJobRecord(base, nil)
	baseJob, err := job.Decode(baseRec, nil)
	require.NoError(t, err)

	next := testutil.JobSpec{
		NumProcs:   2,
		WorkingDir: "/tmp/b",
		Args:       []string{"./app2"},
		Env:        map[string]string{"A": "1", "C": "9", "D": "4"},
	}
	nextRec := testutil.EncodeJobRecord(next, &base)

	j, err := job.Decode(nextRec, baseJob)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "D"}, j.Env.Keys)
	require.Equal(t, []string{"1", "9", "4"}, j.Env.Values)
}

func TestDecodeSubtractedWithoutBaseIsInvalid(t *testing.T) {
	w := testutil.RawJobRecordWithDanglingSubtraction()
	_, err := job.Decode(w, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.InvalidDelta, ""))
}

func TestDecodeTruncatedRecord(t *testing.T) {
	rec := testutil.EncodeJobRecord(testutil.JobSpec{
		NumProcs:   1,
		WorkingDir: "/",
		Args:       []string{"a"},
		Env:        map[string]string{"X": "1"},
	}, nil)

	_, err := job.Decode(rec[:len(rec)-2], nil)
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.Truncated, ""))
}

func TestCloneIsIndependent(t *testing.T) {
	rec := testutil.EncodeJobRecord(testutil.JobSpec{
		NumProcs:   1,
		WorkingDir: "/x",
		Args:       []string{"a"},
		Env:        map[string]string{"K": "V"},
	}, nil)
	j, err := job.Decode(rec, nil)
	require.NoError(t, err)

	clone := j.Clone()
	clone.Env.Values[0] = "changed"
	require.Equal(t, "V", j.Env.Values[0])
}

func TestPrint(t *testing.T) {
	rec := testutil.EncodeJobRecord(testutil.JobSpec{
		NumProcs:   1,
		WorkingDir: "/x",
		Args:       []string{"a", "b"},
		Env:        map[string]string{"K": "V"},
	}, nil)
	j, err := job.Decode(rec, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	j.Print(&buf)
	require.Contains(t, buf.String(), "Num procs: 1")
	require.Contains(t, buf.String(), "'K' : 'V'")
}
