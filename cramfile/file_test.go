// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

package cramfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/llnl/cram/cramfile"
	"github.com/llnl/cram/internal/testutil"
	cerrors "github.com/llnl/cram/pkg/errors"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cram")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenAndWalkTwoJobs(t *testing.T) {
	specs := []testutil.JobSpec{
		{NumProcs: 2, WorkingDir: "/tmp/a", Args: []string{"./app"}, Env: map[string]string{"A": "1", "B": "2"}},
		{NumProcs: 3, WorkingDir: "/tmp/b", Args: []string{"./app2"}, Env: map[string]string{"A": "1", "B": "9"}},
	}
	path := writeTempFile(t, testutil.BuildFile(1, specs))

	f, err := cramfile.Open(path, nil)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, 2, f.NumJobs())
	require.Equal(t, 5, f.TotalProcs())
	require.True(t, f.HasMore())

	rec0, err := f.Next()
	require.NoError(t, err)
	require.NotEmpty(t, rec0)
	require.True(t, f.HasMore())

	rec1, err := f.Next()
	require.NoError(t, err)
	require.NotEmpty(t, rec1)
	require.False(t, f.HasMore())

	_, err = f.Next()
	require.Error(t, err)
}

func TestOpenZeroJobFile(t *testing.T) {
	path := writeTempFile(t, testutil.BuildFile(1, nil))

	f, err := cramfile.Open(path, nil)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, 0, f.NumJobs())
	require.False(t, f.HasMore())
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := writeTempFile(t, testutil.MalformedMagicFile())

	_, err := cramfile.Open(path, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.NotCramFile, ""))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := cramfile.Open(filepath.Join(t.TempDir(), "does-not-exist.cram"), nil)
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.NotFound, ""))
}

func TestNextRejectsOversizeRecord(t *testing.T) {
	specs := []testutil.JobSpec{
		{NumProcs: 1, WorkingDir: "/tmp/a", Args: []string{"./app"}, Env: map[string]string{"A": "1"}},
	}
	path := writeTempFile(t, testutil.BuildFileWithMaxJobSize(1, specs, 4))

	f, err := cramfile.Open(path, nil)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Next()
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.OversizeRecord, ""))
}

func TestNextRejectsTruncatedFile(t *testing.T) {
	specs := []testutil.JobSpec{
		{NumProcs: 1, WorkingDir: "/tmp/a", Args: []string{"./app"}, Env: map[string]string{"A": "1"}},
	}
	full := testutil.BuildFile(1, specs)
	path := writeTempFile(t, full[:len(full)-3])

	f, err := cramfile.Open(path, nil)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Next()
	require.Error(t, err)
	require.ErrorIs(t, err, cerrors.New(cerrors.Truncated, ""))
}
