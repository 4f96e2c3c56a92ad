// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/llnl/cram/job"
	"github.com/llnl/cram/pkg/config"
	cerrors "github.com/llnl/cram/pkg/errors"
	"github.com/llnl/cram/pkg/logging"
	"github.com/llnl/cram/pkg/metrics"
)

// InactiveSubJobID is the sub-job id Bootstrap returns for a rank that is
// surplus to the file's total_procs and has no work to do.
const InactiveSubJobID = -1

// FileReader is the sequential-read surface Bootstrap needs from a cram
// file. Only rank 0 ever calls it; cramfile.File satisfies it directly.
type FileReader interface {
	NumJobs() int
	TotalProcs() int
	MaxJobSize() int
	HasMore() bool
	Next() ([]byte, error)
}

// Bootstrap runs the collective dispatch protocol over comm: rank 0 reads
// file and scatters each job record to exactly the ranks it covers,
// without any other rank touching the filesystem. It returns the Job
// this rank is a member of and that job's sub-job id, or (nil,
// InactiveSubJobID) if this rank is surplus to the file's total_procs
// and has no work to do. file is only accessed when comm.Rank() == 0;
// other ranks may pass nil.
func Bootstrap(ctx context.Context, comm Communicator, cfg *config.Config, collector metrics.Collector, logger logging.Logger, file FileReader) (*job.Job, int, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	runID := uuid.New()
	logger = logger.With("run_id", runID.String())

	const root = 0
	rank := comm.Rank()
	size := comm.Size()
	tag := cfg.Tag

	abort := func(err *cerrors.CramError) (*job.Job, int, error) {
		logger.Error(err.Error())
		_ = comm.Abort(ctx, err.ExitCode(), err.Error())
		return nil, InactiveSubJobID, err
	}
	abortOnMessagingErr := func(err error) (*job.Job, int, bool) {
		if err == nil {
			return nil, InactiveSubJobID, false
		}
		cerr := cerrors.Wrap(cerrors.MessagingError, "collective communication failed", err)
		logger.Error(cerr.Error())
		_ = comm.Abort(ctx, cerr.ExitCode(), cerr.Error())
		return nil, InactiveSubJobID, true
	}

	var numJobsLocal, totalProcsLocal, maxJobSizeLocal int
	if rank == root {
		numJobsLocal = file.NumJobs()
		totalProcsLocal = file.TotalProcs()
		maxJobSizeLocal = file.MaxJobSize()
	}

	numJobs32, err := comm.BcastInt32(int32(numJobsLocal), root)
	if j, id, bad := abortOnMessagingErr(err); bad {
		return j, id, cerrors.Wrap(cerrors.MessagingError, "broadcasting job count failed", err)
	}
	totalProcs32, err := comm.BcastInt32(int32(totalProcsLocal), root)
	if j, id, bad := abortOnMessagingErr(err); bad {
		return j, id, cerrors.Wrap(cerrors.MessagingError, "broadcasting total proc count failed", err)
	}
	maxJobSize32, err := comm.BcastInt32(int32(maxJobSizeLocal), root)
	if j, id, bad := abortOnMessagingErr(err); bad {
		return j, id, cerrors.Wrap(cerrors.MessagingError, "broadcasting max job size failed", err)
	}

	numJobs := int(numJobs32)
	totalProcs := int(totalProcs32)
	maxJobSize := int(maxJobSize32)
	collector.RecordBroadcast(12)

	if size < totalProcs {
		return abort(cerrors.New(cerrors.UndersizedCommunicator,
			fmt.Sprintf("communicator has %d ranks but the file requires %d", size, totalProcs)))
	}

	var job0 *job.Job
	curRank := 0

	if numJobs > 0 {
		recBuf := make([]byte, maxJobSize)
		var recLen int

		if rank == root {
			raw, ferr := file.Next()
			if ferr != nil {
				return abort(asCramError(ferr, cerrors.Truncated, "reading job 0 failed"))
			}
			if len(raw) > maxJobSize {
				return abort(cerrors.New(cerrors.OversizeRecord,
					fmt.Sprintf("job 0 record is %d bytes, header advertises a max of %d", len(raw), maxJobSize)))
			}
			recLen = len(raw)
			copy(recBuf, raw)
		}

		recLen32, err := comm.BcastInt32(int32(recLen), root)
		if j, id, bad := abortOnMessagingErr(err); bad {
			return j, id, cerrors.Wrap(cerrors.MessagingError, "broadcasting job 0 length failed", err)
		}
		recLen = int(recLen32)

		if err := comm.BcastBytes(recBuf, root); err != nil {
			if j, id, bad := abortOnMessagingErr(err); bad {
				return j, id, cerrors.Wrap(cerrors.MessagingError, "broadcasting job 0 record failed", err)
			}
		}

		decoded, derr := job.Decode(recBuf[:recLen], nil)
		if derr != nil {
			return abort(asCramError(derr, cerrors.InvalidDelta, "decoding job 0 failed"))
		}
		job0 = decoded
		collector.RecordBroadcast(recLen)
	}

	var assigned *job.Job
	subJobID := InactiveSubJobID
	selfAssigned := false
	if job0 != nil {
		curRank = job0.NumProcs
		if rank < job0.NumProcs {
			assigned = job0.Clone()
			subJobID = 0
			selfAssigned = true
		}
	}

	if rank == root {
		var outstanding []Request
		flush := func() error {
			if len(outstanding) == 0 {
				return nil
			}
			err := comm.WaitAll(outstanding)
			outstanding = outstanding[:0]
			return err
		}

		for idx := 1; idx < numJobs; idx++ {
			raw, ferr := file.Next()
			if ferr != nil {
				return abort(asCramError(ferr, cerrors.Truncated, fmt.Sprintf("reading job %d failed", idx)))
			}
			if len(raw) > maxJobSize {
				return abort(cerrors.New(cerrors.OversizeRecord,
					fmt.Sprintf("job %d record is %d bytes, header advertises a max of %d", idx, len(raw), maxJobSize)))
			}

			decoded, derr := job.Decode(raw, job0)
			if derr != nil {
				return abort(asCramError(derr, cerrors.InvalidDelta, fmt.Sprintf("decoding job %d failed", idx)))
			}

			padded := make([]byte, maxJobSize)
			copy(padded, raw)

			for r := curRank; r < curRank+decoded.NumProcs; r++ {
				if r == root {
					assigned = decoded
					subJobID = idx
					selfAssigned = true
					continue
				}

				idReq, err := comm.ISendInt32(int32(idx), r, tag)
				if err != nil {
					if j, id, bad := abortOnMessagingErr(err); bad {
						return j, id, cerrors.Wrap(cerrors.MessagingError, "dispatching job id failed", err)
					}
				}
				recReq, err := comm.ISendBytes(padded, r, tag)
				if err != nil {
					if j, id, bad := abortOnMessagingErr(err); bad {
						return j, id, cerrors.Wrap(cerrors.MessagingError, "dispatching job record failed", err)
					}
				}
				// Both the id and record sends are tracked as a pair, matching
				// the original's requests[] array: MaxConcurrentPeers bounds
				// pairs, not individual requests.
				outstanding = append(outstanding, idReq, recReq)
				collector.RecordInFlight(len(outstanding))

				if len(outstanding) >= cfg.MaxConcurrentPeers*2 {
					if err := flush(); err != nil {
						if j, id, bad := abortOnMessagingErr(err); bad {
							return j, id, cerrors.Wrap(cerrors.MessagingError, "waiting on dispatch batch failed", err)
						}
					}
				}
			}

			curRank += decoded.NumProcs
			collector.RecordJobScattered(decoded.NumProcs, len(padded))
		}

		if err := flush(); err != nil {
			if j, id, bad := abortOnMessagingErr(err); bad {
				return j, id, cerrors.Wrap(cerrors.MessagingError, "waiting on final dispatch batch failed", err)
			}
		}

		for r := curRank; r < size; r++ {
			if r == root {
				continue
			}
			if err := comm.SendInt32(-1, r, tag); err != nil {
				if j, id, bad := abortOnMessagingErr(err); bad {
					return j, id, cerrors.Wrap(cerrors.MessagingError, "notifying surplus rank failed", err)
				}
			}
		}
	}

	if rank != root && !selfAssigned {
		id32, err := comm.RecvInt32(root, tag)
		if j, id, bad := abortOnMessagingErr(err); bad {
			return j, id, cerrors.Wrap(cerrors.MessagingError, "receiving job id failed", err)
		}
		if id32 >= 0 {
			buf := make([]byte, maxJobSize)
			if err := comm.RecvBytes(buf, root, tag); err != nil {
				if j, id, bad := abortOnMessagingErr(err); bad {
					return j, id, cerrors.Wrap(cerrors.MessagingError, "receiving job record failed", err)
				}
			}
			decoded, derr := job.Decode(buf, job0)
			if derr != nil {
				return abort(asCramError(derr, cerrors.InvalidDelta, "decoding dispatched job failed"))
			}
			assigned = decoded
			subJobID = int(id32)
		} else {
			subJobID = InactiveSubJobID
		}
	}

	// Every rank releases job 0 once it has copied what it needs out of
	// it into `assigned`; nothing downstream holds a second reference.
	job0 = nil

	return assigned, subJobID, nil
}

func asCramError(err error, fallback cerrors.Code, msg string) *cerrors.CramError {
	if cerr, ok := err.(*cerrors.CramError); ok {
		return cerr
	}
	return cerrors.Wrap(fallback, msg, err)
}
