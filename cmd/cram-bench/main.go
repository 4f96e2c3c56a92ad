// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

// cram-bench walks a cram file without decoding any job record, to
// measure the raw sequential-read throughput cramfile.File gets against
// a given filesystem and read-buffer size (the --buffer-size flag; the
// CRAM_BUFFER_SIZE environment variable is not read).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/llnl/cram/cramfile"
	"github.com/llnl/cram/pkg/config"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"

	bufferSize int

	rootCmd = &cobra.Command{
		Use:     "cram-bench FILE",
		Short:   "benchmark sequential reads over a cram file",
		Version: Version,
		Args:    cobra.ExactArgs(1),
		RunE:    runBench,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVar(&bufferSize, "buffer-size", config.DefaultBufferSize, "read buffer size in bytes")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.BufferSize = bufferSize

	start := time.Now()

	f, err := cramfile.Open(args[0], cfg)
	if err != nil {
		return err
	}
	defer f.Close()

	var totalBytes int64
	var numJobs int
	for f.HasMore() {
		rec, err := f.Next()
		if err != nil {
			return err
		}
		totalBytes += int64(len(rec))
		numJobs++
	}

	elapsed := time.Since(start)
	fmt.Printf("Read %d jobs, %d bytes in %s\n", numJobs, totalBytes, elapsed)
	if elapsed > 0 {
		fmt.Printf("Throughput: %.2f MB/s\n", float64(totalBytes)/1e6/elapsed.Seconds())
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
