// SPDX-FileCopyrightText: 2025 Lawrence Livermore National Security, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/llnl/cram/cramfile"
	"github.com/llnl/cram/job"
	"github.com/llnl/cram/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	bufferSize int

	rootCmd = &cobra.Command{
		Use:     "cram-cat FILE",
		Short:   "print the contents of a cram file",
		Long:    `cram-cat opens a cram file and prints its header and every decoded job record, without starting any MPI job.`,
		Version: Version,
		Args:    cobra.ExactArgs(1),
		RunE:    runCat,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVar(&bufferSize, "buffer-size", config.DefaultBufferSize, "read buffer size in bytes")
}

func runCat(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.BufferSize = bufferSize

	f, err := cramfile.Open(args[0], cfg)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := f.Header()
	fmt.Printf("Cram file: %s\n", args[0])
	fmt.Printf("  Version: %d\n", hdr.Version)
	fmt.Printf("  Num jobs: %d\n", hdr.NumJobs)
	fmt.Printf("  Total procs: %d\n", hdr.TotalProcs)
	fmt.Printf("  Max job size: %d\n\n", hdr.MaxJobSize)

	if !f.HasMore() {
		return nil
	}

	var base *job.Job
	for i := 0; f.HasMore(); i++ {
		rec, err := f.Next()
		if err != nil {
			return err
		}

		var b *job.Job
		if i > 0 {
			b = base
		}
		j, err := job.Decode(rec, b)
		if err != nil {
			return err
		}
		if i == 0 {
			base = j
		}

		fmt.Printf("Job %d:\n", i)
		j.Print(os.Stdout)
		fmt.Println()
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
