// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command reelctl is the operator-facing CLI for the pipeline
// orchestration core: submit runs, poll status, and re-run the quality
// gate against an existing project (spec.md §6).
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var cerr *cliError
		if errors.As(err, &cerr) {
			os.Exit(cerr.code)
		}
		os.Exit(exitGeneralFailure)
	}
	os.Exit(exitSuccess)
}
