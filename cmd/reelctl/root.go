// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"time"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	addr    string
	timeout time.Duration
	json    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "reelctl",
		Short:         "reelctl drives the pipeline orchestration core over its HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.addr, "addr", "http://localhost:8080", "daemon base URL")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 10*time.Second, "request timeout")
	cmd.PersistentFlags().BoolVar(&flags.json, "json", false, "print raw JSON responses")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))

	return cmd
}
