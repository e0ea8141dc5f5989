// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		targetAudience string
		videoDuration  int
	)

	cmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Submit a manual run for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags.addr, flags.timeout)
			resp, err := c.submitRun(cmd.Context(), submitRunRequest{
				Topic:          args[0],
				TargetAudience: targetAudience,
				VideoDuration:  videoDuration,
				Trigger:        "manual",
			})
			if err != nil {
				return err
			}
			if flags.json {
				enc, _ := json.Marshal(resp)
				fmt.Fprintln(cmd.OutOrStdout(), string(enc))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "executionId: %s\nprojectId:   %s\nstatus:      %s\n", resp.ExecutionID, resp.ProjectID, resp.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetAudience, "target-audience", "", "target audience override")
	cmd.Flags().IntVar(&videoDuration, "duration", 0, "target video duration in seconds")
	return cmd
}
