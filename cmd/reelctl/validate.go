// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <projectId>",
		Short: "Re-run the quality gate against an existing project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags.addr, flags.timeout)
			resp, err := c.validateProject(cmd.Context(), args[0])
			// validateProject returns both a populated response and a
			// QualityGateRejected cliError on rejection; render the report
			// either way before propagating the exit code.
			if resp != nil {
				if flags.json {
					enc, _ := json.Marshal(resp)
					fmt.Fprintln(cmd.OutOrStdout(), string(enc))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "projectId:        %s\nvalidationPassed: %t\n", resp.ProjectID, resp.ValidationPassed)
					if resp.Report != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "report:           %s\n", string(resp.Report))
					}
				}
			}
			return err
		},
	}
	return cmd
}
