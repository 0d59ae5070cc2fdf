// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProvStor Contributors

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	provstorerr "github.com/provstor-dev/provstor/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api-status",
		Short: "Show API status",
		Long:  "Check the running API's health endpoint and display the state of each backing store.",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	api := clientFromConfig()
	out := cmd.OutOrStdout()

	report, err := api.health(cmd.Context())
	if err != nil {
		if provstorerr.HasCode(err, provstorerr.CodeCLIAPINotRunning) {
			_, _ = fmt.Fprintf(out, "API at %s is not running (connection refused)\n", api.addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "API at %s: %s\n", api.addr, err)
		return nil
	}

	return render(cmd, report, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "API at %s: %s\n", api.addr, report.Status); err != nil {
			return err
		}
		for _, c := range report.Checks {
			state := "ok"
			if !c.Available {
				state = "unavailable: " + c.Error
			}
			if _, err := fmt.Fprintf(w, "  %-12s %s (%dms)\n", c.Name, state, c.LatencyMS); err != nil {
				return err
			}
		}
		return nil
	})
}
