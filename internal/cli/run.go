package cli

// Copyright (C) 2025 Rizome Labs, Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; either version 2
// of the License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the Free Software
// Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

import (
	"fmt"

	"github.com/rizome-dev/janitor/internal/log"
	"github.com/rizome-dev/janitor/internal/scenario"
	"github.com/rizome-dev/janitor/pkg/janitor"
	"github.com/spf13/cobra"
)

// RunCmd plays scenario files against fresh janitors
func RunCmd() *cobra.Command {
	var noCheck bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Play scenario files against a janitor",
		Long: `Run loads each scenario file, plays its steps against a new janitor and
prints which disposal actions ran during each step.

Scenarios that list expectations (an "expect" order, or "expect_error" on
steps) are checked, and the command fails if any expectation is not met.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			styles := newTraceStyles(out, Settings().Color)

			failed := 0
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}

				j := janitor.New()
				trace := scenario.Run(j, sc)

				var checkErr error
				if !noCheck {
					checkErr = trace.Check()
				}
				if checkErr != nil {
					failed++
					log.Debug("scenario failed", "scenario", sc.Name, "error", checkErr)
				}
				renderTrace(out, styles, trace, checkErr)

				// Release whatever the scenario left behind.
				if janitor.Is(j) {
					if err := j.Teardown(); err != nil {
						log.Warn("scenario left failing actions", "scenario", sc.Name, "error", err)
					}
				}
			}

			if failed > 0 {
				return &ExitError{
					Err:  fmt.Errorf("%d of %d scenarios failed", failed, len(args)),
					Code: 1,
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCheck, "no-check", false, "print traces without checking expectations")

	return cmd
}
