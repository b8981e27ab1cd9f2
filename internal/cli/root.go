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
	"sync"

	"github.com/rizome-dev/janitor/internal/config"
	"github.com/rizome-dev/janitor/internal/log"
	"github.com/spf13/cobra"
)

var (
	settingsMu sync.RWMutex
	settings   = config.Default()
)

// Settings returns the configuration resolved for the running command
func Settings() *config.Config {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

func setSettings(cfg *config.Config) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = cfg
}

// ExitError carries the exit code the process should end with
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// RootCmd returns the root command
func RootCmd() *cobra.Command {
	var (
		configFile string
		logLevel   log.LevelFlag
		noColor    bool
	)

	rootCmd := &cobra.Command{
		Use:   "janitor",
		Short: "Deterministic resource cleanup registry",
		Long: `Janitor keeps a stack of disposal actions and releases them in reverse order,
with keyed replacement, cancellation and race arbitration between a pending
operation and teardown.

Use "janitor run" to play scenario files against a registry and
"janitor exec" to run a command whose PTY and process are owned by one.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(configFile)
			if err != nil {
				return err
			}
			if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
				v.Set("log_level", logLevel.String())
			}
			if noColor {
				v.Set("color", false)
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			cfg.ApplyLogging()
			setSettings(cfg)
			log.Debug("configuration loaded", "file", v.ConfigFileUsed())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.janitor/config.yaml)")
	rootCmd.PersistentFlags().Var(&logLevel, "log-level", "minimum log level (debug, info, warn, error, off)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		RunCmd(),
		ExecCmd(),
		ConfigCmd(),
	)

	return rootCmd
}
