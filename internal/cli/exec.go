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
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rizome-dev/janitor/internal/log"
	"github.com/rizome-dev/janitor/internal/pty"
	"github.com/rizome-dev/janitor/internal/utils"
	"github.com/rizome-dev/janitor/pkg/janitor"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ExecCmd runs a command on a PTY owned by a janitor
func ExecCmd() *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command> [args...]",
		Short: "Run a command on a PTY and clean it up on exit or interrupt",
		Long: `Exec starts the command on a pseudo-terminal, forwards the terminal to it
and waits for it to finish. If janitor is interrupted first, the command is
sent SIGTERM, killed after the configured kill_grace, and the terminal is
restored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j := janitor.New()
			defer func() {
				if err := j.Teardown(); err != nil {
					log.Error("exec cleanup failed", err)
				}
			}()

			out := cmd.OutOrStdout()
			session, err := pty.NewSession(pty.Config{
				Command:    args[0],
				Args:       args[1:],
				WorkingDir: workDir,
				KillGrace:  Settings().KillGrace,
				OnOutput: func(b []byte) {
					_, _ = out.Write(b)
				},
			})
			if err != nil {
				return err
			}
			if err := j.AddCloser(session); err != nil {
				_ = session.Close()
				return err
			}
			log.Debug("exec started", "command", args[0], "pid", session.Pid())

			// A signal-driven shutdown runs the process cleanups, which
			// must close the session too.
			cleanupKey := janitor.NewKey()
			if err := utils.RegisterKeyedCleanup(cleanupKey, func() { _ = session.Close() }); err != nil {
				return err
			}
			_ = j.AddFunc(func() { utils.CancelCleanup(cleanupKey) })

			if err := forwardTerminal(j, session, cmd.InOrStdin()); err != nil {
				return err
			}

			err = session.Wait(cmd.Context())
			var exitErr *exec.ExitError
			switch {
			case err == nil:
				return nil
			case errors.As(err, &exitErr):
				return &ExitError{Err: fmt.Errorf("%s exited with code %d", args[0], exitErr.ExitCode()), Code: exitErr.ExitCode()}
			default:
				return &ExitError{Err: err, Code: 130}
			}
		},
	}

	cmd.Flags().StringVarP(&workDir, "dir", "C", "", "working directory for the command")

	return cmd
}

// forwardTerminal copies in to the PTY. When in is a terminal it is put in
// raw mode for the life of j and the PTY takes its size.
func forwardTerminal(j *janitor.Janitor, session *pty.Session, in io.Reader) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		if err := j.Add(func() error { return term.Restore(fd, state) }); err != nil {
			_ = term.Restore(fd, state)
			return err
		}
		if err := session.InheritSize(f); err != nil {
			log.Debug("failed to copy terminal size", "error", err)
		}
		if err := watchResize(j, session, fd); err != nil {
			return err
		}
	}

	go func() {
		_, _ = io.Copy(session.PTY(), in)
	}()
	return nil
}
