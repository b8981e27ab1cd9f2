//go:build !windows

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
	"os"
	"os/signal"
	"syscall"

	"github.com/rizome-dev/janitor/internal/log"
	"github.com/rizome-dev/janitor/internal/pty"
	"github.com/rizome-dev/janitor/pkg/janitor"
	"golang.org/x/term"
)

// watchResize follows SIGWINCH, copying the size of the terminal fd to the
// session, until j releases it.
func watchResize(j *janitor.Janitor, session *pty.Session, fd int) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGWINCH)
	stop := make(chan struct{})

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-sigs:
				cols, rows, err := term.GetSize(fd)
				if err != nil {
					log.Debug("failed to read terminal size", "error", err)
					continue
				}
				if err := session.Resize(uint16(rows), uint16(cols)); err != nil {
					log.Debug("failed to resize pty", "error", err)
				}
			}
		}
	}()

	release := func() {
		signal.Stop(sigs)
		close(stop)
	}
	if err := j.AddFunc(release); err != nil {
		release()
		return err
	}
	return nil
}
