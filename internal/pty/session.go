// Package pty runs a child process on a pseudo-terminal. Everything a
// session acquires is owned by a janitor.Janitor, so closing the session
// releases it in reverse order of acquisition.
package pty

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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/rizome-dev/janitor/internal/log"
	"github.com/rizome-dev/janitor/pkg/janitor"
)

var (
	ErrSessionClosed = errors.New("session is closed")
	ErrKilled        = errors.New("process was terminated by session close")
)

const (
	keyPTY     = "pty"
	keyProcess = "process"

	defaultKillGrace = 2 * time.Second
)

// Session represents a command running on a PTY
type Session struct {
	cmd       *exec.Cmd
	pty       *os.File
	j         *janitor.Janitor
	killGrace time.Duration

	mu        sync.RWMutex
	outputBuf []byte
	onOutput  func([]byte)

	exited  chan struct{}
	exitErr error

	done    chan struct{}
	doneErr error
	once    sync.Once
}

// Config holds configuration for creating a PTY session
type Config struct {
	Command    string
	Args       []string
	WorkingDir string
	Env        []string
	OnOutput   func([]byte)
	Rows, Cols uint16
	// KillGrace is how long Close waits after SIGTERM before killing the process
	KillGrace time.Duration
}

// NewSession starts the command on a new PTY
func NewSession(config Config) (*Session, error) {
	// #nosec G204 -- the command is supplied by the user invoking the CLI
	cmd := exec.Command(config.Command, config.Args...)

	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}

	rows, cols := config.Rows, config.Cols
	if rows == 0 || cols == 0 {
		rows, cols = 40, 120
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	s := &Session{
		cmd:       cmd,
		pty:       ptmx,
		j:         janitor.New(),
		killGrace: config.KillGrace,
		onOutput:  config.OnOutput,
		exited:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if s.killGrace <= 0 {
		s.killGrace = defaultKillGrace
	}

	// Closing the PTY also stops monitorOutput.
	if err := s.j.AddCloser(ptmx, janitor.WithKey(keyPTY)); err != nil {
		_ = ptmx.Close()
		return nil, err
	}

	go s.monitorOutput()
	go func() {
		s.exitErr = cmd.Wait()
		close(s.exited)
	}()

	// The process exiting by itself races Close. Whichever comes first
	// decides whether the process gets terminated.
	_, err = s.j.Race(func(win janitor.WinFunc) (janitor.Action, error) {
		go func() {
			<-s.exited
			if win() == nil {
				s.finish(s.exitErr)
			}
		}()
		return s.terminate, nil
	}, janitor.Func(func() { s.finish(ErrKilled) }), janitor.WithKey(keyProcess))
	if err != nil {
		_ = s.j.Teardown()
		return nil, err
	}

	log.Debug("pty session started", "command", config.Command, "pid", s.Pid())
	return s, nil
}

func (s *Session) finish(err error) {
	s.once.Do(func() {
		s.doneErr = err
		close(s.done)
	})
}

// terminate asks the process to exit, killing it after the grace period
func (s *Session) terminate() error {
	select {
	case <-s.exited:
		return nil
	default:
	}

	log.Debug("terminating pty process", "pid", s.Pid())
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warn("failed to signal process", "error", err)
	}

	timer := time.NewTimer(s.killGrace)
	defer timer.Stop()
	select {
	case <-s.exited:
		return nil
	case <-timer.C:
	}

	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill process: %w", err)
	}
	<-s.exited
	return nil
}

// Pid returns the process ID of the command
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// PTY returns the controlling side of the terminal
func (s *Session) PTY() *os.File {
	return s.pty
}

// Resize sets the terminal size of the PTY
func (s *Session) Resize(rows, cols uint16) error {
	if !janitor.Is(s.j) {
		return ErrSessionClosed
	}
	return pty.Setsize(s.pty, &pty.Winsize{Rows: rows, Cols: cols})
}

// InheritSize copies the terminal size of tty to the PTY
func (s *Session) InheritSize(tty *os.File) error {
	if !janitor.Is(s.j) {
		return ErrSessionClosed
	}
	return pty.InheritSize(tty, s.pty)
}

// Write sends data to the PTY
func (s *Session) Write(data []byte) error {
	if !janitor.Is(s.j) {
		return ErrSessionClosed
	}
	_, err := s.pty.Write(data)
	return err
}

// SendKeys sends a string as keyboard input
func (s *Session) SendKeys(keys string) error {
	return s.Write([]byte(keys))
}

// GetOutput returns the accumulated output
func (s *Session) GetOutput() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	output := make([]byte, len(s.outputBuf))
	copy(output, s.outputBuf)
	return output
}

// WaitForPattern waits for a specific pattern in the output
func (s *Session) WaitForPattern(ctx context.Context, pattern []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if bytes.Contains(s.GetOutput(), pattern) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for pattern: %s", pattern)
		case <-ticker.C:
		}
	}
}

// Wait blocks until the process has exited, returning its exit error, or
// ErrKilled if the session was closed first. If ctx is done first, the
// session is closed and ctx's error is returned.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.doneErr
	case <-ctx.Done():
		if err := s.Close(); err != nil {
			log.Warn("failed to close pty session", "error", err)
		}
		return ctx.Err()
	}
}

// Done is closed once the process has exited or been terminated
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close terminates the process if it is still running and releases the
// PTY. Closing a closed session is a no-op.
func (s *Session) Close() error {
	err := s.j.Teardown()
	if errors.Is(err, janitor.ErrTornDown) {
		return nil
	}
	return err
}

// monitorOutput copies PTY output into the buffer until the PTY is closed
// or the process goes away
func (s *Session) monitorOutput() {
	buf := make([]byte, 4096)

	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			data := buf[:n]

			s.mu.Lock()
			s.outputBuf = append(s.outputBuf, data...)
			s.mu.Unlock()

			if s.onOutput != nil {
				s.onOutput(data)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Debug("pty read ended", "error", err)
			}
			return
		}
	}
}
