//go:build !windows

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
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestSessionNaturalExit(t *testing.T) {
	requireShell(t)

	s, err := NewSession(Config{Command: "sh", Args: []string{"-c", "echo hello; exit 3"}})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = s.Wait(ctx)
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())

	require.NoError(t, s.WaitForPattern(ctx, []byte("hello"), 5*time.Second))

	// The process won its race, so closing only releases the PTY.
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write([]byte("x")), ErrSessionClosed)
}

func TestSessionCloseTerminates(t *testing.T) {
	requireShell(t)

	s, err := NewSession(Config{
		Command:   "sh",
		Args:      []string{"-c", "sleep 30"},
		KillGrace: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Close())
	assert.Less(t, time.Since(start), 10*time.Second)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session not done after close")
	}
	assert.ErrorIs(t, s.Wait(context.Background()), ErrKilled)
}

func TestSessionWaitContextCancel(t *testing.T) {
	requireShell(t)

	s, err := NewSession(Config{
		Command:   "sh",
		Args:      []string{"-c", "sleep 30"},
		KillGrace: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = s.Wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.ErrorIs(t, s.Wait(context.Background()), ErrKilled)
}

func TestSessionOutputCallback(t *testing.T) {
	requireShell(t)

	got := make(chan []byte, 16)
	s, err := NewSession(Config{
		Command: "sh",
		Args:    []string{"-c", "printf ready"},
		OnOutput: func(b []byte) {
			got <- append([]byte(nil), b...)
		},
	})
	require.NoError(t, err)
	defer s.Close()

	select {
	case b := <-got:
		assert.NotEmpty(t, b)
	case <-time.After(5 * time.Second):
		t.Fatal("no output received")
	}
}

func TestSessionSendKeys(t *testing.T) {
	requireShell(t)

	s, err := NewSession(Config{Command: "sh", Args: []string{"-c", "read line; echo got:$line"}})
	require.NoError(t, err)
	defer s.Close()
	assert.Greater(t, s.Pid(), 0)

	require.NoError(t, s.SendKeys("hi\n"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.WaitForPattern(ctx, []byte("got:hi"), 5*time.Second))
	assert.NoError(t, s.Wait(ctx))
}

func TestSessionWaitForPatternTimeout(t *testing.T) {
	requireShell(t)

	s, err := NewSession(Config{Command: "sh", Args: []string{"-c", "sleep 30"}, KillGrace: 200 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	err = s.WaitForPattern(context.Background(), []byte("never"), 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout waiting for pattern")
}

func TestSessionResize(t *testing.T) {
	requireShell(t)

	s, err := NewSession(Config{
		Command:   "sh",
		Args:      []string{"-c", "sleep 30"},
		Rows:      24,
		Cols:      80,
		KillGrace: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	rows, cols, err := pty.Getsize(s.PTY())
	require.NoError(t, err)
	assert.Equal(t, 24, rows)
	assert.Equal(t, 80, cols)

	require.NoError(t, s.Resize(30, 100))
	rows, cols, err = pty.Getsize(s.PTY())
	require.NoError(t, err)
	assert.Equal(t, 30, rows)
	assert.Equal(t, 100, cols)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Resize(10, 10), ErrSessionClosed)
	assert.ErrorIs(t, s.SendKeys("x"), ErrSessionClosed)
}

func TestNewSessionBadCommand(t *testing.T) {
	_, err := NewSession(Config{Command: "/nonexistent/janitor-test-binary"})
	assert.Error(t, err)
}
