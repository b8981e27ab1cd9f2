package janitor

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
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCloser struct {
	closed int
	err    error
}

func (m *mockCloser) Close() error {
	m.closed++
	return m.err
}

type connection struct {
	disconnected bool
	destroyed    bool
}

func (c *connection) Disconnect()            { c.disconnected = true }
func (c *connection) Destroy() (bool, error) { c.destroyed = true; return true, nil }
func (c *connection) Send(msg string) error  { return nil }
func (c *connection) Count() int             { return 0 }

func TestAddMethod(t *testing.T) {
	j := New()
	c := &connection{}

	require.NoError(t, j.AddMethod(c, "Disconnect"))
	require.NoError(t, j.AddMethod(c, "Destroy", WithKey(c)))
	assert.True(t, j.Has(c))

	require.NoError(t, j.Flush())
	assert.True(t, c.disconnected)
	assert.True(t, c.destroyed)
}

func TestAddMethodDefaultsToClose(t *testing.T) {
	j := New()
	m := &mockCloser{err: errors.New("already closed")}

	require.NoError(t, j.AddMethod(m, ""))
	err := j.Flush()
	assert.ErrorIs(t, err, m.err)
	assert.Equal(t, 1, m.closed)
}

func TestAddMethodValidation(t *testing.T) {
	tests := []struct {
		name   string
		handle any
		method string
	}{
		{"nil handle", nil, "Close"},
		{"typed nil pointer", (*connection)(nil), "Disconnect"},
		{"typed nil closer", (*mockCloser)(nil), ""},
		{"missing method", &connection{}, "Close"},
		{"takes arguments", &connection{}, "Send"},
		{"unexported", &connection{}, "disconnect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := New()
			err := j.AddMethod(tt.handle, tt.method)
			assert.ErrorIs(t, err, ErrBadMethod)
			assert.Equal(t, 0, j.Len())
		})
	}
}

func TestAddMethodIgnoresNonErrorResults(t *testing.T) {
	j := New()
	require.NoError(t, j.AddMethod(&connection{}, "Count"))
	assert.NoError(t, j.Flush())
}

func TestAddCloser(t *testing.T) {
	j := New()
	m1 := &mockCloser{}
	m2 := &mockCloser{}

	require.NoError(t, j.AddCloser(m1))
	require.NoError(t, j.AddCloser(m2, WithKey("second")))
	assert.ErrorIs(t, j.AddCloser(nil), ErrNilAction)

	require.NoError(t, j.Dispose("second"))
	assert.Equal(t, 0, m1.closed)
	assert.Equal(t, 1, m2.closed)

	require.NoError(t, j.Teardown())
	assert.Equal(t, 1, m1.closed)
	assert.Equal(t, 1, m2.closed)
}

func TestAddCloserTypedNil(t *testing.T) {
	j := New()
	var m *mockCloser
	var closer io.Closer = m

	assert.ErrorIs(t, j.AddCloser(closer), ErrNilAction)
	assert.Equal(t, 0, j.Len())
	assert.NoError(t, j.Flush())
}

func TestAddCancel(t *testing.T) {
	j := New()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, j.AddCancel(cancel))
	assert.NoError(t, ctx.Err())

	require.NoError(t, j.Flush())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestAddTimer(t *testing.T) {
	j := New()
	fired := make(chan struct{})
	timer := time.AfterFunc(time.Hour, func() { close(fired) })

	require.NoError(t, j.AddTimer(timer))
	assert.ErrorIs(t, j.AddTimer(nil), ErrNilAction)
	require.NoError(t, j.Flush())

	assert.False(t, timer.Stop(), "timer should already be stopped")
}
