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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at an empty temp dir so no
// user config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func testdata(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "scenario", "testdata", name))
	require.NoError(t, err)
	return path
}

func TestRootCmd(t *testing.T) {
	cmd := RootCmd()

	t.Run("Basic Properties", func(t *testing.T) {
		assert.Equal(t, "janitor", cmd.Use)
		assert.Contains(t, cmd.Short, "cleanup registry")
		assert.NotEmpty(t, cmd.Long)
	})

	t.Run("Help Output", func(t *testing.T) {
		out, err := execute(t, "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "releases them in reverse order")
		assert.Contains(t, out, "run")
		assert.Contains(t, out, "exec")
		assert.Contains(t, out, "config")
	})
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := RootCmd()

	expected := map[string]bool{
		"run":    true,
		"exec":   true,
		"config": true,
	}
	for _, sub := range cmd.Commands() {
		delete(expected, sub.Name())
	}
	assert.Empty(t, expected, "Missing commands: %v", expected)
}

func TestRootCmd_InvalidCommand(t *testing.T) {
	_, err := execute(t, "invalid-command")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--log-level", "loud", "config", "show")
	assert.Error(t, err)
}

func TestRunCmd(t *testing.T) {
	paths := []string{
		testdata(t, "lifo.yaml"),
		testdata(t, "keyed.yaml"),
		testdata(t, "race.yaml"),
		testdata(t, "failure.yaml"),
	}
	isolate(t)

	t.Run("Scenarios Pass", func(t *testing.T) {
		out, err := execute(t, append([]string{"--no-color", "run"}, paths...)...)
		require.NoError(t, err)
		for _, name := range []string{"lifo", "keyed", "race", "failure"} {
			assert.Contains(t, out, name)
		}
		assert.Contains(t, out, "expectations met")
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("Failed Expectation", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte(`name: bad
steps:
  - op: add
    name: A
  - op: add
    name: B
  - op: flush
expect: [A, B]
`), 0644))

		out, err := execute(t, "--no-color", "run", paths[0], bad)
		require.Error(t, err)

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.Code)
		assert.Contains(t, err.Error(), "1 of 2 scenarios failed")
		assert.Contains(t, out, "✘")
	})

	t.Run("No Check", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte(`name: bad
steps:
  - op: add
    name: A
  - op: flush
expect: [Z]
`), 0644))

		_, err := execute(t, "run", "--no-check", bad)
		assert.NoError(t, err)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Requires Argument", func(t *testing.T) {
		_, err := execute(t, "run")
		assert.Error(t, err)
	})
}

func TestConfigCmd(t *testing.T) {
	home := isolate(t)

	t.Run("Show Defaults", func(t *testing.T) {
		out, err := execute(t, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "log_level: info")
		assert.Contains(t, out, "shutdown_timeout: 3s")
		assert.Contains(t, out, "color: true")
	})

	t.Run("Show Flag Overrides", func(t *testing.T) {
		out, err := execute(t, "--log-level", "debug", "--no-color", "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "log_level: debug")
		assert.Contains(t, out, "color: false")
	})

	t.Run("Init", func(t *testing.T) {
		out, err := execute(t, "config", "init")
		require.NoError(t, err)

		path := filepath.Join(home, ".janitor", "config.yaml")
		assert.Contains(t, out, path)
		assert.FileExists(t, path)

		_, err = execute(t, "config", "init")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		_, err = execute(t, "config", "init", "--force")
		assert.NoError(t, err)
	})

	t.Run("Init Output Path And Reload", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "janitor.yaml")
		_, err := execute(t, "config", "init", "-o", path)
		require.NoError(t, err)

		out, err := execute(t, "--config", path, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "kill_grace: 2s")
	})

	t.Run("Explicit Missing Config", func(t *testing.T) {
		_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config", "show")
		assert.Error(t, err)
	})
}
