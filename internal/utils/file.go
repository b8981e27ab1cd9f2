package utils

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
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// ownerIDs returns the uid and gid of the invoking user when running under
// sudo. ok is false otherwise.
func ownerIDs() (uid, gid int, ok bool, err error) {
	name := os.Getenv("SUDO_USER")
	if name == "" {
		return 0, 0, false, nil
	}

	u, err := user.Lookup(name)
	if err != nil {
		return 0, 0, false, err
	}
	if uid, err = strconv.Atoi(u.Uid); err != nil {
		return 0, 0, false, fmt.Errorf("failed to parse UID: %w", err)
	}
	if gid, err = strconv.Atoi(u.Gid); err != nil {
		return 0, 0, false, fmt.Errorf("failed to parse GID: %w", err)
	}
	return uid, gid, true, nil
}

// chownToOwner hands path back to the sudo user, if any
func chownToOwner(path string) error {
	uid, gid, ok, err := ownerIDs()
	if err != nil || !ok {
		return err
	}
	return os.Chown(path, uid, gid)
}

// EnsureDir creates dir and its parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return chownToOwner(dir)
}

// WriteFile replaces path with data by writing a temp file in the same
// directory and renaming it into place. Missing directories are created.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".janitor-")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := chownToOwner(tmpPath); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// FileExists reports whether anything exists at path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// SafeReadFile reads a regular file after cleaning the path
func SafeReadFile(path string) ([]byte, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", absPath)
	}

	// #nosec G304 -- path has been validated above
	return os.ReadFile(absPath)
}
