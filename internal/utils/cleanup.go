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
	"io"
	"sync"

	"github.com/rizome-dev/janitor/internal/log"
	"github.com/rizome-dev/janitor/pkg/janitor"
)

// globalCleanup holds the process-wide cleanups run on shutdown
var (
	globalMu      sync.Mutex
	globalCleanup = janitor.New()
)

func processJanitor() *janitor.Janitor {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalCleanup
}

// RegisterCleanup registers a cleanup function to be called on shutdown
func RegisterCleanup(fn func()) {
	if err := processJanitor().AddFunc(fn); err != nil {
		log.Warn("cleanup not registered", "error", err)
	}
}

// RegisterCloser registers an io.Closer to be closed on shutdown
func RegisterCloser(closer io.Closer) {
	if err := processJanitor().AddCloser(closer); err != nil {
		log.Warn("closer not registered", "error", err)
	}
}

// RegisterKeyedCleanup registers fn under key, replacing (and running) any
// cleanup already registered under the same key.
func RegisterKeyedCleanup(key any, fn func()) error {
	return processJanitor().AddFunc(fn, janitor.WithKey(key))
}

// CancelCleanup drops the cleanup registered under key without running it
func CancelCleanup(key any) {
	_ = processJanitor().Cancel(key)
}

// RunCleanup runs all registered cleanup functions, most recent first.
// A failing cleanup is logged and the remaining ones still run. Cleanups
// registered while it runs get at most as many retries as there were
// cleanups to begin with.
func RunCleanup() {
	j := processJanitor()
	// A failed flush still consumes the action that failed.
	attempts := j.Len() + 1
	for i := 0; i < attempts; i++ {
		err := j.Flush()
		if err == nil {
			return
		}
		log.Error("cleanup failed", err)
	}
	log.Warn("giving up on cleanup", "pending", j.Len())
}

// resetCleanup swaps in an empty process janitor
func resetCleanup() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCleanup = janitor.New()
}
