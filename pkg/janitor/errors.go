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
	"errors"
	"fmt"
)

var (
	// Lifecycle errors
	ErrTornDown = errors.New("janitor: used after teardown")

	// Registration errors
	ErrNilAction = errors.New("janitor: nil action")
	ErrBadMethod = errors.New("janitor: unusable release method")
	ErrBadKey    = errors.New("janitor: unusable key")

	// Race errors
	ErrRaceResolved = errors.New("janitor: race already resolved")

	// Invocation errors
	ErrActionFailed = errors.New("janitor: disposal action failed")
)

// actionError wraps the failure of a single disposal action so that both
// ErrActionFailed and the action's own error match under errors.Is.
type actionError struct {
	key any
	err error
}

func (e *actionError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("%v (key %v): %v", ErrActionFailed, e.key, e.err)
	}
	return fmt.Sprintf("%v: %v", ErrActionFailed, e.err)
}

func (e *actionError) Unwrap() []error {
	return []error{ErrActionFailed, e.err}
}
