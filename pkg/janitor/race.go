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
	"sync/atomic"
)

// WinFunc is handed to a race's setup. The path that completes normally
// calls it to claim the race. It returns ErrRaceResolved if the race was
// already won or lost.
type WinFunc func() error

// SetupFunc arranges the pending operation of a race and returns the
// action to run if the race is lost.
type SetupFunc func(win WinFunc) (Action, error)

const (
	racePending int32 = iota
	raceWon
	raceLost
)

type race struct {
	state atomic.Int32
	entry atomic.Pointer[entry]
}

// Race lets a pending operation and the Janitor's own teardown agree on
// which of them performs cleanup.
//
// Race calls setup with a WinFunc. If the operation completes before the
// Janitor disposes the race, it calls win and neither the loss handler
// returned by setup nor onLose ever runs. Otherwise, when the race's key
// is disposed or the Janitor is flushed, the loss handler runs and then
// onLose, each exactly once, and any later win returns ErrRaceResolved.
//
// The race is registered under the key given with WithKey, or a fresh
// Key. The key is returned so the caller can force the loss path with
// Dispose or drop the race with Cancel. If the race is still pending but
// cannot be registered, because the key's previous action fails or the
// Janitor was torn down during setup, the race is lost at once and the
// registration error is returned joined with any loss error.
func (j *Janitor) Race(setup SetupFunc, onLose Action, opts ...Option) (any, error) {
	if setup == nil {
		return nil, ErrNilAction
	}
	o := collect(opts)
	if !o.hasKey {
		o.key, o.hasKey = NewKey(), true
	}

	j.mu.Lock()
	dead := j.state != stateLive
	j.mu.Unlock()
	if dead {
		return nil, ErrTornDown
	}

	r := &race{}
	win := func() error {
		if !r.state.CompareAndSwap(racePending, raceWon) {
			return ErrRaceResolved
		}
		if e := r.entry.Load(); e != nil {
			j.cancelEntry(e)
		}
		return nil
	}

	loss, err := setup(win)
	if err != nil {
		r.state.CompareAndSwap(racePending, raceLost)
		return nil, err
	}
	if r.state.Load() == raceWon {
		return o.key, nil
	}

	lose := func() error {
		if !r.state.CompareAndSwap(racePending, raceLost) {
			return nil
		}
		if loss != nil {
			if err := loss(); err != nil {
				return err
			}
		}
		if onLose != nil {
			return onLose()
		}
		return nil
	}

	e, err := j.add(lose, o)
	if err != nil {
		// Nothing will dispose the race, so it loses now.
		return nil, errors.Join(err, lose())
	}
	r.entry.Store(e)
	// win may have run between setup returning and the entry being stored.
	if r.state.Load() == raceWon {
		j.cancelEntry(e)
	}
	return o.key, nil
}
