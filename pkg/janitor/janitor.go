// Package janitor provides a registry of disposal actions that are run in
// reverse registration order when their owner decides the underlying
// resources are no longer needed.
//
// Usage:
//
//	j := janitor.New()
//	j.AddCloser(conn)
//	j.AddFunc(unsubscribe, janitor.WithKey("events"))
//	...
//	j.Dispose("events")  // releases only the subscription
//	...
//	j.Teardown()         // closes conn, janitor is now unusable
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
	"fmt"
	"reflect"
	"sync"

	"github.com/rizome-dev/janitor/internal/log"
)

// Action is a disposal action. A non-nil error is returned to whichever
// call caused the action to run.
type Action func() error

// Func adapts a function that cannot fail into an Action.
func Func(f func()) Action {
	if f == nil {
		return nil
	}
	return func() error {
		f()
		return nil
	}
}

type state int

const (
	stateLive state = iota
	stateClosing
	stateDead
)

// entry is one slot of the stack. A dead entry is a tombstone.
type entry struct {
	action Action
	key    any
	keyed  bool
	dead   bool
}

// Janitor is a stack of disposal actions, optionally indexed by key.
//
// A Janitor is safe for concurrent use. Actions are never invoked while
// internal locks are held, so an action may call back into the Janitor
// that is running it. The zero value is an empty, usable Janitor.
type Janitor struct {
	mu      sync.Mutex
	actions []*entry
	keyed   map[any]*entry
	live    int
	state   state
}

// New returns an empty Janitor.
func New() *Janitor {
	return &Janitor{keyed: make(map[any]*entry)}
}

// Is reports whether v is a Janitor that has not been torn down.
func Is(v any) bool {
	j, ok := v.(*Janitor)
	if !ok || j == nil {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state != stateDead
}

// Add pushes action onto the stack. With WithKey, any action already
// registered under the key is invoked and removed first; if it fails, its
// error is returned and action is not registered.
func (j *Janitor) Add(action Action, opts ...Option) error {
	_, err := j.add(action, collect(opts))
	return err
}

func (j *Janitor) add(action Action, o addOptions) (*entry, error) {
	if action == nil {
		return nil, ErrNilAction
	}
	if o.hasKey && !reflect.ValueOf(o.key).Comparable() {
		return nil, fmt.Errorf("%w: key of type %T is not comparable", ErrBadKey, o.key)
	}

	for {
		j.mu.Lock()
		if j.state != stateLive {
			j.mu.Unlock()
			return nil, ErrTornDown
		}

		var prev *entry
		if o.hasKey {
			prev = j.keyed[o.key]
		}
		if prev == nil {
			e := &entry{action: action, key: o.key, keyed: o.hasKey}
			j.push(e)
			j.mu.Unlock()
			return e, nil
		}

		// The previous action may itself register under the same key, so
		// look again after it has run.
		old := j.detach(prev)
		j.mu.Unlock()
		log.Debug("janitor: replacing keyed action", "key", o.key)
		if err := invoke(prev.key, old); err != nil {
			return nil, err
		}
	}
}

// push must be called with j.mu held.
func (j *Janitor) push(e *entry) {
	if e.keyed {
		if j.keyed == nil {
			j.keyed = make(map[any]*entry)
		}
		j.keyed[e.key] = e
	}
	j.actions = append(j.actions, e)
	j.live++
}

// detach tombstones e in place and returns its action. It must be called
// with j.mu held on a live entry.
func (j *Janitor) detach(e *entry) Action {
	action := e.action
	e.action = nil
	e.dead = true
	if e.keyed && j.keyed[e.key] == e {
		delete(j.keyed, e.key)
	}
	j.live--
	j.compact()
	return action
}

// compact drops tombstones once they dominate the stack. Entries are
// pointers, so the key index stays valid.
func (j *Janitor) compact() {
	if len(j.actions) < 32 || len(j.actions) <= 2*j.live {
		return
	}
	n := 0
	for _, e := range j.actions {
		if !e.dead {
			j.actions[n] = e
			n++
		}
	}
	clear(j.actions[n:])
	j.actions = j.actions[:n]
}

func invoke(key any, action Action) error {
	if err := action(); err != nil {
		return &actionError{key: key, err: err}
	}
	return nil
}

// Dispose invokes and removes the action registered under key. It is a
// no-op if no action is registered under key.
func (j *Janitor) Dispose(key any) error {
	j.mu.Lock()
	if j.state == stateDead {
		j.mu.Unlock()
		return ErrTornDown
	}
	e := j.lookup(key)
	if e == nil {
		j.mu.Unlock()
		return nil
	}
	action := j.detach(e)
	j.mu.Unlock()
	return invoke(key, action)
}

// Cancel removes the action registered under key without invoking it.
func (j *Janitor) Cancel(key any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == stateDead {
		return ErrTornDown
	}
	if e := j.lookup(key); e != nil {
		j.detach(e)
	}
	return nil
}

// cancelEntry tombstones e if it is still live.
func (j *Janitor) cancelEntry(e *entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !e.dead {
		j.detach(e)
	}
}

func (j *Janitor) lookup(key any) *entry {
	if key == nil || !reflect.ValueOf(key).Comparable() {
		return nil
	}
	return j.keyed[key]
}

// Has reports whether an action is registered under key.
func (j *Janitor) Has(key any) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lookup(key) != nil
}

// Len returns the number of actions that have not yet been invoked or
// cancelled.
func (j *Janitor) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.live
}

// Flush invokes every registered action, most recently registered first,
// and leaves the Janitor empty.
//
// Flush works on the stack as it was when Flush was called. Actions
// registered while it runs are kept for the next Flush.
//
// The first action to fail stops the flush and its error is returned.
// Actions that were not reached stay registered, beneath anything added
// during the flush, and run on the next Flush or Teardown.
func (j *Janitor) Flush() error {
	j.mu.Lock()
	if j.state == stateDead {
		j.mu.Unlock()
		return ErrTornDown
	}
	j.mu.Unlock()
	return j.flush()
}

func (j *Janitor) flush() error {
	j.mu.Lock()
	pending := j.actions
	j.actions = nil
	j.mu.Unlock()

	if len(pending) > 0 {
		log.Debug("janitor: flushing", "slots", len(pending))
	}

	i := len(pending) - 1
	defer func() {
		if i >= 0 {
			j.restore(pending[:i])
		}
	}()
	for ; i >= 0; i-- {
		e := pending[i]
		j.mu.Lock()
		if e.dead {
			j.mu.Unlock()
			continue
		}
		action := j.detach(e)
		j.mu.Unlock()

		if err := invoke(e.key, action); err != nil {
			return err
		}
	}
	return nil
}

// restore puts the live entries of rest back underneath the current stack.
func (j *Janitor) restore(rest []*entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	kept := make([]*entry, 0, len(rest)+len(j.actions))
	for _, e := range rest {
		if !e.dead {
			kept = append(kept, e)
		}
	}
	j.actions = append(kept, j.actions...)
}

// Teardown flushes the Janitor and then disables it. Every later call on
// the Janitor returns ErrTornDown.
//
// Registrations made by actions while Teardown runs are rejected with
// ErrTornDown. If an action fails, Teardown returns its error and the
// Janitor stays usable with the unreached actions still registered.
func (j *Janitor) Teardown() error {
	j.mu.Lock()
	if j.state != stateLive {
		j.mu.Unlock()
		return ErrTornDown
	}
	j.state = stateClosing
	j.mu.Unlock()

	flushed := false
	defer func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if !flushed {
			j.state = stateLive
			return
		}
		j.state = stateDead
		j.actions = nil
		j.keyed = nil
		log.Debug("janitor: torn down")
	}()

	if err := j.flush(); err != nil {
		return err
	}
	flushed = true
	return nil
}

func (j *Janitor) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == stateDead {
		return "Janitor(torn down)"
	}
	return fmt.Sprintf("Janitor(%d pending, %d keyed)", j.live, len(j.keyed))
}
