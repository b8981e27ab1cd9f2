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
	"fmt"
	"io"
	"reflect"
	"time"
)

// DefaultMethod is the release method AddMethod calls when none is named.
const DefaultMethod = "Close"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// AddMethod registers a call of handle's method named method. The method
// must take no arguments. If its last result is an error, that error is
// returned when the action runs; other results are discarded.
func (j *Janitor) AddMethod(handle any, method string, opts ...Option) error {
	action, err := methodAction(handle, method)
	if err != nil {
		return err
	}
	return j.Add(action, opts...)
}

func methodAction(handle any, name string) (Action, error) {
	if name == "" {
		name = DefaultMethod
	}
	if isNil(handle) {
		return nil, fmt.Errorf("%w: nil handle %T", ErrBadMethod, handle)
	}

	m := reflect.ValueOf(handle).MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %T has no method %s", ErrBadMethod, handle, name)
	}
	t := m.Type()
	if t.NumIn() != 0 {
		return nil, fmt.Errorf("%w: %T.%s takes arguments", ErrBadMethod, handle, name)
	}
	returnsErr := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType

	return func() error {
		out := m.Call(nil)
		if !returnsErr {
			return nil
		}
		err, _ := out[len(out)-1].Interface().(error)
		return err
	}, nil
}

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// AddFunc registers f.
func (j *Janitor) AddFunc(f func(), opts ...Option) error {
	return j.Add(Func(f), opts...)
}

// AddCloser registers closer.Close.
func (j *Janitor) AddCloser(closer io.Closer, opts ...Option) error {
	if isNil(closer) {
		return ErrNilAction
	}
	return j.Add(closer.Close, opts...)
}

// AddCancel registers a context cancellation.
func (j *Janitor) AddCancel(cancel context.CancelFunc, opts ...Option) error {
	return j.AddFunc(cancel, opts...)
}

// AddTimer registers stopping t.
func (j *Janitor) AddTimer(t *time.Timer, opts ...Option) error {
	if t == nil {
		return ErrNilAction
	}
	return j.AddFunc(func() { t.Stop() }, opts...)
}
