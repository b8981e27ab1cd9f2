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

	"github.com/google/uuid"
)

type addOptions struct {
	key    any
	hasKey bool
}

// Option configures a single registration.
type Option func(*addOptions)

// WithKey registers the action under key. Any action already registered
// under the same key is disposed first. key must be comparable.
func WithKey(key any) Option {
	return func(o *addOptions) {
		o.key = key
		o.hasKey = key != nil
	}
}

func collect(opts []Option) addOptions {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Key is a generated registration key. Every call to NewKey returns a key
// that compares unequal to every other key.
type Key struct {
	id uuid.UUID
}

// NewKey returns a fresh unique key.
func NewKey() Key {
	return Key{id: uuid.New()}
}

func (k Key) String() string {
	return fmt.Sprintf("key-%s", k.id)
}
