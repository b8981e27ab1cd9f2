package log

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
	"log/slog"
	"strconv"
)

// A Level is the importance or severity of a log event.
// The higher the level, the more important or severe the event.
type Level slog.Level

// Names for common levels. LevelDisabled is above every other level, so a
// logger set to it emits nothing.
const (
	LevelDebug    = Level(slog.LevelDebug)
	LevelInfo     = Level(slog.LevelInfo)
	LevelWarn     = Level(slog.LevelWarn)
	LevelError    = Level(slog.LevelError)
	LevelDisabled = Level(1<<31 - 1)
)

// String returns a name for the level.
//
//	LevelWarn.String() => "WARN"
func (l Level) String() string {
	if l >= LevelDisabled {
		return "DISABLED"
	}
	return slog.Level(l).String()
}

// Level implements [slog.Leveler].
func (l Level) Level() slog.Level { return slog.Level(l) }

// MarshalText implements [encoding.TextMarshaler].
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
// It accepts any string produced by [Level.MarshalText], ignoring case,
// as well as "disable", "off" and "false".
func (l *Level) UnmarshalText(data []byte) error {
	switch string(bytes.ToLower(data)) {
	case "disable", "disabled", "off", "false":
		*l = LevelDisabled
		return nil
	}
	return (*slog.Level)(l).UnmarshalText(data)
}

// MarshalJSON quotes the output of [Level.String].
func (l Level) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, l.String()), nil
}

// UnmarshalJSON accepts any quoted string accepted by [Level.UnmarshalText].
func (l *Level) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	return l.UnmarshalText([]byte(s))
}

// ParseLevel parses s as a [Level].
func ParseLevel(s string) (Level, error) {
	var l Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// LevelFlag implements pflag.Value so a Level can be bound to a command-line flag.
type LevelFlag Level

func (lf *LevelFlag) String() string {
	return Level(*lf).String()
}

func (lf *LevelFlag) Set(s string) error {
	return (*Level)(lf).UnmarshalText([]byte(s))
}

func (lf *LevelFlag) Type() string {
	return "level"
}
