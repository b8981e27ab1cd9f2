// Package log is a thin package-level facade over log/slog.
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
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	level         = new(slog.LevelVar)
	defaultLogger atomic.Pointer[slog.Logger]
)

func init() {
	SetTextHandler(os.Stderr)
}

// Logger returns the current package logger.
func Logger() *slog.Logger {
	return defaultLogger.Load()
}

// With returns the package logger with args attached.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// SetLevel sets the minimum level emitted by handlers installed through
// SetTextHandler and SetJSONHandler.
func SetLevel(l Level) {
	level.Set(slog.Level(l))
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	return Level(level.Level())
}

// SetHandler replaces the package logger's handler.
func SetHandler(h slog.Handler) {
	defaultLogger.Store(slog.New(h))
}

// SetTextHandler logs text records to w.
func SetTextHandler(w io.Writer) {
	SetHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetJSONHandler logs JSON records to w.
func SetJSONHandler(w io.Writer) {
	SetHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Debug logs at [LevelDebug].
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at [LevelInfo].
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at [LevelWarn].
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at [LevelError], attaching err as "cause" when non-nil.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"cause", err}, args...)
	}
	Logger().Error(msg, args...)
}
