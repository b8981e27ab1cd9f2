// Package scenario loads YAML descriptions of janitor operations and plays
// them against a janitor.Janitor, recording which actions ran and in what
// order.
package scenario

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

	"github.com/rizome-dev/janitor/internal/utils"
	"gopkg.in/yaml.v3"
)

// Op is a scenario step operation
type Op string

const (
	OpAdd      Op = "add"
	OpDispose  Op = "dispose"
	OpCancel   Op = "cancel"
	OpFlush    Op = "flush"
	OpTeardown Op = "teardown"
	OpRace     Op = "race"
	OpWin      Op = "win"
)

var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrUnexpected      = errors.New("scenario did not behave as expected")
	ErrUnknownRace     = errors.New("race was never started")
)

// Scenario is a named sequence of steps
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Steps       []Step   `yaml:"steps"`
	Expect      []string `yaml:"expect,omitempty"`
}

// Step is a single janitor operation.
//
// For add, Name labels the action and Register names an action the added
// action registers while it runs. For race, Name identifies the race, Loss
// and OnLose label its handlers and Win makes setup win immediately.
// dispose and cancel address Key, or the key of the race named Race. win
// claims the race named Race.
type Step struct {
	Op          Op     `yaml:"op"`
	Name        string `yaml:"name,omitempty"`
	Key         string `yaml:"key,omitempty"`
	Fail        bool   `yaml:"fail,omitempty"`
	Register    string `yaml:"register,omitempty"`
	Race        string `yaml:"race,omitempty"`
	Loss        string `yaml:"loss,omitempty"`
	OnLose      string `yaml:"on_lose,omitempty"`
	Win         bool   `yaml:"win,omitempty"`
	ExpectError string `yaml:"expect_error,omitempty"`
}

func (s Step) String() string {
	switch s.Op {
	case OpAdd:
		if s.Key != "" {
			return fmt.Sprintf("add %s [%s]", s.Name, s.Key)
		}
		return fmt.Sprintf("add %s", s.Name)
	case OpDispose, OpCancel:
		if s.Race != "" {
			return fmt.Sprintf("%s race %s", s.Op, s.Race)
		}
		return fmt.Sprintf("%s [%s]", s.Op, s.Key)
	case OpRace:
		if s.Win {
			return fmt.Sprintf("race %s (wins in setup)", s.Name)
		}
		return fmt.Sprintf("race %s", s.Name)
	case OpWin:
		return fmt.Sprintf("win %s", s.Race)
	default:
		return string(s.Op)
	}
}

// Load reads and validates a scenario file
func Load(path string) (*Scenario, error) {
	data, err := utils.SafeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario document
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that every step is well formed
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	races := make(map[string]bool)
	for i, s := range sc.Steps {
		if err := s.validate(races); err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", ErrInvalidScenario, i+1, s.Op, err)
		}
	}
	return nil
}

func (s Step) validate(races map[string]bool) error {
	switch s.Op {
	case OpAdd:
		if s.Name == "" {
			return errors.New("name is required")
		}
	case OpDispose, OpCancel:
		if s.Key == "" && s.Race == "" {
			return errors.New("key or race is required")
		}
		if s.Race != "" && !races[s.Race] {
			return fmt.Errorf("unknown race %q", s.Race)
		}
	case OpRace:
		if s.Name == "" {
			return errors.New("name is required")
		}
		if races[s.Name] {
			return fmt.Errorf("duplicate race %q", s.Name)
		}
		races[s.Name] = true
	case OpWin:
		if !races[s.Race] {
			return fmt.Errorf("unknown race %q", s.Race)
		}
	case OpFlush, OpTeardown:
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}
