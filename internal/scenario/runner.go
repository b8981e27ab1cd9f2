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
	"fmt"
	"slices"
	"strings"

	"github.com/rizome-dev/janitor/internal/log"
	"github.com/rizome-dev/janitor/pkg/janitor"
)

// StepResult records what happened during one step
type StepResult struct {
	Step    Step
	Invoked []string
	Err     error
}

// Trace is the outcome of running a scenario
type Trace struct {
	Scenario *Scenario
	Steps    []StepResult
	// Remaining is the number of live actions left after the last step
	Remaining int
}

// Invoked returns every invoked action label in order
func (t *Trace) Invoked() []string {
	var all []string
	for _, s := range t.Steps {
		all = append(all, s.Invoked...)
	}
	return all
}

// Check compares the trace with the scenario's expectations
func (t *Trace) Check() error {
	var problems []string
	for i, s := range t.Steps {
		want := s.Step.ExpectError
		switch {
		case want == "" && s.Err != nil:
			problems = append(problems, fmt.Sprintf("step %d (%s): unexpected error: %v", i+1, s.Step, s.Err))
		case want != "" && s.Err == nil:
			problems = append(problems, fmt.Sprintf("step %d (%s): expected error containing %q", i+1, s.Step, want))
		case want != "" && !strings.Contains(s.Err.Error(), want):
			problems = append(problems, fmt.Sprintf("step %d (%s): error %q does not contain %q", i+1, s.Step, s.Err, want))
		}
	}
	if t.Scenario.Expect != nil && !slices.Equal(t.Scenario.Expect, t.Invoked()) {
		problems = append(problems, fmt.Sprintf("invoked %v, expected %v", t.Invoked(), t.Scenario.Expect))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrUnexpected, strings.Join(problems, "; "))
	}
	return nil
}

// runner plays steps against a janitor
type runner struct {
	j       *janitor.Janitor
	wins    map[string]janitor.WinFunc
	keys    map[string]any
	current *StepResult
}

// Run plays sc against j. Step errors are recorded in the trace rather than
// stopping the run.
func Run(j *janitor.Janitor, sc *Scenario) *Trace {
	r := &runner{
		j:    j,
		wins: make(map[string]janitor.WinFunc),
		keys: make(map[string]any),
	}
	trace := &Trace{Scenario: sc, Steps: make([]StepResult, len(sc.Steps))}
	for i, step := range sc.Steps {
		r.current = &trace.Steps[i]
		r.current.Step = step
		r.current.Err = r.do(step)
		log.Debug("scenario step", "scenario", sc.Name, "step", step.String(), "invoked", r.current.Invoked, "error", r.current.Err)
	}
	trace.Remaining = j.Len()
	return trace
}

// action records label in whichever step is running when it is invoked
func (r *runner) action(label string, fail bool, register string) janitor.Action {
	return func() error {
		r.current.Invoked = append(r.current.Invoked, label)
		if register != "" {
			if err := r.j.Add(r.action(register, false, "")); err != nil {
				return err
			}
		}
		if fail {
			return fmt.Errorf("%s failed", label)
		}
		return nil
	}
}

// key resolves the key a dispose or cancel step targets
func (r *runner) key(s Step) (any, error) {
	if s.Race == "" {
		return s.Key, nil
	}
	key, ok := r.keys[s.Race]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRace, s.Race)
	}
	return key, nil
}

func (r *runner) do(s Step) error {
	switch s.Op {
	case OpAdd:
		var opts []janitor.Option
		if s.Key != "" {
			opts = append(opts, janitor.WithKey(s.Key))
		}
		return r.j.Add(r.action(s.Name, s.Fail, s.Register), opts...)
	case OpDispose:
		key, err := r.key(s)
		if err != nil {
			return err
		}
		return r.j.Dispose(key)
	case OpCancel:
		key, err := r.key(s)
		if err != nil {
			return err
		}
		return r.j.Cancel(key)
	case OpFlush:
		return r.j.Flush()
	case OpTeardown:
		return r.j.Teardown()
	case OpRace:
		return r.race(s)
	case OpWin:
		win, ok := r.wins[s.Race]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRace, s.Race)
		}
		return win()
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

func (r *runner) race(s Step) error {
	var opts []janitor.Option
	if s.Key != "" {
		opts = append(opts, janitor.WithKey(s.Key))
	}

	var loss, onLose janitor.Action
	if s.Loss != "" {
		loss = r.action(s.Loss, s.Fail, "")
	}
	if s.OnLose != "" {
		onLose = r.action(s.OnLose, false, "")
	}

	key, err := r.j.Race(func(win janitor.WinFunc) (janitor.Action, error) {
		r.wins[s.Name] = win
		if s.Win {
			if err := win(); err != nil {
				return nil, err
			}
		}
		return loss, nil
	}, onLose, opts...)
	if err != nil {
		return err
	}
	r.keys[s.Name] = key
	return nil
}
