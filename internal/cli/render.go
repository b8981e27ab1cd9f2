package cli

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
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rizome-dev/janitor/internal/scenario"
)

// traceStyles holds the styles used to render scenario traces
type traceStyles struct {
	title   lipgloss.Style
	step    lipgloss.Style
	invoked lipgloss.Style
	failure lipgloss.Style
	success lipgloss.Style
	muted   lipgloss.Style
}

func newTraceStyles(w io.Writer, color bool) traceStyles {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	return traceStyles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			MarginTop(1),
		step: r.NewStyle().
			PaddingLeft(2),
		invoked: r.NewStyle().
			Foreground(lipgloss.Color("214")),
		failure: r.NewStyle().
			Foreground(lipgloss.Color("161")),
		success: r.NewStyle().
			Foreground(lipgloss.Color("42")),
		muted: r.NewStyle().
			Foreground(lipgloss.Color("244")),
	}
}

// renderTrace writes a human readable trace of a scenario run
func renderTrace(w io.Writer, st traceStyles, trace *scenario.Trace, checkErr error) {
	sc := trace.Scenario
	fmt.Fprintln(w, st.title.Render(sc.Name))
	if sc.Description != "" {
		fmt.Fprintln(w, st.step.Render(st.muted.Render(sc.Description)))
	}

	for i, res := range trace.Steps {
		var line strings.Builder

		if res.Err != nil && res.Step.ExpectError == "" {
			line.WriteString(st.failure.Render("●"))
		} else {
			line.WriteString(st.success.Render("●"))
		}
		fmt.Fprintf(&line, " %2d %s", i+1, res.Step)

		if len(res.Invoked) > 0 {
			line.WriteString(" → ")
			line.WriteString(st.invoked.Render(strings.Join(res.Invoked, ", ")))
		}
		if res.Err != nil {
			line.WriteString(" ")
			line.WriteString(st.muted.Render(fmt.Sprintf("(%v)", res.Err)))
		}

		fmt.Fprintln(w, st.step.Render(line.String()))
	}

	summary := fmt.Sprintf("invoked: %s", strings.Join(trace.Invoked(), ", "))
	if trace.Remaining > 0 {
		summary += fmt.Sprintf("  pending: %d", trace.Remaining)
	}
	fmt.Fprintln(w, st.step.Render(st.muted.Render(summary)))

	if checkErr != nil {
		fmt.Fprintln(w, st.step.Render(st.failure.Render("✘ "+checkErr.Error())))
	} else if sc.Expect != nil {
		fmt.Fprintln(w, st.step.Render(st.success.Render("✔ expectations met")))
	}
}
