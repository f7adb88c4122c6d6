package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
)

type lineKind int

const (
	lineText lineKind = iota
	lineTitle
	lineSelected
	lineConflict
	lineWarning
)

var lineStyles = map[lineKind]tcell.Style{
	lineText:     tcell.StyleDefault,
	lineTitle:    tcell.StyleDefault.Bold(true),
	lineSelected: tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
	lineConflict: tcell.StyleDefault.Foreground(tcell.ColorYellow),
	lineWarning:  tcell.StyleDefault.Foreground(tcell.ColorRed),
}

type line struct {
	kind lineKind
	text string
}

// view is everything one frame shows
type view struct {
	MapLabel    string
	ActionLabel string
	Snap        capture.Snapshot
	Now         time.Time
	Conflicts   []common.ConflictEntry
	Log         []common.LogEntry
}

func remaining(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return "-"
	}
	left := deadline.Sub(now)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%.1fs", left.Seconds())
}

func (v view) lines() []line {
	out := []line{
		{lineTitle, fmt.Sprintf("Binding %s / %s", v.MapLabel, v.ActionLabel)},
		{lineText, fmt.Sprintf("State: %s   Time left: %s", v.Snap.State, remaining(v.Snap.PrimaryDeadline, v.Now))},
		{lineText, "Press the input to bind. Enter confirms, Tab picks another, Esc cancels."},
		{lineText, ""},
	}
	if len(v.Snap.Detected) == 0 {
		out = append(out, line{lineText, "Waiting for input..."})
	} else {
		out = append(out, line{lineTitle, "Detected:"})
	}
	for _, c := range v.Snap.Detected {
		kind, marker := lineText, "   "
		if c.Input == v.Snap.Selected {
			kind, marker = lineSelected, " > "
		}
		out = append(out, line{kind, fmt.Sprintf("%s%-28s %s", marker, c.Input, c.DisplayName)})
	}
	if len(v.Conflicts) > 0 {
		out = append(out, line{lineText, ""},
			line{lineTitle, fmt.Sprintf("%s is already bound to:", v.Snap.Selected)})
		for _, c := range v.Conflicts {
			out = append(out, line{lineConflict, fmt.Sprintf("   %s / %s", c.ActionMapLabel, c.ActionLabel)})
		}
	}
	if v.Snap.BackendComplete {
		out = append(out, line{lineText, ""}, line{lineText, "Device backend finished listening."})
	}
	warnings := append([]string(nil), v.Snap.Warnings...)
	for _, e := range v.Log {
		if e.IsError || e.IsWarning {
			warnings = append(warnings, e.Msg)
		}
	}
	if len(warnings) > 0 {
		out = append(out, line{lineText, ""})
		for _, w := range warnings {
			out = append(out, line{lineWarning, w})
		}
	}
	return out
}

func (v view) draw(screen tcell.Screen) {
	screen.Clear()
	width, height := screen.Size()
	for y, l := range v.lines() {
		if y >= height {
			break
		}
		x := 0
		for _, r := range l.text {
			if x >= width {
				break
			}
			screen.SetContent(x, y, r, nil, lineStyles[l.kind])
			x++
		}
	}
	screen.Show()
}
