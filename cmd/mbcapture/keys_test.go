package main

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
)

func TestKeyEvent(t *testing.T) {
	formatter := &canonical.Formatter{}
	tests := []struct {
		name string
		key  tcell.Key
		ch   rune
		mod  tcell.ModMask
		want string
	}{
		{"letter", tcell.KeyRune, 'f', tcell.ModNone, "kb1_f"},
		{"upper case is shift", tcell.KeyRune, 'F', tcell.ModNone, "lshift+kb1_f"},
		{"digit", tcell.KeyRune, '3', tcell.ModNone, "kb1_3"},
		{"space", tcell.KeyRune, ' ', tcell.ModNone, "kb1_space"},
		{"punctuation", tcell.KeyRune, '[', tcell.ModNone, "kb1_lbracket"},
		{"alt letter", tcell.KeyRune, 'x', tcell.ModAlt, "lalt+kb1_x"},
		{"function key", tcell.KeyF5, 0, tcell.ModNone, "kb1_f5"},
		{"ctrl letter", tcell.KeyCtrlG, 0, tcell.ModCtrl, "lctrl+kb1_g"},
		{"backspace", tcell.KeyBackspace2, 0, tcell.ModNone, "kb1_backspace"},
		{"arrow with shift", tcell.KeyUp, 0, tcell.ModShift, "lshift+kb1_up"},
		{"modifier order", tcell.KeyF1, 0, tcell.ModShift | tcell.ModCtrl | tcell.ModAlt, "lalt+lctrl+lshift+kb1_f1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := keyEvent(tcell.NewEventKey(tt.key, tt.ch, tt.mod))
			if !ok {
				t.Fatal("key not translated")
			}
			res, err := formatter.Format(ev)
			if err != nil {
				t.Fatalf("Format failed: %v", err)
			}
			if res.Input != tt.want {
				t.Errorf("got %s, want %s", res.Input, tt.want)
			}
		})
	}
}

func TestKeyEvent_Untranslatable(t *testing.T) {
	if _, ok := keyEvent(tcell.NewEventKey(tcell.KeyRune, '!', tcell.ModShift)); ok {
		t.Error("shifted symbol should not translate")
	}
}

func TestMouseEvent(t *testing.T) {
	tests := []struct {
		name    string
		buttons tcell.ButtonMask
		prev    tcell.ButtonMask
		want    string
		ok      bool
	}{
		{"left", tcell.Button1, tcell.ButtonNone, "mouse1", true},
		{"right", tcell.Button2, tcell.ButtonNone, "mouse2", true},
		{"middle", tcell.Button3, tcell.ButtonNone, "mouse3", true},
		{"held left is not a new press", tcell.Button1, tcell.Button1, "", false},
		{"wheel up", tcell.WheelUp, tcell.ButtonNone, "mwheel_up", true},
		{"wheel down", tcell.WheelDown, tcell.ButtonNone, "mwheel_down", true},
		{"release", tcell.ButtonNone, tcell.Button1, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := mouseEvent(tcell.NewEventMouse(0, 0, tt.buttons, tcell.ModNone), tt.prev)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (ev.Source != common.SourceMouse || ev.Control.Name != tt.want) {
				t.Errorf("got %+v, want %s", ev, tt.want)
			}
		})
	}
}

func TestViewLines(t *testing.T) {
	now := time.Now()
	deadline := now.Add(2500 * time.Millisecond)
	v := view{
		MapLabel:    "Weapons",
		ActionLabel: "Fire Weapon Group 2",
		Now:         now,
		Snap: capture.Snapshot{
			State:           capture.MultiSelect,
			PrimaryDeadline: &deadline,
			Selected:        "kb1_f",
			Detected: []capture.Candidate{
				{Input: "kb1_f", DisplayName: "Keyboard - F"},
				{Input: "js1_button3", DisplayName: "Joystick 1 - Button 3"},
			},
			Warnings: []string{"input from unexpected device"},
		},
		Conflicts: []common.ConflictEntry{{ActionMapLabel: "Weapons", ActionLabel: "Fire Weapon Group 1"}},
		Log:       []common.LogEntry{{Msg: "ignored"}, {IsError: true, Msg: "disk full"}},
	}

	var text []string
	kinds := map[lineKind]int{}
	for _, l := range v.lines() {
		text = append(text, l.text)
		kinds[l.kind]++
	}
	joined := strings.Join(text, "\n")
	for _, want := range []string{
		"Binding Weapons / Fire Weapon Group 2",
		"State: multi_select   Time left: 2.5s",
		" > kb1_f",
		"   js1_button3",
		"kb1_f is already bound to:",
		"Weapons / Fire Weapon Group 1",
		"input from unexpected device",
		"disk full",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "ignored") {
		t.Error("plain log messages should not be shown")
	}
	if kinds[lineSelected] != 1 || kinds[lineConflict] != 1 || kinds[lineWarning] != 2 {
		t.Errorf("unexpected line kinds %v", kinds)
	}
}

func TestViewDraw(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()
	screen.SetSize(80, 10)

	view{MapLabel: "Weapons", ActionLabel: "Fire", Now: time.Now()}.draw(screen)
	cells, width, _ := screen.GetContents()
	var first strings.Builder
	for x := 0; x < width; x++ {
		first.WriteString(string(cells[x].Runes))
	}
	if !strings.HasPrefix(first.String(), "Binding Weapons / Fire") {
		t.Errorf("first row = %q", first.String())
	}
}
