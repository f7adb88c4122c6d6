package canonical

import (
	"errors"
	"strings"
	"testing"

	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/devices"
)

type fakeIdentities map[string]devices.Slot

func (f fakeIdentities) Resolve(uuid string) (devices.Slot, bool) {
	slot, found := f[uuid]
	return slot, found
}

type fakeAxes map[string]map[int]string

func (f fakeAxes) LogicalName(device string, raw int) string {
	if name, found := f[device][raw]; found {
		return name
	}
	return "axis" + string(rune('1'+raw))
}

func testFormatter() *Formatter {
	return &Formatter{
		Identities: fakeIdentities{"vkb-left": devices.SecondaryStick, "pad": devices.PrimaryGamepad},
		Axes:       fakeAxes{"vkb-left": {2: "z", 5: "rotz"}},
	}
}

func TestFormat_AxisDirectionBecomesInvert(t *testing.T) {
	f := testFormatter()
	tests := []struct {
		name       string
		control    Control
		wantInput  string
		wantInvert bool
	}{
		{"negative", Control{Kind: ControlAxis, Index: 3, Direction: DirNegative}, "js2_z", true},
		{"positive", Control{Kind: ControlAxis, Index: 3, Direction: DirPositive}, "js2_z", false},
		{"no direction", Control{Kind: ControlAxis, Index: 6}, "js2_rotz", false},
		{"unmapped", Control{Kind: ControlAxis, Index: 7, Direction: DirNegative}, "js2_axis7", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.Format(RawInputEvent{
				Source: common.SourceJoystick, DeviceID: "vkb-left", Instance: 1, Control: tt.control,
			})
			if err != nil {
				t.Fatal(err)
			}
			if res.Input != tt.wantInput || res.Invert != tt.wantInvert {
				t.Errorf("got %s invert=%v, want %s invert=%v", res.Input, res.Invert, tt.wantInput, tt.wantInvert)
			}
			if strings.Contains(res.Input, "positive") || strings.Contains(res.Input, "negative") {
				t.Errorf("direction leaked into %s", res.Input)
			}
		})
	}
}

func TestFormat_ModifierOrderIndependent(t *testing.T) {
	f := testFormatter()
	key := Control{Kind: ControlKey, Name: "KeyF"}
	orders := [][]Modifier{
		{"LCTRL", "LSHIFT"},
		{"LSHIFT", "LCTRL"},
		{"ShiftLeft", "ControlLeft", "lshift"},
	}
	for _, mods := range orders {
		res, err := f.Format(RawInputEvent{Source: common.SourceKeyboard, Control: key, Modifiers: mods})
		if err != nil {
			t.Fatal(err)
		}
		if res.Input != "lctrl+lshift+kb1_f" {
			t.Errorf("modifiers %v gave %s", mods, res.Input)
		}
	}

	res, _ := f.Format(RawInputEvent{Source: common.SourceKeyboard, Control: key,
		Modifiers: []Modifier{RShift, RAlt, LCtrl, "hyper"}})
	if res.Input != "ralt+lctrl+rshift+kb1_f" {
		t.Errorf("full order gave %s", res.Input)
	}
}

func TestFormat_DevicesAndControls(t *testing.T) {
	f := testFormatter()
	tests := []struct {
		name string
		ev   RawInputEvent
		want string
	}{
		{"button via slot", RawInputEvent{Source: common.SourceJoystick, DeviceID: "vkb-left", Instance: 1,
			Control: Control{Kind: ControlButton, Index: 3}}, "js2_button3"},
		{"unrecorded device keeps instance", RawInputEvent{Source: common.SourceJoystick, DeviceID: "other", Instance: 3,
			Control: Control{Kind: ControlButton, Index: 1}}, "js3_button1"},
		{"gamepad hat", RawInputEvent{Source: common.SourceGamepad, DeviceID: "pad", Instance: 2,
			Control: Control{Kind: ControlHat, Index: 1, Direction: DirUp}}, "gp1_hat1_up"},
		{"mouse", RawInputEvent{Source: common.SourceMouse, Control: Control{Kind: ControlNamed, Name: "mouse2"}}, "mo1_mouse2"},
		{"joystick chord", RawInputEvent{Source: common.SourceJoystick, DeviceID: "vkb-left",
			Control: Control{Kind: ControlButton, Index: 4}, Modifiers: []Modifier{LAlt}}, "lalt+js2_button4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.Format(tt.ev)
			if err != nil {
				t.Fatal(err)
			}
			if res.Input != tt.want {
				t.Errorf("got %s, want %s", res.Input, tt.want)
			}
		})
	}
}

func TestFormat_Errors(t *testing.T) {
	f := testFormatter()
	tests := []struct {
		name string
		ev   RawInputEvent
		want error
	}{
		{"bare modifier", RawInputEvent{Source: common.SourceKeyboard,
			Control: Control{Kind: ControlKey, Name: "ShiftLeft"}, Modifiers: []Modifier{LShift}}, ErrBareModifier},
		{"button zero", RawInputEvent{Source: common.SourceJoystick, Instance: 1,
			Control: Control{Kind: ControlButton}}, ErrUnparseable},
		{"instance zero", RawInputEvent{Source: common.SourceJoystick,
			Control: Control{Kind: ControlButton, Index: 1}}, ErrUnparseable},
		{"bad hat", RawInputEvent{Source: common.SourceJoystick, Instance: 1,
			Control: Control{Kind: ControlHat, Index: 1, Direction: "sideways"}}, ErrUnparseable},
		{"unknown source", RawInputEvent{Control: Control{Kind: ControlButton, Index: 1}}, ErrUnparseable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.Format(tt.ev); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalize_RejectsInstanceZero(t *testing.T) {
	for _, in := range []string{"js0_button1", "gp0_hat1_up"} {
		if out, err := Normalize(in); !errors.Is(err, ErrUnparseable) {
			t.Errorf("Normalize(%q) = %q, %v", in, out, err)
		}
	}
	// Keyboard and mouse are always instance 1
	if out, err := Normalize("kb0_f"); err != nil || out != "kb1_f" {
		t.Errorf("Normalize(kb0_f) = %q, %v", out, err)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	f := testFormatter()
	inputs := []string{
		"js1_z",
		"js2_rotz",
		"gp1_hat1_left",
		"js1_button12",
		"lctrl+lshift+kb1_f",
		"mo1_mwheel_up",
		"js1_axis7",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once, err := f.Normalize(in)
			if err != nil {
				t.Fatal(err)
			}
			if once.Input != in {
				t.Errorf("Normalize(%s) = %s", in, once.Input)
			}
			twice, _ := f.Normalize(once.Input)
			if twice.Input != once.Input {
				t.Errorf("second pass changed %s to %s", once.Input, twice.Input)
			}
		})
	}
}

func TestNormalize_Rewrites(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LSHIFT+LCTRL+kb1_F", "lctrl+lshift+kb1_f"},
		{"kb1_rctrl+lalt+np_1", "lalt+rctrl+kb1_np_1"},
		{"js1_axis3_negative", "js1_axis3"},
		{" JS1_Button3 ", "js1_button3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
