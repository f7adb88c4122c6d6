package axes

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// Joystick: 8 buttons, X, Y, padding, Rz, hat
var joystickDescriptor = []byte{
	0x05, 0x01, 0x09, 0x04, 0xA1, 0x01,
	0x05, 0x09, 0x19, 0x01, 0x29, 0x08, 0x15, 0x00, 0x25, 0x01, 0x75, 0x01, 0x95, 0x08, 0x81, 0x02,
	0x05, 0x01, 0x09, 0x30, 0x09, 0x31, 0x15, 0x00, 0x26, 0xFF, 0x00, 0x75, 0x08, 0x95, 0x02, 0x81, 0x02,
	0x75, 0x08, 0x95, 0x01, 0x81, 0x03,
	0x09, 0x35, 0x95, 0x01, 0x81, 0x02,
	0x09, 0x39, 0x15, 0x00, 0x25, 0x07, 0x75, 0x04, 0x95, 0x01, 0x81, 0x42,
	0xC0,
}

func TestParseDescriptor(t *testing.T) {
	names, err := ParseDescriptor(joystickDescriptor)
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]string{1: "X", 2: "Y", 3: "Rz", 4: "Hat Switch"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("ParseDescriptor = %v, want %v", names, want)
	}
	if table := Derive(names); !reflect.DeepEqual(table, Table{0: "x", 1: "y", 2: "rotz", 3: "hat"}) {
		t.Errorf("Derive = %v", table)
	}
}

func TestParseDescriptor_RepeatedUsage(t *testing.T) {
	// Two sliders from one usage and a count of 2
	desc := []byte{0x05, 0x01, 0x09, 0x36, 0x75, 0x10, 0x95, 0x02, 0x81, 0x02}
	names, _ := ParseDescriptor(desc)
	if !reflect.DeepEqual(names, map[int]string{1: "Slider", 2: "Slider"}) {
		t.Errorf("got %v", names)
	}
}

func TestParseDescriptor_OversizedReportCount(t *testing.T) {
	tests := []struct {
		name string
		desc []byte
	}{
		{"repeated usage", []byte{0x05, 0x01, 0x09, 0x30, 0x97, 0xFF, 0xFF, 0xFF, 0x00, 0x81, 0x02}},
		{"full width count", []byte{0x05, 0x01, 0x09, 0x36, 0x97, 0xFF, 0xFF, 0xFF, 0xFF, 0x81, 0x02}},
		{"open usage range", []byte{0x05, 0x01, 0x19, 0x30, 0x2B, 0xFF, 0xFF, 0xFF, 0xFF, 0x97, 0xFF, 0xFF, 0xFF, 0xFF, 0x81, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, err := ParseDescriptor(tt.desc)
			if err != nil {
				t.Fatal(err)
			}
			if len(names) != MaxAxes {
				t.Errorf("got %d names, want %d", len(names), MaxAxes)
			}
		})
	}
}

func TestParseDescriptor_Truncated(t *testing.T) {
	names, err := ParseDescriptor(joystickDescriptor[:25])
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if names == nil {
		t.Error("partial result should not be nil")
	}
}

func TestDescriptorLookup(t *testing.T) {
	dir := t.TempDir()
	node := filepath.Join(dir, "hidraw3", "device")
	os.MkdirAll(node, 0755)
	os.WriteFile(filepath.Join(node, "uevent"), []byte("DRIVER=hid-generic\nHID_NAME=VKBsim Gladiator EVO\n"), 0644)
	os.WriteFile(filepath.Join(node, "report_descriptor"), joystickDescriptor, 0644)

	log := common.NewLog()
	lookup := &DescriptorLookup{Dir: dir, Log: log}

	if names := lookup.AxisNames("VKBsim Gladiator EVO"); len(names) != 4 {
		t.Errorf("by name got %v", names)
	}
	if names := lookup.AxisNames(filepath.Join(dir, "hidraw3")); len(names) != 4 {
		t.Errorf("by node got %v", names)
	}

	names := lookup.AxisNames("Not Plugged In")
	if names == nil || len(names) != 0 {
		t.Errorf("missing device should give empty map, got %v", names)
	}
	if entries := log.Snapshot(); len(entries) != 1 || !entries[0].IsError {
		t.Errorf("expected one logged error, got %+v", entries)
	}
}
