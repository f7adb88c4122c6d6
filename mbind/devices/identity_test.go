package devices

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ankurkotwal/metabind/mbind/common"
)

func newTestMap(t *testing.T, file string) *IdentityMap {
	t.Helper()
	store, err := common.OpenYamlStore(file)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewIdentityMap(store, common.NewLog())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestIdentityMap_RecordResolve(t *testing.T) {
	m := newTestMap(t, "")
	if _, found := m.Resolve("abc"); found {
		t.Fatal("empty map resolved a device")
	}
	if err := m.Record("abc", "VKB Gladiator", SecondaryStick); err != nil {
		t.Fatal(err)
	}
	slot, found := m.Resolve("abc")
	if !found || slot != SecondaryStick {
		t.Errorf("Resolve = %v %v", slot, found)
	}
	if slot.Prefix() != "js2" {
		t.Errorf("Prefix = %s", slot.Prefix())
	}
}

func TestIdentityMap_LastWriteWins(t *testing.T) {
	m := newTestMap(t, "")
	m.Record("stick-a", "Stick A", PrimaryStick)
	m.Record("stick-b", "Stick B", SecondaryStick)

	// stick-a moves to the secondary slot, displacing stick-b
	if err := m.Record("stick-a", "Stick A", SecondaryStick); err != nil {
		t.Fatal(err)
	}
	if _, found := m.Lookup(PrimaryStick); found {
		t.Error("PrimaryStick still holds stick-a")
	}
	if _, found := m.Resolve("stick-b"); found {
		t.Error("stick-b still resolves after being displaced")
	}
	if slot, _ := m.Resolve("stick-a"); slot != SecondaryStick {
		t.Errorf("stick-a resolves to %v", slot)
	}
	if n := len(m.Identities()); n != 1 {
		t.Errorf("expected 1 identity, got %d", n)
	}
}

func TestIdentityMap_ResetAndPersist(t *testing.T) {
	file := filepath.Join(t.TempDir(), "devices.yaml")
	m := newTestMap(t, file)
	m.Record("stick-a", "Stick A", PrimaryStick)
	m.Record("pad", "Xbox Controller", PrimaryGamepad)

	reloaded := newTestMap(t, file)
	if slot, found := reloaded.Resolve("pad"); !found || slot != PrimaryGamepad {
		t.Fatalf("reloaded Resolve(pad) = %v %v", slot, found)
	}
	id, _ := reloaded.Lookup(PrimaryStick)
	if id.DisplayName != "Stick A" || id.Slot != PrimaryStick {
		t.Errorf("reloaded identity %+v", id)
	}

	if err := reloaded.Reset(PrimaryStick); err != nil {
		t.Fatal(err)
	}
	if _, found := reloaded.Resolve("stick-a"); found {
		t.Error("reverse association survived reset")
	}
	if _, found := reloaded.Lookup(PrimaryStick); found {
		t.Error("forward association survived reset")
	}
	again := newTestMap(t, file)
	if _, found := again.Lookup(PrimaryStick); found {
		t.Error("reset was not persisted")
	}
	if err := again.Reset(SecondaryStick); err != nil {
		t.Errorf("resetting empty slot: %v", err)
	}
}

func TestIdentityMap_RecordErrors(t *testing.T) {
	m := newTestMap(t, "")
	if err := m.Record("x", "X", SlotNone); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("expected ErrUnknownSlot, got %v", err)
	}
	if err := m.Record("", "X", PrimaryStick); err == nil {
		t.Error("expected error for empty uuid")
	}
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in      string
		want    Slot
		wantErr bool
	}{
		{"PrimaryStick", PrimaryStick, false},
		{"js2", SecondaryStick, false},
		{"GP1", PrimaryGamepad, false},
		{"js3", SlotNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSlot(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseSlot(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
	if slot, found := SlotFor(common.SourceGamepad, 1); !found || slot != PrimaryGamepad {
		t.Errorf("SlotFor(gp,1) = %v", slot)
	}
}

func TestResolveUUID(t *testing.T) {
	tests := []struct {
		name   string
		uuid   []byte
		dev    string
		id     int
		expect string
	}{
		{"hex", []byte{0x03, 0x00, 0xab, 0xcd}, "Stick", 0, "0300abcd"},
		{"zero falls back", make([]byte, 16), "T.16000M FCS", 2, "T.16000M_FCS_2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveUUID(tt.uuid, tt.dev, tt.id); got != tt.expect {
				t.Errorf("got %s, want %s", got, tt.expect)
			}
		})
	}
	if XInputUUID(1) != "xinput_1" {
		t.Error("XInputUUID")
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]common.InputSource{
		"Xbox Wireless Controller": common.SourceGamepad,
		"DualSense Wireless":       common.SourceGamepad,
		"VKBsim Gladiator EVO":     common.SourceJoystick,
		"Generic USB Device":       common.SourceJoystick,
	}
	for name, want := range tests {
		if got := Classify(name); got != want {
			t.Errorf("Classify(%q) = %v, want %v", name, got, want)
		}
	}
}

// failingStore refuses writes to the keys in failPut and failDelete
type failingStore struct {
	*common.YamlStore
	failPut    map[string]bool
	failDelete map[string]bool
}

var errStoreWrite = errors.New("disk full")

func (s *failingStore) Put(section, key string, value interface{}) error {
	if s.failPut[key] {
		return errStoreWrite
	}
	return s.YamlStore.Put(section, key, value)
}

func (s *failingStore) Delete(section, key string) error {
	if s.failDelete[key] {
		return errStoreWrite
	}
	return s.YamlStore.Delete(section, key)
}

func TestIdentityMap_RecordFailureKeepsStore(t *testing.T) {
	file := filepath.Join(t.TempDir(), "store.yaml")
	yamlStore, err := common.OpenYamlStore(file)
	if err != nil {
		t.Fatal(err)
	}
	store := &failingStore{YamlStore: yamlStore, failPut: map[string]bool{}, failDelete: map[string]bool{}}
	m, err := NewIdentityMap(store, common.NewLog())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Record("stick-a", "Stick A", PrimaryStick); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		setup func()
	}{
		{"new slot write fails", func() { store.failPut[SecondaryStick.String()] = true }},
		{"old slot delete fails", func() { store.failDelete[PrimaryStick.String()] = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.failPut, store.failDelete = map[string]bool{}, map[string]bool{}
			tt.setup()
			if err := m.Record("stick-a", "Stick A", SecondaryStick); !errors.Is(err, errStoreWrite) {
				t.Fatalf("Record err = %v", err)
			}
			if slot, _ := m.Resolve("stick-a"); slot != PrimaryStick {
				t.Errorf("in memory stick-a is %v", slot)
			}

			reopened := newTestMap(t, file)
			if slot, found := reopened.Resolve("stick-a"); !found || slot != PrimaryStick {
				t.Errorf("stored stick-a is %v %v", slot, found)
			}
			if _, found := reopened.Lookup(SecondaryStick); found {
				t.Error("SecondaryStick was left in the store")
			}
		})
	}
}
