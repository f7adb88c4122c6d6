package axes

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// DefaultProfile is used when no profile name matches a device
const DefaultProfile = "default"

// Profile maps logical axis name -> raw axis index
type Profile map[string]int

// Profiles holds the known per-device axis layouts
type Profiles struct {
	ByName map[string]Profile `yaml:"AxisProfiles"`
}

// LoadProfiles reads the axis profile yaml
func LoadProfiles(filename string) (*Profiles, error) {
	var p Profiles
	if err := common.LoadYaml(filename, &p); err != nil {
		return nil, err
	}
	if p.ByName == nil {
		p.ByName = make(map[string]Profile)
	}
	return &p, nil
}

func normaliseDeviceName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ForDevice finds the profile for a device name: exact match first, then a
// profile whose name is contained in the device name, then the default.
func (p *Profiles) ForDevice(deviceName string) (string, Profile, bool) {
	if p == nil {
		return "", nil, false
	}
	device := normaliseDeviceName(deviceName)

	// Sorted for a deterministic pick when several substrings match
	names := make([]string, 0, len(p.ByName))
	for name := range p.ByName {
		if name != DefaultProfile {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		if normaliseDeviceName(name) == device {
			return name, p.ByName[name], true
		}
	}
	for _, name := range names {
		if n := normaliseDeviceName(name); n != "" && strings.Contains(device, n) {
			return name, p.ByName[name], true
		}
	}
	if profile, found := p.ByName[DefaultProfile]; found {
		return DefaultProfile, profile, true
	}
	return "", nil, false
}

// InvertProfile flips a logical->raw profile into a raw->logical table
func InvertProfile(profile Profile) Table {
	table := make(Table, len(profile))
	for logical, raw := range profile {
		if logical == "" {
			continue
		}
		table[raw] = logical
	}
	return table
}
