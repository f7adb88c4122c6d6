package axes

import (
	"sort"
	"strings"
)

// Logical axis names understood by the game
const (
	AxisX       = "x"
	AxisY       = "y"
	AxisZ       = "z"
	AxisRotX    = "rotx"
	AxisRotY    = "roty"
	AxisRotZ    = "rotz"
	AxisSlider  = "slider"
	AxisSlider2 = "slider2"
	AxisHat     = "hat"
)

// LogicalNames is the game's axis vocabulary
var LogicalNames = []string{AxisX, AxisY, AxisZ, AxisRotX, AxisRotY, AxisRotZ,
	AxisSlider, AxisSlider2, AxisHat}

// descriptor label (lower case, no spaces or underscores) -> logical name
var descriptorLabels = map[string]string{
	"x":         AxisX,
	"y":         AxisY,
	"z":         AxisZ,
	"rx":        AxisRotX,
	"ry":        AxisRotY,
	"rz":        AxisRotZ,
	"rotx":      AxisRotX,
	"roty":      AxisRotY,
	"rotz":      AxisRotZ,
	"rotationx": AxisRotX,
	"rotationy": AxisRotY,
	"rotationz": AxisRotZ,
	"xrotation": AxisRotX,
	"yrotation": AxisRotY,
	"zrotation": AxisRotZ,
	"slider":    AxisSlider,
	"dial":      AxisSlider2,
	"wheel":     AxisSlider2,
	"hatswitch": AxisHat,
	"hat":       AxisHat,
}

func normaliseLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(label)
}

// Translate maps one descriptor label to the logical vocabulary
func Translate(label string) (string, bool) {
	logical, found := descriptorLabels[normaliseLabel(label)]
	return logical, found
}

// IsLogicalName reports whether name is in the game's axis vocabulary
func IsLogicalName(name string) bool {
	for _, n := range LogicalNames {
		if n == name {
			return true
		}
	}
	return false
}

// Derive builds a raw-index table from descriptor names keyed by the
// descriptor's 1-based axis number. Labels with no translation are left
// out. A second slider-class axis is given slider2 when that is still free.
func Derive(descriptorNames map[int]string) Table {
	indices := make([]int, 0, len(descriptorNames))
	for idx := range descriptorNames {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	table := make(Table)
	taken := make(map[string]bool)
	for _, idx := range indices {
		raw := idx - 1
		if raw < 0 || raw >= MaxAxes {
			continue
		}
		logical, found := Translate(descriptorNames[idx])
		if !found {
			continue
		}
		if taken[logical] {
			if logical != AxisSlider || taken[AxisSlider2] {
				continue
			}
			logical = AxisSlider2
		}
		taken[logical] = true
		table[raw] = logical
	}
	return table
}
