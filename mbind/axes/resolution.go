package axes

import (
	"math"
	"sync"
)

const (
	// ChangeThreshold is the fraction of full range an axis must move
	// before the move counts as a change
	ChangeThreshold = 0.004
	bits8           = 8
	bits16          = 16
)

type axisKey struct {
	device string
	axis   int
}

type axisState struct {
	bits     int
	min, max int
	last     int
	seen     bool
}

// Resolution tracks, per device axis, the widest sample seen so far. Early
// reports from a freshly connected device can under report their width so
// a single report is never trusted on its own.
type Resolution struct {
	mu   sync.Mutex
	axes map[axisKey]*axisState
}

// NewResolution creates an empty tracker
func NewResolution() *Resolution {
	return &Resolution{axes: make(map[axisKey]*axisState)}
}

// DetectBitDepth is the width a single sample implies
func DetectBitDepth(value int) int {
	if value > math.MaxUint8 {
		return bits16
	}
	return bits8
}

// Observe records a sample. declaredBits is the report's own claim (0 if
// unknown). It returns the sample as a fraction of full range and whether
// it moved far enough from the previous sample to count as a change.
// Widening the bit depth forgets the observed range.
func (r *Resolution) Observe(device string, axis, value, declaredBits int) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := axisKey{device, axis}
	st, found := r.axes[key]
	if !found {
		st = &axisState{bits: bits8}
		r.axes[key] = st
	}

	bits := DetectBitDepth(value)
	if declaredBits > bits8 {
		bits = bits16
	}
	if bits > st.bits {
		st.bits = bits
		st.seen = false
	}

	denom := float64(maxValue(st.bits))
	changed := !st.seen || math.Abs(float64(value-st.last))/denom > ChangeThreshold
	if !st.seen {
		st.min, st.max = value, value
	} else {
		if value < st.min {
			st.min = value
		}
		if value > st.max {
			st.max = value
		}
	}
	if changed {
		st.last = value
	}
	st.seen = true
	return float64(value) / denom, changed
}

// BitDepth is the widest width seen for the axis (8 if never seen)
func (r *Resolution) BitDepth(device string, axis int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, found := r.axes[axisKey{device, axis}]; found {
		return st.bits
	}
	return bits8
}

// Fraction converts value using the widest width seen for the axis
func (r *Resolution) Fraction(device string, axis, value int) float64 {
	return float64(value) / float64(maxValue(r.BitDepth(device, axis)))
}

// Range is the min and max seen since the axis was last widened
func (r *Resolution) Range(device string, axis int) (int, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, found := r.axes[axisKey{device, axis}]
	if !found || !st.seen {
		return 0, 0, false
	}
	return st.min, st.max, true
}

// Forget drops everything known about a device
func (r *Resolution) Forget(device string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.axes {
		if key.device == device {
			delete(r.axes, key)
		}
	}
}

func maxValue(bits int) int {
	return 1<<uint(bits) - 1
}
