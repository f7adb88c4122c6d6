package backend

import (
	"math"
)

// Axis detection thresholds, in units of full deflection
const (
	DefaultTriggerLevel = 0.5
	DefaultResetLevel   = 0.3
	DefaultMovement     = 0.3
)

type triggerKey struct {
	device string
	axis   int
}

type triggerState struct {
	rest  float64
	armed bool
}

// AxisTrigger decides when an axis movement is deliberate enough to be a
// binding candidate. The first sample of an axis is taken as its resting
// position, so a throttle parked at one end doesn't fire. An axis fires
// once it is DefaultMovement away from rest and past DefaultTriggerLevel,
// then stays quiet until it comes back.
type AxisTrigger struct {
	TriggerLevel float64
	ResetLevel   float64
	Movement     float64

	states map[triggerKey]*triggerState
}

// NewAxisTrigger creates a trigger with the default thresholds
func NewAxisTrigger() *AxisTrigger {
	return &AxisTrigger{
		TriggerLevel: DefaultTriggerLevel,
		ResetLevel:   DefaultResetLevel,
		Movement:     DefaultMovement,
		states:       make(map[triggerKey]*triggerState),
	}
}

// Update takes a deflection in -1..1 and reports whether the axis fired
func (t *AxisTrigger) Update(device string, axis int, value float64) bool {
	key := triggerKey{device, axis}
	st, found := t.states[key]
	if !found {
		t.states[key] = &triggerState{rest: value, armed: true}
		return false
	}
	moved := math.Abs(value - st.rest)
	if !st.armed {
		if moved < t.Movement || math.Abs(value) < t.ResetLevel {
			st.armed = true
		}
		return false
	}
	if moved >= t.Movement && math.Abs(value) >= t.TriggerLevel {
		st.armed = false
		return true
	}
	return false
}

// Reset forgets every resting position
func (t *AxisTrigger) Reset() {
	t.states = make(map[triggerKey]*triggerState)
}
