package backend

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ankurkotwal/metabind/mbind/axes"
	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/devices"
)

// Hat bits as reported by SDL
const (
	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

var hatDirections = []struct {
	bit uint8
	dir string
}{
	{hatUp, canonical.DirUp},
	{hatRight, canonical.DirRight},
	{hatDown, canonical.DirDown},
	{hatLeft, canonical.DirLeft},
}

// DeviceInfo describes a connected joystick or gamepad
type DeviceInfo struct {
	UUID     string             `json:"uuid"`
	Name     string             `json:"name"`
	Class    common.InputSource `json:"class"`
	Instance int                `json:"instance"`
	Axes     int                `json:"axes"`
	Buttons  int                `json:"buttons"`
	Hats     int                `json:"hats"`
}

// Prefix is the device's prefix in backend input strings, e.g. "js2"
func (d DeviceInfo) Prefix() string {
	return fmt.Sprintf("%s%d", d.Class.Prefix(), d.Instance)
}

type device struct {
	info DeviceInfo
	hats map[int]uint8
}

// Feed turns raw device events into capture feed events for whichever
// session it is armed for. It is the platform independent half of the
// backend; SDLFeed and the XInput endpoint drive it.
type Feed struct {
	name    string
	log     *common.Logger
	axes    *axes.Normalizer
	timeout time.Duration
	now     func() time.Time

	mu           sync.Mutex
	session      string
	sink         capture.Sink
	armedAt      time.Time
	completeSent bool
	trigger      *AxisTrigger
	devices      map[uint32]*device
	xinput       map[int]uint16
}

// NewFeed creates a disarmed feed. norm may be nil. A zero timeout never
// reports detection complete.
func NewFeed(name string, norm *axes.Normalizer, timeout time.Duration, log *common.Logger) *Feed {
	return &Feed{
		name:    name,
		log:     log,
		axes:    norm,
		timeout: timeout,
		now:     time.Now,
		trigger: NewAxisTrigger(),
		devices: make(map[uint32]*device),
		xinput:  make(map[int]uint16),
	}
}

// Name implements capture.Listener
func (f *Feed) Name() string { return f.name }

// Arm implements capture.Listener
func (f *Feed) Arm(sessionID string, sink capture.Sink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = sessionID
	f.sink = sink
	f.armedAt = f.now()
	f.completeSent = false
	f.trigger.Reset()
	return nil
}

// Disarm implements capture.Listener
func (f *Feed) Disarm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = ""
	f.sink = nil
}

// Connect records a device under id and gives it the lowest free instance
// number of its class
func (f *Feed) Connect(id uint32, info DeviceInfo) DeviceInfo {
	f.mu.Lock()
	used := make(map[int]bool)
	for other, d := range f.devices {
		if other != id && d.info.Class == info.Class {
			used[d.info.Instance] = true
		}
	}
	info.Instance = 1
	for used[info.Instance] {
		info.Instance++
	}
	f.devices[id] = &device{info: info, hats: make(map[int]uint8)}
	f.mu.Unlock()

	if f.axes != nil {
		f.axes.RegisterDevice(info.UUID, info.Name)
	}
	f.log.Msg("%s connected as %s (%s)", info.Name, info.Prefix(), info.UUID)
	return info
}

// Disconnect forgets the device
func (f *Feed) Disconnect(id uint32) {
	f.mu.Lock()
	d, found := f.devices[id]
	delete(f.devices, id)
	f.mu.Unlock()
	if found {
		f.log.Msg("%s disconnected", d.info.Name)
	}
}

// Devices lists connected devices by class and instance
func (f *Feed) Devices() []DeviceInfo {
	f.mu.Lock()
	out := make([]DeviceInfo, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d.info)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].Instance < out[j].Instance
	})
	return out
}

// Button handles a press of 0 based button
func (f *Feed) Button(id uint32, button int) {
	f.emit(id, func(d *device) []capture.FeedEvent {
		return []capture.FeedEvent{event(d.info, fmt.Sprintf("button%d", button+1), 0)}
	})
}

// Hat handles a hat change. Only newly pressed directions are reported.
func (f *Feed) Hat(id uint32, hat int, value uint8) {
	f.emit(id, func(d *device) []capture.FeedEvent {
		pressed := value &^ d.hats[hat]
		d.hats[hat] = value
		var out []capture.FeedEvent
		for _, h := range hatDirections {
			if pressed&h.bit != 0 {
				out = append(out, event(d.info, fmt.Sprintf("hat%d_%s", hat+1, h.dir), 0))
			}
		}
		return out
	})
}

// Axis handles a signed 16 bit axis sample
func (f *Feed) Axis(id uint32, axis int, value int16) {
	f.emit(id, func(d *device) []capture.FeedEvent {
		deflection := float64(value) / 32767
		if f.axes != nil {
			fraction, changed := f.axes.Resolution.Observe(d.info.UUID, axis, int(value)+32768, 16)
			if !changed {
				return nil
			}
			deflection = fraction*2 - 1
		}
		if deflection < -1 {
			deflection = -1
		}
		if !f.trigger.Update(d.info.UUID, axis, deflection) {
			return nil
		}
		dir := canonical.DirPositive
		if deflection < 0 {
			dir = canonical.DirNegative
		}
		return []capture.FeedEvent{event(d.info, fmt.Sprintf("axis%d_%s", axis+1, dir), deflection)}
	})
}

// XInput handles a polled XInput pad state. Pads are keyed by user index
// and reported as gamepads.
func (f *Feed) XInput(userIndex int, mask uint16) {
	id := xinputID(userIndex)
	f.mu.Lock()
	if _, found := f.devices[id]; !found {
		f.mu.Unlock()
		f.Connect(id, DeviceInfo{
			UUID:    devices.XInputUUID(userIndex),
			Name:    fmt.Sprintf("XInput Controller %d", userIndex+1),
			Class:   common.SourceGamepad,
			Buttons: len(xinputButtons),
		})
		f.mu.Lock()
	}
	pressed := mask &^ f.xinput[userIndex]
	f.xinput[userIndex] = mask
	f.mu.Unlock()

	for _, b := range XInputButtons(pressed) {
		f.Button(id, b-1)
	}
}

// Push forwards an event from an external backend. An event without a
// session id goes to the armed session. Returns false when disarmed.
func (f *Feed) Push(ev capture.FeedEvent) bool {
	f.mu.Lock()
	sink, session := f.sink, f.session
	f.mu.Unlock()
	if sink == nil {
		return false
	}
	if ev.Session == "" {
		ev.Session = session
	}
	sink.Deliver(ev)
	return true
}

// xinputID keeps XInput pads clear of SDL's instance ids
func xinputID(userIndex int) uint32 {
	return 0xFFFF0000 | uint32(userIndex)
}

// Tick reports detection complete once the backend timeout has passed
// since arming
func (f *Feed) Tick() {
	f.mu.Lock()
	if f.sink == nil || f.completeSent || f.timeout <= 0 || f.now().Sub(f.armedAt) < f.timeout {
		f.mu.Unlock()
		return
	}
	f.completeSent = true
	sink, session := f.sink, f.session
	f.mu.Unlock()
	sink.Deliver(capture.DetectionComplete{Session: session})
}

// emit builds events under the lock and delivers them after releasing it
func (f *Feed) emit(id uint32, build func(d *device) []capture.FeedEvent) {
	f.mu.Lock()
	d, found := f.devices[id]
	if !found {
		f.mu.Unlock()
		return
	}
	events := build(d)
	sink, session := f.sink, f.session
	f.mu.Unlock()

	if sink == nil {
		return
	}
	for _, ev := range events {
		ev.Session = session
		sink.Deliver(ev)
	}
}

func event(d DeviceInfo, control string, deflection float64) capture.FeedEvent {
	input := d.Prefix() + "_" + control
	return capture.FeedEvent{
		Input:       input,
		DisplayName: canonical.DisplayName(input),
		DeviceType:  d.Class,
		DeviceUUID:  d.UUID,
		DeviceName:  d.Name,
		Deflection:  deflection,
		Timestamp:   time.Now(),
	}
}

// GUIDBytes lays out vendor and product the way SDL builds a USB device
// guid. Both zero gives all zero bytes.
func GUIDBytes(vendor, product uint16) []byte {
	guid := make([]byte, 16)
	if vendor == 0 && product == 0 {
		return guid
	}
	guid[0] = 0x03
	guid[4], guid[5] = byte(vendor), byte(vendor>>8)
	guid[8], guid[9] = byte(product), byte(product>>8)
	return guid
}
