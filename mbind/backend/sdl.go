package backend

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/jupiterrider/purego-sdl3/sdl"

	"github.com/ankurkotwal/metabind/mbind/axes"
	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/devices"
)

const pollDelayNS = 8_000_000 // ~120Hz

// SDLFeed reads joysticks and gamepads through SDL3
type SDLFeed struct {
	*Feed
	joysticks map[sdl.JoystickID]*sdl.Joystick
}

// NewSDLFeed creates a feed. Nothing is read until Run.
func NewSDLFeed(norm *axes.Normalizer, timeout time.Duration, log *common.Logger) *SDLFeed {
	return &SDLFeed{
		Feed:      NewFeed("sdl", norm, timeout, log),
		joysticks: make(map[sdl.JoystickID]*sdl.Joystick),
	}
}

// Run owns SDL until ctx is done. SDL must stay on one OS thread.
func (s *SDLFeed) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !sdl.Init(sdl.InitJoystick) {
		return fmt.Errorf("SDL init failed: %s", sdl.GetError())
	}
	defer sdl.Quit()
	s.log.Msg("SDL3 joystick subsystem initialized")

	for _, id := range sdl.GetJoysticks() {
		s.open(id)
	}
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		default:
		}
		s.processEvents()
		s.Tick()
		sdl.DelayNS(pollDelayNS)
	}
}

func (s *SDLFeed) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			s.open(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			s.close(event.JDevice().Which)
		case sdl.EventJoystickButtonDown:
			be := event.JButton()
			s.Button(uint32(be.Which), int(be.Button))
		case sdl.EventJoystickAxisMotion:
			ae := event.JAxis()
			s.Axis(uint32(ae.Which), int(ae.Axis), int16(ae.Value))
		case sdl.EventJoystickHatMotion:
			he := event.JHat()
			s.Hat(uint32(he.Which), int(he.Hat), uint8(he.Value))
		}
	}
}

func (s *SDLFeed) open(id sdl.JoystickID) {
	if _, exists := s.joysticks[id]; exists {
		return
	}
	js := sdl.OpenJoystick(id)
	if js == nil {
		s.log.Err("Failed to open joystick %d: %s", id, sdl.GetError())
		return
	}
	s.joysticks[id] = js

	name := sdl.GetJoystickName(js)
	guid := GUIDBytes(sdl.GetJoystickVendor(js), sdl.GetJoystickProduct(js))
	s.Connect(uint32(id), DeviceInfo{
		UUID:    devices.ResolveUUID(guid, name, int(id)),
		Name:    name,
		Class:   devices.Classify(name),
		Axes:    int(sdl.GetNumJoystickAxes(js)),
		Buttons: int(sdl.GetNumJoystickButtons(js)),
		Hats:    int(sdl.GetNumJoystickHats(js)),
	})
}

func (s *SDLFeed) close(id sdl.JoystickID) {
	js, exists := s.joysticks[id]
	if !exists {
		return
	}
	sdl.CloseJoystick(js)
	delete(s.joysticks, id)
	s.Disconnect(uint32(id))
}

func (s *SDLFeed) closeAll() {
	for id := range s.joysticks {
		s.close(id)
	}
}
