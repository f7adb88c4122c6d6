package capture

import (
	"context"
	"math"
	"time"

	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/common"
)

// AxisDeadzone is how far an axis must move from rest to be detected
const AxisDeadzone = 0.15

// episode is a one shot detection riding on a session. The first
// accepted event wins.
type episode struct {
	accept   func(ev canonical.RawInputEvent) bool
	done     chan episodeResult
	finished bool
}

type episodeResult struct {
	event canonical.RawInputEvent
	err   error
}

func (e *episode) finish(r episodeResult) {
	if e.finished {
		return
	}
	e.finished = true
	e.done <- r
}

// DetectDevice waits for any joystick or gamepad event and returns it, so
// the caller can assign that device to a slot. It replaces any open
// session.
func (c *Controller) DetectDevice(ctx context.Context, timeout time.Duration) (canonical.RawInputEvent, error) {
	return c.detect(ctx, KindDevice, timeout, func(ev canonical.RawInputEvent) bool {
		return ev.Source.IsDevice() && ev.DeviceID != ""
	})
}

// DetectAxis waits for an axis on device to move past AxisDeadzone. An
// empty device accepts any device.
func (c *Controller) DetectAxis(ctx context.Context, device string, timeout time.Duration) (canonical.RawInputEvent, error) {
	return c.detect(ctx, KindAxis, timeout, func(ev canonical.RawInputEvent) bool {
		if !ev.Source.IsDevice() || ev.Control.Kind != canonical.ControlAxis {
			return false
		}
		if device != "" && ev.DeviceID != device {
			return false
		}
		return math.Abs(ev.Control.Deflection) >= AxisDeadzone
	})
}

func (c *Controller) detect(ctx context.Context, kind Kind, timeout time.Duration,
	accept func(canonical.RawInputEvent) bool) (canonical.RawInputEvent, error) {
	if timeout <= 0 {
		timeout = c.opts.PrimaryTimeout
	}
	ep := &episode{accept: accept, done: make(chan episodeResult, 1)}

	c.mu.Lock()
	old := c.teardown(ErrSuperseded)
	s := c.begin(kind, common.ActionRef{}, timeout)
	s.episode = ep
	id := s.id
	snap := c.snap(s)
	c.mu.Unlock()
	c.notify(old, &snap)

	select {
	case r := <-ep.done:
		return r.event, r.err
	case <-ctx.Done():
		c.mu.Lock()
		var closed *Snapshot
		if c.current != nil && c.current.id == id {
			closed = c.teardown(ctx.Err())
		}
		c.mu.Unlock()
		c.notify(closed)
		return canonical.RawInputEvent{}, ctx.Err()
	}
}

func (c *Controller) onEpisodeInput(s *session, ev canonical.RawInputEvent) (Snapshot, bool) {
	if !s.episode.accept(ev) {
		return Snapshot{}, false
	}
	if res, err := c.formatter.Format(ev); err == nil {
		at := ev.Timestamp
		if at.IsZero() {
			at = c.opts.Clock.Now()
		}
		s.add(candidateFrom(res, ev, at))
		s.selected = res.Input
	}
	s.episode.finish(episodeResult{event: ev})
	return *c.teardown(nil), true
}
