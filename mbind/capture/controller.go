package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/devices"
)

// Default session windows
const (
	DefaultPrimaryTimeout    = 10 * time.Second
	DefaultSecondaryTimeout  = 1 * time.Second
	DefaultTimeoutCloseDelay = 3 * time.Second
)

// Formatter turns raw events into binding strings
type Formatter interface {
	Format(ev canonical.RawInputEvent) (canonical.Result, error)
}

// Options for a Controller. Zero values get the defaults.
type Options struct {
	PrimaryTimeout    time.Duration
	SecondaryTimeout  time.Duration
	TimeoutCloseDelay time.Duration
	Clock             Clock
	NewID             func() string
}

func (o *Options) fill() {
	if o.PrimaryTimeout <= 0 {
		o.PrimaryTimeout = DefaultPrimaryTimeout
	}
	if o.SecondaryTimeout <= 0 {
		o.SecondaryTimeout = DefaultSecondaryTimeout
	}
	if o.TimeoutCloseDelay <= 0 {
		o.TimeoutCloseDelay = DefaultTimeoutCloseDelay
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// Controller owns at most one capture session. Commands, listener events
// and timer callbacks all go through the same lock, so a session only
// ever sees one transition at a time. Anything carrying a session id that
// is not the open session is dropped.
type Controller struct {
	mu        sync.Mutex
	formatter Formatter
	listeners []Listener
	opts      Options
	log       *common.Logger

	current *session
	last    Snapshot
	seq     uint64
	stale   uint64

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewController creates a controller that arms listeners for each session
func NewController(formatter Formatter, opts Options, log *common.Logger,
	listeners ...Listener) *Controller {
	opts.fill()
	return &Controller{
		formatter: formatter,
		listeners: listeners,
		opts:      opts,
		log:       log,
		observers: make(map[int]func(Snapshot)),
	}
}

// Observe registers fn to receive a snapshot after every transition. fn
// runs outside the controller lock. The returned func unregisters it.
func (c *Controller) Observe(fn func(Snapshot)) func() {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.obsMu.Unlock()
	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Controller) notify(snaps ...*Snapshot) {
	c.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()
	for _, snap := range snaps {
		if snap == nil {
			continue
		}
		for _, fn := range fns {
			fn(*snap)
		}
	}
}

// Start opens a binding session for target, closing any open session first
func (c *Controller) Start(target common.ActionRef, expect Expectation) Snapshot {
	c.mu.Lock()
	old := c.teardown(ErrSuperseded)
	s := c.begin(KindBinding, target, c.opts.PrimaryTimeout)
	s.expect = expect
	snap := c.snap(s)
	c.mu.Unlock()

	c.log.Dbg("capture %s: started for %s", s.id, target)
	c.notify(old, &snap)
	return snap
}

// Cancel closes the open session. Safe to call with nothing open.
func (c *Controller) Cancel() (Snapshot, bool) {
	c.mu.Lock()
	snap := c.teardown(ErrCancelled)
	c.mu.Unlock()
	if snap == nil {
		return Snapshot{}, false
	}
	c.notify(snap)
	return *snap, true
}

// Select picks one of the detected candidates. sessionID may be empty to
// mean whichever session is open.
func (c *Controller) Select(sessionID, input string) (Snapshot, error) {
	c.mu.Lock()
	s, err := c.active(sessionID)
	if err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}
	cand, found := s.candidate(input)
	if !found {
		if normalized, err := canonical.Normalize(input); err == nil {
			cand, found = s.candidate(normalized)
		}
	}
	if !found {
		c.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownCandidate, input)
	}
	s.selected = cand.Input
	snap := c.snap(s)
	c.mu.Unlock()

	c.notify(&snap)
	return snap, nil
}

// Confirm closes the session and returns the selected candidate
func (c *Controller) Confirm(sessionID string) (Confirmation, error) {
	c.mu.Lock()
	s, err := c.active(sessionID)
	if err != nil {
		c.mu.Unlock()
		return Confirmation{}, err
	}
	if len(s.detected) == 0 {
		c.mu.Unlock()
		if s.state == TimedOut {
			return Confirmation{}, ErrTimeout
		}
		return Confirmation{}, ErrNothingDetected
	}
	selected, _ := s.candidate(s.selected)
	conf := Confirmation{
		SessionID: s.id,
		Target:    s.target,
		Selected:  selected,
		Detected:  append([]Candidate(nil), s.detected...),
	}
	snap := c.teardown(nil)
	c.mu.Unlock()

	c.log.Msg("Captured %s for %s", conf.Selected.Input, conf.Target)
	c.notify(snap)
	return conf, nil
}

// Snapshot returns the open session, or the last closed one with false
func (c *Controller) Snapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return c.last, false
	}
	return c.current.snapshot(c.seq), true
}

// StaleDropped counts messages dropped because their session wasn't open
func (c *Controller) StaleDropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Deliver implements Sink. Listeners and timers post everything here.
func (c *Controller) Deliver(msg Message) {
	c.mu.Lock()
	snap, changed := c.handle(msg)
	c.mu.Unlock()
	if changed {
		c.notify(&snap)
	}
}

func (c *Controller) handle(msg Message) (Snapshot, bool) {
	s := c.current
	if s == nil || msg.SessionID() != s.id {
		c.stale++
		return Snapshot{}, false
	}
	switch m := msg.(type) {
	case InputEvent:
		return c.onInput(s, m.Event)
	case FeedEvent:
		ev, err := m.RawEvent()
		if err != nil {
			c.log.Dbg("capture %s: backend input %q ignored. %s", s.id, m.Input, err)
			return Snapshot{}, false
		}
		return c.onInput(s, ev)
	case DetectionComplete:
		if s.backendComplete {
			return Snapshot{}, false
		}
		s.backendComplete = true
		return c.snap(s), true
	case deadlineFired:
		return c.onDeadline(s, m.which)
	}
	c.log.Err("capture %s: unexpected message %T", s.id, msg)
	return Snapshot{}, false
}

func (c *Controller) onInput(s *session, ev canonical.RawInputEvent) (Snapshot, bool) {
	if s.kind != KindBinding {
		return c.onEpisodeInput(s, ev)
	}
	switch s.state {
	case Armed, MultiSelect:
	case FirstDetected:
		if s.secondaryElapsed {
			// first input is locked in
			return Snapshot{}, false
		}
	default:
		return Snapshot{}, false
	}

	res, err := c.formatter.Format(ev)
	if err != nil {
		c.log.Dbg("capture %s: input ignored. %s", s.id, err)
		return Snapshot{}, false
	}
	if err := checkExpectation(s.expect, res); err != nil {
		c.log.Warn("%s", err)
		s.warnings = append(s.warnings, err.Error())
		return c.snap(s), true
	}
	now := ev.Timestamp
	if now.IsZero() {
		now = c.opts.Clock.Now()
	}
	if !s.add(candidateFrom(res, ev, now)) {
		return Snapshot{}, false
	}
	s.selected = res.Input

	switch s.state {
	case Armed:
		stop(&s.primary)
		s.primaryDeadline = time.Time{}
		s.state = FirstDetected
		s.secondaryDeadline = c.opts.Clock.Now().Add(c.opts.SecondaryTimeout)
		s.secondary = c.schedule(s.id, deadlineSecondary, c.opts.SecondaryTimeout)
	case FirstDetected:
		stop(&s.secondary)
		s.secondaryDeadline = time.Time{}
		s.state = MultiSelect
	}
	return c.snap(s), true
}

func (c *Controller) onDeadline(s *session, which deadline) (Snapshot, bool) {
	switch which {
	case deadlinePrimary:
		s.primary = nil
		if s.kind != KindBinding {
			return *c.teardown(ErrTimeout), true
		}
		if s.state != Armed || len(s.detected) > 0 {
			return Snapshot{}, false
		}
		s.state = TimedOut
		s.primaryDeadline = time.Time{}
		s.closer = c.schedule(s.id, deadlineClose, c.opts.TimeoutCloseDelay)
		c.log.Msg("Nothing detected for %s", s.target)
		return c.snap(s), true
	case deadlineSecondary:
		s.secondary = nil
		if s.state != FirstDetected || s.secondaryElapsed {
			return Snapshot{}, false
		}
		s.secondaryElapsed = true
		s.secondaryDeadline = time.Time{}
		return c.snap(s), true
	case deadlineClose:
		s.closer = nil
		if s.state != TimedOut {
			return Snapshot{}, false
		}
		return *c.teardown(ErrTimeout), true
	}
	return Snapshot{}, false
}

// begin opens a session and arms every listener. Lock held.
func (c *Controller) begin(kind Kind, target common.ActionRef, timeout time.Duration) *session {
	now := c.opts.Clock.Now()
	s := newSession(c.opts.NewID(), kind, target, now)
	c.current = s
	s.primaryDeadline = now.Add(timeout)
	s.primary = c.schedule(s.id, deadlinePrimary, timeout)
	for _, l := range c.listeners {
		if err := l.Arm(s.id, c); err != nil {
			c.log.Err("capture %s: listener %s failed to arm. %s", s.id, l.Name(), err)
		}
	}
	return s
}

// teardown disarms every listener and closes the open session, if any.
// Lock held.
func (c *Controller) teardown(reason error) *Snapshot {
	for _, l := range c.listeners {
		l.Disarm()
	}
	s := c.current
	if s == nil {
		return nil
	}
	s.stopTimers()
	s.state = Closed
	c.current = nil
	if s.episode != nil {
		s.episode.finish(episodeResult{err: reason})
	}
	snap := c.snap(s)
	c.last = snap
	return &snap
}

func (c *Controller) active(sessionID string) (*session, error) {
	s := c.current
	if s == nil || s.kind != KindBinding {
		return nil, ErrNoSession
	}
	if sessionID != "" && sessionID != s.id {
		return nil, fmt.Errorf("%w: %s is not open", ErrNoSession, sessionID)
	}
	return s, nil
}

func (c *Controller) schedule(id string, which deadline, d time.Duration) Timer {
	return c.opts.Clock.AfterFunc(d, func() {
		c.Deliver(deadlineFired{session: id, which: which})
	})
}

func (c *Controller) snap(s *session) Snapshot {
	c.seq++
	return s.snapshot(c.seq)
}

func stop(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func candidateFrom(res canonical.Result, ev canonical.RawInputEvent, at time.Time) Candidate {
	return Candidate{
		Input:       res.Input,
		Invert:      res.Invert,
		DisplayName: res.DisplayName,
		DeviceClass: res.Class,
		Slot:        res.Slot,
		Raw:         ev,
		DetectedAt:  at,
	}
}

// checkExpectation only applies to joystick and gamepad inputs
func checkExpectation(expect Expectation, res canonical.Result) error {
	if !res.Class.IsDevice() {
		return nil
	}
	got, _ := devices.SlotFor(res.Class, res.Number)
	switch {
	case expect.Slot != devices.SlotNone && got != expect.Slot:
		return fmt.Errorf("%w: %s is from %s%d, expected %s", ErrDeviceMismatch, res.Input,
			res.Class.Prefix(), res.Number, expect.Slot)
	case expect.Class.IsDevice() && res.Class != expect.Class:
		return fmt.Errorf("%w: %s is a %s input, expected %s", ErrDeviceMismatch, res.Input,
			res.Class, expect.Class)
	}
	return nil
}
