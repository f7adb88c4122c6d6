package capture

import (
	"time"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// session is the mutable state behind a Snapshot. Only the controller
// touches it, with its lock held.
type session struct {
	id     string
	kind   Kind
	target common.ActionRef
	expect Expectation
	state  State

	// detected in insertion order, index by canonical input
	detected []Candidate
	index    map[string]int
	selected string

	startedAt         time.Time
	primaryDeadline   time.Time
	secondaryDeadline time.Time
	secondaryElapsed  bool
	backendComplete   bool
	warnings          []string

	primary, secondary, closer Timer

	episode *episode
}

func newSession(id string, kind Kind, target common.ActionRef, now time.Time) *session {
	return &session{
		id:        id,
		kind:      kind,
		target:    target,
		state:     Armed,
		index:     make(map[string]int),
		startedAt: now,
	}
}

// add records a candidate unless its input is already present. The first
// detection of an input wins.
func (s *session) add(c Candidate) bool {
	if _, found := s.index[c.Input]; found {
		return false
	}
	s.index[c.Input] = len(s.detected)
	s.detected = append(s.detected, c)
	return true
}

func (s *session) candidate(input string) (Candidate, bool) {
	i, found := s.index[input]
	if !found {
		return Candidate{}, false
	}
	return s.detected[i], true
}

func (s *session) stopTimers() {
	for _, t := range []*Timer{&s.primary, &s.secondary, &s.closer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
	s.primaryDeadline = time.Time{}
	s.secondaryDeadline = time.Time{}
}

func (s *session) snapshot(seq uint64) Snapshot {
	snap := Snapshot{
		Seq:              seq,
		SessionID:        s.id,
		Kind:             s.kind,
		Target:           s.target,
		State:            s.state,
		Detected:         append([]Candidate(nil), s.detected...),
		Selected:         s.selected,
		StartedAt:        s.startedAt,
		SecondaryElapsed: s.secondaryElapsed,
		BackendComplete:  s.backendComplete,
		Warnings:         append([]string(nil), s.warnings...),
	}
	if !s.primaryDeadline.IsZero() {
		t := s.primaryDeadline
		snap.PrimaryDeadline = &t
	}
	if !s.secondaryDeadline.IsZero() {
		t := s.secondaryDeadline
		snap.SecondaryDeadline = &t
	}
	return snap
}
