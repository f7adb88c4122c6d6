package capture

import "time"

// Timer is a cancellable pending callback
type Timer interface {
	Stop() bool
}

// Clock lets tests drive deadlines by hand
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
