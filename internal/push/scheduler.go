package push

import "time"

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The Manager holds at most one outstanding
// Timer.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler is backed by time.AfterFunc.
func RealScheduler() Scheduler {
	return realScheduler{}
}
