package helpers

import "time"

// Clock abstracts the current time so age checks and error timestamps are testable.
type Clock interface {
	Now() time.Time
}

// UTCClock returns the real current time in UTC.
type UTCClock struct{}

func (UTCClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}
