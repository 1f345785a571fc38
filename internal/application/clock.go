package application

import "time"

// Clock stamps scans with their registration time; tests pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC, the zone every stored time uses.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
