// Package clock injects the current time into components that stamp records.
package clock

import "time"

// TimeProvider is an interface for getting the current time.
type TimeProvider interface {
	Now() time.Time
}

// realTimeProvider is the default implementation of TimeProvider.
type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// System returns a TimeProvider backed by the wall clock, in UTC.
func System() TimeProvider {
	return realTimeProvider{}
}

// Fixed is a TimeProvider that always returns the same instant until advanced.
type Fixed struct {
	At time.Time
}

func (f *Fixed) Now() time.Time {
	return f.At
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.At = f.At.Add(d)
}
