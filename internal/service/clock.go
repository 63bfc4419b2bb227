package service

import "time"

// Clock supplies the current time. A nil Clock reads the wall clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
