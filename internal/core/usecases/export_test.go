package usecases

import "time"

// SetClock replaces the service clock.
func SetClock(s *MapService, now func() time.Time) { s.now = now }
