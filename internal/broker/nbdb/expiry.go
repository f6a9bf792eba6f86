package nbdb

import "time"

// ExpiryAfter returns now plus days, rolled forward off a weekend:
// Saturday moves to Monday (+2) and Sunday moves to Monday (+1).
func ExpiryAfter(now time.Time, days int) time.Time {
	expiry := now.AddDate(0, 0, days)
	switch expiry.Weekday() {
	case time.Saturday:
		expiry = expiry.AddDate(0, 0, 2)
	case time.Sunday:
		expiry = expiry.AddDate(0, 0, 1)
	}
	return expiry
}
