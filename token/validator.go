package token

import "time"

// DefaultExpiryBuffer is how long before actual expiry a token is treated as
// expired, so in-flight downstream calls don't race the provider clock.
const DefaultExpiryBuffer = time.Minute

// IsValid reports whether the token in st is usable at instant now, treating
// it as expired buffer before its real expiry. Pure: no I/O, no clock reads.
func IsValid(st State, buffer time.Duration, now time.Time) bool {
	if !st.HasToken() {
		return false
	}
	return st.ExpiresAt.Add(-buffer).After(now)
}
