package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the expiration time embedded in a bearer token when the
// token happens to be a JWT. The claim is read without signature verification;
// the backend remains the authority on token validity and this is only a hint
// for proactive teardown of sessions that cannot possibly succeed.
//
// Opaque tokens and JWTs without an exp claim return the zero time and false.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

// TokenExpired reports whether TokenExpiry resolves to a time in the past.
// Opaque tokens are never considered expired client-side.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return exp.Before(now)
}
