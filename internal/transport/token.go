package transport

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenExpiry extracts the exp claim from an access token without
// verifying its signature. The value is only an expiry hint for scheduling;
// session validity is always the server's call, so an unverified parse is
// acceptable here and nowhere else.
func AccessTokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
