// internal/auth/token.go
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expired reports whether the bearer token carries an exp claim in the past.
// The signature is not verified here: the game server is the authority on
// token validity, and this check only exists to warn before presenting a
// token that cannot possibly succeed. Unparseable tokens and tokens without
// an exp claim are treated as not expired and left to the server to judge.
func Expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
