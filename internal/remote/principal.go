package remote

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated identity returned by the identity provider.
type Principal struct {
	// ID is the provider's stable user identifier.
	ID string
	// Email is the address used to authenticate.
	Email string
	// IDToken is the provider-issued JWT.
	IDToken string
	// ExpiresAt is when IDToken stops being accepted. Zero if unknown.
	ExpiresAt time.Time
}

// Expired reports whether the ID token has expired at now.
// A principal with unknown expiry never expires.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// tokenExpiry reads the exp claim from idToken without verifying the
// signature; the client cannot verify it and only needs a local hint.
// Falls back to now+expiresIn seconds when the token carries no exp.
func tokenExpiry(idToken, expiresIn string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.UTC()
		}
	}
	if secs, err := strconv.Atoi(expiresIn); err == nil && secs > 0 {
		return now.Add(time.Duration(secs) * time.Second).UTC()
	}
	return time.Time{}
}
