package backend

import (
	"github.com/golang-jwt/jwt/v5"
)

// checkToken rejects a bearer token whose exp claim has passed, so an
// expired login surfaces as AuthError without a round trip. Opaque tokens
// that are not JWTs are passed through; the backend stays the authority.
func (c *Client) checkToken() error {
	if c.token == "" {
		return nil
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(c.now()) {
		return &AuthError{Reason: "token expired"}
	}
	return nil
}
