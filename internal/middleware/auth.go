// Package middleware provides request authentication, logging, tracing and rate limiting.
package middleware

import (
	"context"
	"slices"
	"strings"

	"feedhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

const identityLocal = "identity"

// TokenVerifier resolves a bearer token into an identity. It must fail closed.
type TokenVerifier interface {
	VerifyToken(token string) (models.Identity, bool)
}

// Authenticate parses the Authorization header on every request. A missing or invalid
// token leaves the request unauthenticated; each operation decides whether to reject it.
// Requests to queryTokenPaths may pass the token as ?token= instead.
func Authenticate(verifier TokenVerifier, queryTokenPaths ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c.Get("Authorization"))
		if token == "" && slices.Contains(queryTokenPaths, c.Path()) {
			// Websocket clients cannot set headers from browsers.
			token = c.Query("token")
		}
		if token == "" {
			return c.Next()
		}

		identity, ok := verifier.VerifyToken(token)
		if !ok {
			return c.Next()
		}

		c.Locals("userID", identity.UserID)
		c.Locals(identityLocal, identity)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, identity.UserID))

		return c.Next()
	}
}

// BearerToken extracts the token from a "Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// IdentityFrom returns the authenticated identity for the request, if any.
func IdentityFrom(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityLocal).(models.Identity)
	return identity, ok
}

// WithIdentity stores the identity on the request, mainly for tests.
func WithIdentity(c *fiber.Ctx, identity models.Identity) {
	c.Locals("userID", identity.UserID)
	c.Locals(identityLocal, identity)
}
