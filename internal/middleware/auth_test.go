package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedhub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier map[string]models.Identity

func (v staticVerifier) VerifyToken(token string) (models.Identity, bool) {
	identity, ok := v[token]
	return identity, ok
}

func TestAuthenticate(t *testing.T) {
	verifier := staticVerifier{"good": {UserID: 42, Email: "a@b.com"}}

	whoami := func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		return c.JSON(fiber.Map{"authenticated": ok, "userId": identity.UserID})
	}
	app := fiber.New()
	app.Use(Authenticate(verifier, "/ws"))
	app.Get("/whoami", whoami)
	app.Get("/ws", whoami)

	tests := []struct {
		name       string
		target     string
		authHeader string
		wantAuth   bool
		wantUserID uint
	}{
		{name: "Valid bearer token", target: "/whoami", authHeader: "Bearer good", wantAuth: true, wantUserID: 42},
		{name: "Missing header", target: "/whoami"},
		{name: "Wrong scheme", target: "/whoami", authHeader: "Basic good"},
		{name: "Unknown token", target: "/whoami", authHeader: "Bearer bad"},
		{name: "Query token ignored outside websocket route", target: "/whoami?token=good"},
		{name: "Query token on websocket route", target: "/ws?token=good", wantAuth: true, wantUserID: 42},
		{name: "Unknown query token on websocket route", target: "/ws?token=bad"},
		{name: "Header wins on websocket route", target: "/ws?token=bad", authHeader: "Bearer good", wantAuth: true, wantUserID: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			// Authentication never rejects the request itself.
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body struct {
				Authenticated bool `json:"authenticated"`
				UserID        uint `json:"userId"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantAuth, body.Authenticated)
			assert.Equal(t, tt.wantUserID, body.UserID)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Empty(t, BearerToken("Bearer"))
	assert.Empty(t, BearerToken("bearer abc"))
	assert.Empty(t, BearerToken(""))
}
