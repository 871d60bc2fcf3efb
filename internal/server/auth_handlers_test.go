package server

import (
	"net/http"
	"testing"

	"feedhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
		expectedFields []string
	}{
		{
			name:           "Success",
			body:           map[string]string{"email": "ada@example.com", "name": "Ada", "password": "secret"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Invalid email and short password",
			body:           map[string]string{"email": "nope", "name": "Ada", "password": "abc"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedFields: []string{"email", "password"},
		},
		{
			name:           "Missing name",
			body:           map[string]string{"email": "ada@example.com", "name": "  ", "password": "secret"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedFields: []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			res := ts.doJSON(t, http.MethodPut, "/auth/signup", "", tt.body)

			require.Equal(t, tt.expectedStatus, res.status, res.body)
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, "User created", res.body["message"])
				assert.NotEmpty(t, res.body["userId"])
				return
			}
			data := res.body["data"].([]interface{})
			require.Len(t, data, len(tt.expectedFields))
			for i, field := range tt.expectedFields {
				assert.Equal(t, field, data[i].(map[string]interface{})["field"])
			}
		})
	}
}

func TestSignup_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "ada@example.com", "Ada")

	res := ts.doJSON(t, http.MethodPut, "/auth/signup", "", map[string]string{
		"email": "ADA@example.com", "name": "Ada", "password": "secret",
	})

	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "User already exists!", res.body["message"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "ada@example.com", "Ada")

	res := ts.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusOK, res.status)
	assert.NotEmpty(t, res.body["token"])
	assert.Equal(t, "1", res.body["userId"])

	res = ts.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Wrong password!", res.body["message"])

	res = ts.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "secret",
	})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "A user with this email could not be found.", res.body["message"])
}

func TestUserStatus(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "ada@example.com", "Ada")

	res := ts.doJSON(t, http.MethodGet, "/auth/status", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, models.DefaultStatus, res.body["status"])

	res = ts.doJSON(t, http.MethodPatch, "/auth/status", token, map[string]string{"status": "Writing"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "User updated.", res.body["message"])

	res = ts.doJSON(t, http.MethodGet, "/auth/status", token, nil)
	assert.Equal(t, "Writing", res.body["status"])

	res = ts.doJSON(t, http.MethodPatch, "/auth/status", token, map[string]string{"status": " "})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
}

func TestUserStatus_RequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	res := ts.doJSON(t, http.MethodGet, "/auth/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Not authenticated.", res.body["message"])

	res = ts.doJSON(t, http.MethodPatch, "/auth/status", "bad.token.value", map[string]string{"status": "x"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}
