package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newTestCredentials() *CredentialService {
	return NewCredentialService(testSecret, "feedhub-api", time.Hour, bcrypt.MinCost)
}

func TestCredentialService_HashAndVerify(t *testing.T) {
	creds := newTestCredentials()

	hash, err := creds.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, creds.Verify("secret123", hash))
	assert.False(t, creds.Verify("secret124", hash))
	assert.False(t, creds.Verify("secret123", "not-a-hash"))

	again, err := creds.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")
}

func TestCredentialService_TokenRoundTrip(t *testing.T) {
	creds := newTestCredentials()

	token, err := creds.IssueToken(42, "a@b.com")
	require.NoError(t, err)

	identity, ok := creds.VerifyToken(token)
	require.True(t, ok)
	assert.Equal(t, uint(42), identity.UserID)
	assert.Equal(t, "a@b.com", identity.Email)
}

func TestCredentialService_TokenExpiresAfterTTL(t *testing.T) {
	creds := newTestCredentials()
	issuedAt := time.Now().Add(-2 * time.Hour)
	creds.now = func() time.Time { return issuedAt }

	token, err := creds.IssueToken(42, "a@b.com")
	require.NoError(t, err)

	creds.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	_, ok := creds.VerifyToken(token)
	assert.True(t, ok)

	creds.now = time.Now
	_, ok = creds.VerifyToken(token)
	assert.False(t, ok)
}

func TestCredentialService_RejectsInvalidTokens(t *testing.T) {
	creds := newTestCredentials()
	valid, err := creds.IssueToken(42, "a@b.com")
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	baseClaims := func() Claims {
		return Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "feedhub-api",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			UserID: 42,
			Email:  "a@b.com",
		}
	}

	parts := strings.Split(valid, ".")
	tamperedPayload := parts[0] + "." + parts[1] + "x." + parts[2]

	wrongIssuer := baseClaims()
	wrongIssuer.Issuer = "someone-else"

	noExpiry := baseClaims()
	noExpiry.ExpiresAt = nil

	noUser := baseClaims()
	noUser.UserID = 0

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"tampered payload", tamperedPayload},
		{"truncated signature", valid[:len(valid)-4]},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-another-secret-1234"), baseClaims())},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte(testSecret), baseClaims())},
		{"unsigned", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, baseClaims())},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{"missing expiry", sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"missing user", sign(jwt.SigningMethodHS256, []byte(testSecret), noUser)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				identity, ok := creds.VerifyToken(tt.token)
				assert.False(t, ok)
				assert.Zero(t, identity.UserID)
			})
		})
	}
}

func TestCredentialService_NoSecret(t *testing.T) {
	creds := NewCredentialService("", "feedhub-api", time.Hour, bcrypt.MinCost)

	_, err := creds.IssueToken(1, "a@b.com")
	assert.Error(t, err)

	_, ok := creds.VerifyToken("anything")
	assert.False(t, ok)
}
