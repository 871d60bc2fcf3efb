package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loginLimit = Limit{Name: "login", Requests: 2, Window: time.Minute}

func newLimitedApp(rdb *redis.Client, l Limit) *fiber.App {
	app := fiber.New()
	app.Post("/auth/login", RateLimit(rdb, l), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestLimitTake_DisabledOutsideDeployments(t *testing.T) {
	for _, env := range []string{"", "test", "development"} {
		t.Run("env="+env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)

			remaining, err := loginLimit.Take(context.Background(), nil, "ip:1")
			assert.NoError(t, err)
			assert.Equal(t, 2, remaining)
		})
	}
}

func TestLimitTake_NilRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := loginLimit.Take(context.Background(), nil, "ip:1")
	assert.ErrorIs(t, err, errNoRedis)
}

func TestLimitTake_SetsWindowOnce(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	remaining, err := loginLimit.Take(context.Background(), rdb, "user:7")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, time.Minute, mr.TTL("rl:login:user:7"))

	mr.FastForward(30 * time.Second)
	remaining, err = loginLimit.Take(context.Background(), rdb, "user:7")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 30*time.Second, mr.TTL("rl:login:user:7"))

	mr.FastForward(31 * time.Second)
	remaining, err = loginLimit.Take(context.Background(), rdb, "user:7")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	app := newLimitedApp(rdb, loginLimit)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	app := newLimitedApp(nil, loginLimit)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
