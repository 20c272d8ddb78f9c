package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/felicity-registration/internal/config"
	"github.com/iliyamo/felicity-registration/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, h echo.HandlerFunc, token string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/events/:id", h, mw...)
	req := httptest.NewRequest(http.MethodGet, "/events/7", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsClaims(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, 42, RoleOrganizer, 5)
	require.NoError(t, err)

	var uid, role any
	rec := serve(t, func(c echo.Context) error {
		uid, role = c.Get("user_id"), c.Get("role")
		return c.NoContent(http.StatusNoContent)
	}, tok.Token, JWTAuth(secret))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, float64(42), uid)
	assert.Equal(t, RoleOrganizer, role)
}

func TestJWTAuthRejects(t *testing.T) {
	other, err := utils.NewAccessToken("another-secret", 42, RoleOrganizer, 5)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, 42, RoleOrganizer, -5)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing":      "",
		"garbage":      "not.a.jwt",
		"wrong secret": other.Token,
		"expired":      expired.Token,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, token, JWTAuth(secret))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	participant, err := utils.NewAccessToken(secret, 1, RoleParticipant, 5)
	require.NoError(t, err)
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	rec := serve(t, ok, participant.Token, JWTAuth(secret), RequireRole(RoleOrganizer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, ok, participant.Token, JWTAuth(secret), RequireRole(RoleParticipant, RoleOrganizer))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLimiterAndCachePassThroughWithoutRedis(t *testing.T) {
	calls := 0
	h := func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}
	for range 3 {
		rec := serve(t, h, "", NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil),
			NewRedisCache(config.CacheConfig{Enabled: true}, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, calls)
}

func TestRateKeyUsesNumericSubject(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/registrations", nil), httptest.NewRecorder())
	c.SetPath("/registrations")
	c.Set("user_id", float64(42))

	key := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c)
	assert.Equal(t, "rl:user:42:route:POST /registrations", key)
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"seats_left":3}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.JSONEq(t, `{"seats_left":3}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestCacheKeyDistinguishesPaths(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "avail"}
	a := e.NewContext(httptest.NewRequest(http.MethodGet, "/events/1/availability", nil), httptest.NewRecorder())
	b := e.NewContext(httptest.NewRequest(http.MethodGet, "/events/2/availability", nil), httptest.NewRecorder())
	a.SetPath("/events/:id/availability")
	b.SetPath("/events/:id/availability")
	assert.NotEqual(t, cacheKeyFrom(cfg, a), cacheKeyFrom(cfg, b))
}
