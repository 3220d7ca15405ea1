package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"tradechat/internal/adapter/api/middleware"
	"tradechat/internal/infrastructure/ratelimit"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if uid, ok := v[token]; ok {
		return uid, nil
	}
	return "", errors.New("unknown token")
}

func whoami(c echo.Context) error {
	return c.String(http.StatusOK, middleware.UserID(c))
}

func serve(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func Test_Authenticate(t *testing.T) {
	e := echo.New()
	auth := middleware.NewAuthMiddleware(staticVerifier{"good": "u1"})
	e.GET("/me", whoami, auth.Authenticate)

	tests := []struct {
		name          string
		path          string
		authorization string
		wantStatus    int
		wantBody      string
	}{
		{name: "bearer header", path: "/me", authorization: "Bearer good", wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "lowercase scheme", path: "/me", authorization: "bearer good", wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "query token", path: "/me?token=good", wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "missing", path: "/me", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/me", authorization: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", path: "/me", authorization: "Bearer bad", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.path, tt.authorization)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				require.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func Test_RateLimit_Per_User(t *testing.T) {
	req := require.New(t)
	limiter := ratelimit.NewRateLimiterWithPolicies(map[string]ratelimit.Policy{
		ratelimit.ActionRequest: {Burst: 2, Refill: time.Hour},
	})

	e := echo.New()
	auth := middleware.NewAuthMiddleware(staticVerifier{"a": "u1", "b": "u2"})
	e.GET("/me", whoami, auth.Authenticate, middleware.RateLimit(limiter, ratelimit.ActionRequest))

	req.Equal(http.StatusOK, serve(e, "/me", "Bearer a").Code)
	req.Equal(http.StatusOK, serve(e, "/me", "Bearer a").Code)

	rec := serve(e, "/me", "Bearer a")
	req.Equal(http.StatusTooManyRequests, rec.Code)
	req.NotEmpty(rec.Header().Get("Retry-After"))
	req.Contains(rec.Body.String(), `"TOO_MANY_REQUESTS"`)

	req.Equal(http.StatusOK, serve(e, "/me", "Bearer b").Code)
}
