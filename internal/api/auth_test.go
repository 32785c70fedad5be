package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"futmap/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "valid-key", Name: "web", Permissions: []string{"read:fields"}},
				{Key: "admin-key", Name: "admin"},
			},
		},
		RateLimit: config.APIRateLimitConfig{
			RPS:   100,
			Burst: 200,
		},
	}
}

func TestAuthInterceptor(t *testing.T) {
	cfg := authConfig()
	interceptor := NewAuthInterceptor(&cfg).Unary()

	handler := func(_ context.Context, req any) (any, error) {
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/futmap.v1.Fields/List"}

	t.Run("Success", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "valid-key"))
		resp, err := interceptor(ctx, "req", info, handler)
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})

	t.Run("MissingMetadata", func(t *testing.T) {
		_, err := interceptor(context.Background(), "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("MissingHeader", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs())
		_, err := interceptor(ctx, "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidKey", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "invalid"))
		_, err := interceptor(ctx, "req", info, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("HealthIsOpen", func(t *testing.T) {
		healthInfo := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
		resp, err := interceptor(context.Background(), "req", healthInfo, handler)
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}

func TestAuthInterceptor_RateLimit(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		RateLimit: config.APIRateLimitConfig{
			RPS:   1,
			Burst: 1,
		},
	}

	interceptor := NewAuthInterceptor(&cfg).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: "test"}
	handler := func(_ context.Context, req any) (any, error) { return "ok", nil }

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "key1"))

	_, err := interceptor(ctx, "req", info, handler)
	assert.NoError(t, err)

	_, err = interceptor(ctx, "req", info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// другой ключ получает свой bucket
	other := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "key2"))
	_, err = interceptor(other, "req", info, handler)
	assert.NoError(t, err)
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	interceptor := LoggingUnaryInterceptor(nil)
	handler := func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "test"}

	resp, err := interceptor(context.Background(), "req", info, handler)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestRequestIDFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "abc"))
	assert.Equal(t, "abc", requestIDFromMetadata(ctx))
	assert.NotEmpty(t, requestIDFromMetadata(context.Background()))
}

func TestRequiredPermissionHTTP(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/fields", "read:fields"},
		{http.MethodGet, "/api/v1/fields/1/availability", "read:fields"},
		{http.MethodPost, "/api/v1/bookings", "write:bookings"},
		{http.MethodPost, "/api/v1/bookings/b-1/cancel", "write:bookings"},
		{http.MethodGet, "/api/v1/bookings/b-1", "read:bookings"},
		{http.MethodGet, "/api/v1/users/user-1/stats", "read:bookings"},
		{http.MethodGet, "/healthz", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, http.NoBody)
		assert.Equal(t, tt.want, requiredPermissionHTTP(r), tt.path)
	}
}

func TestHTTPAuth_Middleware(t *testing.T) {
	auth := NewHTTPAuth(authConfig())
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := auth.Middleware(next)

	do := func(method, path, key string) int {
		r := httptest.NewRequest(method, path, http.NoBody)
		if key != "" {
			r.Header.Set("X-Api-Key", key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodGet, "/api/v1/fields", "valid-key"))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/v1/fields", ""))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/v1/fields", "nope"))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/api/v1/bookings", "valid-key"))
	assert.Equal(t, http.StatusNoContent, do(http.MethodPost, "/api/v1/bookings", "admin-key"))
}

func TestRateLimiter(t *testing.T) {
	l := newRateLimiter(config.APIRateLimitConfig{RPS: 1})
	require.True(t, l.enabled())

	// burst по умолчанию
	for i := 0; i < defaultBurst; i++ {
		assert.True(t, l.allow("k"))
	}
	assert.False(t, l.allow("k"))
	assert.Same(t, l.getLimiter("k"), l.getLimiter("k"))

	off := newRateLimiter(config.APIRateLimitConfig{})
	assert.True(t, off.allow("k"))
}
