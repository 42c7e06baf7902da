package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orego/hospital/internal/platform/auth"
)

func doLimitedRequest(e *echo.Echo, handler echo.HandlerFunc, ip string, userID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", ip)
	if userID != uuid.Nil {
		ctx := auth.WithPrincipal(req.Context(), auth.Principal{UserID: userID, Role: "patient"})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestRateLimitExhaustsBurst(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 3})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		if rec := doLimitedRequest(e, handler, "10.0.0.1", uuid.Nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := doLimitedRequest(e, handler, "10.0.0.1", uuid.Nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if rec := doLimitedRequest(e, handler, "10.0.0.1", uuid.Nil); rec.Code != http.StatusOK {
		t.Fatalf("first ip: status = %d, want 200", rec.Code)
	}
	if rec := doLimitedRequest(e, handler, "10.0.0.1", uuid.Nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first ip second request: status = %d, want 429", rec.Code)
	}
	if rec := doLimitedRequest(e, handler, "10.0.0.2", uuid.Nil); rec.Code != http.StatusOK {
		t.Errorf("second ip: status = %d, want 200", rec.Code)
	}
}

func TestRateLimitKeyedByUserWhenAuthenticated(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// Two users behind the same NAT each get their own bucket.
	if rec := doLimitedRequest(e, handler, "10.0.0.1", uuid.New()); rec.Code != http.StatusOK {
		t.Fatalf("first user: status = %d, want 200", rec.Code)
	}
	if rec := doLimitedRequest(e, handler, "10.0.0.1", uuid.New()); rec.Code != http.StatusOK {
		t.Errorf("second user same ip: status = %d, want 200", rec.Code)
	}
}
