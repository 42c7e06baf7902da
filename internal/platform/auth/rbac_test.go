package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		required   []string
		wantStatus int
	}{
		{"matching role", "doctor", []string{"doctor"}, http.StatusOK},
		{"one of several", "nurse", []string{"doctor", "nurse"}, http.StatusOK},
		{"admin passes any gate", "admin", []string{"doctor"}, http.StatusOK},
		{"wrong role", "patient", []string{"doctor"}, http.StatusForbidden},
		{"unauthenticated", "", []string{"doctor"}, http.StatusForbidden},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(tt.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				ctx := WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: tt.role})
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler(c)
			if err != nil {
				e.HTTPErrorHandler(err, c)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
