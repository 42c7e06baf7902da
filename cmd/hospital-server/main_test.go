package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orego/hospital/internal/domain/identity"
	"github.com/orego/hospital/internal/domain/resource"
	"github.com/orego/hospital/internal/platform/auth"
	"github.com/orego/hospital/internal/platform/middleware"
)

// fakeUserRepo implements only the identity.Repository methods the adapters
// touch. Anything else panics through the embedded nil interface.
type fakeUserRepo struct {
	identity.Repository
	users []*identity.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context, filter identity.Filter) ([]*identity.User, int, error) {
	var matched []*identity.User
	for _, u := range f.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		matched = append(matched, u)
	}
	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

type fakeResourceRepo struct {
	resource.Repository
	resources map[uuid.UUID]*resource.Resource
	statuses  map[uuid.UUID]string
}

func (f *fakeResourceRepo) GetByID(_ context.Context, id uuid.UUID) (*resource.Resource, error) {
	if r, ok := f.resources[id]; ok {
		return r, nil
	}
	return nil, resource.ErrNotFound
}

func (f *fakeResourceRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	if _, ok := f.resources[id]; !ok {
		return resource.ErrNotFound
	}
	if f.statuses == nil {
		f.statuses = make(map[uuid.UUID]string)
	}
	f.statuses[id] = status
	return nil
}

func TestBookingUserDirectoryMapsFields(t *testing.T) {
	u := &identity.User{
		ID:       uuid.New(),
		Role:     identity.RoleDoctor,
		Name:     "Dr. Silva",
		IsActive: true,
	}
	dir := &bookingUserDirectory{repo: &fakeUserRepo{users: []*identity.User{u}}}

	p, err := dir.Participant(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("participant: %v", err)
	}
	if p.ID != u.ID || p.Role != u.Role || p.Name != u.Name || !p.Active {
		t.Errorf("participant = %+v, want fields of %+v", p, u)
	}

	if _, err := dir.Participant(context.Background(), uuid.New()); err == nil {
		t.Error("unknown user should not resolve")
	}
}

func TestBedDirectoryLabelAndRelease(t *testing.T) {
	ward := "Ward A"
	bed := "12"
	r := &resource.Resource{
		ID:        uuid.New(),
		Kind:      resource.KindBed,
		Name:      "Bed",
		WardID:    &ward,
		BedNumber: &bed,
		Status:    resource.StatusBooked,
	}
	repo := &fakeResourceRepo{resources: map[uuid.UUID]*resource.Resource{r.ID: r}}
	dir := &bedDirectory{repo: repo}

	label, err := dir.BedLabel(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("bed label: %v", err)
	}
	if label != r.Identifier() {
		t.Errorf("label = %q, want %q", label, r.Identifier())
	}

	if err := dir.Release(context.Background(), r.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if repo.statuses[r.ID] != resource.StatusAvailable {
		t.Errorf("status after release = %q, want %q", repo.statuses[r.ID], resource.StatusAvailable)
	}
}

func TestRecipientDirectoryPaginatesThroughAllUsers(t *testing.T) {
	repo := &fakeUserRepo{}
	for i := 0; i < 1203; i++ {
		repo.users = append(repo.users, &identity.User{
			ID:       uuid.New(),
			Role:     identity.RoleNurse,
			IsActive: true,
		})
	}
	// Inactive and off-role users must not receive broadcasts.
	repo.users = append(repo.users,
		&identity.User{ID: uuid.New(), Role: identity.RoleNurse, IsActive: false},
		&identity.User{ID: uuid.New(), Role: identity.RoleDoctor, IsActive: true},
	)

	dir := &recipientDirectory{repo: repo}
	ids, err := dir.ActiveUserIDs(context.Background(), identity.RoleNurse)
	if err != nil {
		t.Fatalf("active user ids: %v", err)
	}
	if len(ids) != 1203 {
		t.Errorf("recipients = %d, want 1203", len(ids))
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate recipient %s", id)
		}
		seen[id] = true
	}
}

// Mirrors the route wiring: the limiter sits behind authentication, so each
// signed-in user gets their own bucket even behind a shared address.
func TestRateLimiterKeysAuthenticatedUsersIndividually(t *testing.T) {
	issuer := auth.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour, 24*time.Hour)

	e := echo.New()
	api := e.Group("/api/v1")
	limited := middleware.RateLimit(middleware.RateLimitConfig{RequestsPerSecond: 0.01, BurstSize: 1})
	g := api.Group("/bookings", auth.Middleware(issuer), limited)
	g.GET("", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func(t *testing.T, token string) int {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Real-IP", "10.0.0.9")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	first, err := issuer.AccessToken(uuid.New(), "doctor")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	second, err := issuer.AccessToken(uuid.New(), "nurse")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	if code := call(t, first); code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", code)
	}
	// A different user behind the same address gets a fresh bucket.
	if code := call(t, second); code != http.StatusOK {
		t.Errorf("second user = %d, want 200", code)
	}
	// The first user's bucket is spent.
	if code := call(t, first); code != http.StatusTooManyRequests {
		t.Errorf("repeat request = %d, want 429", code)
	}
}
