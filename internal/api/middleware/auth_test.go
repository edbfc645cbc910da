package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

type stubResolver struct {
	identity *domain.Identity
	err      error
	gotToken string
}

func (s *stubResolver) CurrentIdentity(_ context.Context, token string) (*domain.Identity, error) {
	s.gotToken = token
	return s.identity, s.err
}

func runAuth(t *testing.T, resolver IdentityResolver, header string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Auth(resolver)(next)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	resolver := &stubResolver{identity: &domain.Identity{ID: 7, Username: "alice", Role: domain.RoleAdmin}}

	called := false
	rec := runAuth(t, resolver, "Bearer good-token", func(c echo.Context) error {
		called = true
		if c.Get(CtxUserID) != int64(7) {
			t.Fatalf("user_id not set")
		}
		if c.Get(CtxUsername) != "alice" {
			t.Fatalf("username not set")
		}
		if c.Get(CtxRole) != domain.RoleAdmin {
			t.Fatalf("role not set")
		}
		id, ok := domain.IdentityFromContext(c.Request().Context())
		if !ok || id.ID != 7 {
			t.Fatalf("identity not injected into request context")
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resolver.gotToken != "good-token" {
		t.Fatalf("unexpected token passed to resolver: %q", resolver.gotToken)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
	}{
		{"missing header", "", nil},
		{"wrong scheme", "Token abc", nil},
		{"empty bearer", "Bearer ", nil},
		{"invalid token", "Bearer not-a-token", domain.ErrUnauthenticated},
	}
	for _, tc := range cases {
		resolver := &stubResolver{err: tc.err}
		rec := runAuth(t, resolver, tc.header, func(c echo.Context) error {
			t.Fatalf("%s: should not reach next", tc.name)
			return nil
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
	}
}

func TestAuthMiddleware_ResolverFailure(t *testing.T) {
	boom := errors.New("db down")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	c := e.NewContext(req, httptest.NewRecorder())

	err := Auth(&stubResolver{err: boom})(func(c echo.Context) error { return nil })(c)
	if !errors.Is(err, boom) {
		t.Fatalf("expected resolver error to propagate, got %v", err)
	}
}
