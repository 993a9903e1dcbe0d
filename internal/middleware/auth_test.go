package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tours-api/internal/model"
	"go-tours-api/internal/service"
	"go-tours-api/pkg/apierror"
)

type fakeSubjectStore struct {
	users map[string]model.User
}

func (s *fakeSubjectStore) FindByID(_ context.Context, id string) (model.User, error) {
	u, ok := s.users[id]
	if !ok || !u.Active {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func newTestGuard(t *testing.T) (*AuthMiddleware, *service.TokenService, *fakeSubjectStore) {
	t.Helper()
	tokens := service.NewTokenService("test-secret", time.Hour)
	store := &fakeSubjectStore{users: map[string]model.User{
		"u1": {ID: "u1", Name: "Ada", Email: "a@x.com", Role: model.RoleUser, Active: true},
	}}
	return NewAuthMiddleware(tokens, store), tokens, store
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("admits a valid bearer token", func(t *testing.T) {
		guard, tokens, _ := newTestGuard(t)
		token, err := tokens.Issue("u1")
		require.NoError(t, err)

		user, err := guard.Authenticate(ctx, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		guard, _, _ := newTestGuard(t)
		_, err := guard.Authenticate(ctx, "")
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("rejects a non-bearer scheme", func(t *testing.T) {
		guard, _, _ := newTestGuard(t)
		_, err := guard.Authenticate(ctx, "Basic dXNlcjpwYXNz")
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("rejects a garbage token", func(t *testing.T) {
		guard, _, _ := newTestGuard(t)
		_, err := guard.Authenticate(ctx, "Bearer not-a-token")
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		guard, _, _ := newTestGuard(t)
		other := service.NewTokenService("other-secret", time.Hour)
		token, err := other.Issue("u1")
		require.NoError(t, err)

		_, err = guard.Authenticate(ctx, "Bearer "+token)
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("rejects a token whose subject no longer exists", func(t *testing.T) {
		guard, tokens, _ := newTestGuard(t)
		token, err := tokens.Issue("ghost")
		require.NoError(t, err)

		_, err = guard.Authenticate(ctx, "Bearer "+token)
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("rejects a token whose subject was soft-deleted", func(t *testing.T) {
		guard, tokens, store := newTestGuard(t)
		token, err := tokens.Issue("u1")
		require.NoError(t, err)

		u := store.users["u1"]
		u.Active = false
		store.users["u1"] = u

		_, err = guard.Authenticate(ctx, "Bearer "+token)
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("rejects a token issued before a credential rotation", func(t *testing.T) {
		guard, tokens, store := newTestGuard(t)
		token, err := tokens.Issue("u1")
		require.NoError(t, err)

		changed := time.Now().Add(time.Minute)
		u := store.users["u1"]
		u.PasswordChangedAt = &changed
		store.users["u1"] = u

		_, err = guard.Authenticate(ctx, "Bearer "+token)
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("admits a token issued after a credential rotation", func(t *testing.T) {
		guard, tokens, store := newTestGuard(t)

		changed := time.Now().Add(-time.Hour)
		u := store.users["u1"]
		u.PasswordChangedAt = &changed
		store.users["u1"] = u

		token, err := tokens.Issue("u1")
		require.NoError(t, err)

		user, err := guard.Authenticate(ctx, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	t.Parallel()

	guard, tokens, _ := newTestGuard(t)

	var principal model.User
	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("attaches the principal on success", func(t *testing.T) {
		token, err := tokens.Issue("u1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "u1", principal.ID)
	})

	t.Run("writes the envelope on rejection", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), `"success":false`)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})
}

func TestAuthMiddleware_RequireRoles(t *testing.T) {
	t.Parallel()

	guard, _, _ := newTestGuard(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	restricted := guard.RequireRoles(model.RoleAdmin, model.RoleLeadGuide)(next)

	serve := func(principal *model.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		if principal != nil {
			ctx := context.WithValue(req.Context(), principalContextKey, *principal)
			req = req.WithContext(ctx)
		}
		rec := httptest.NewRecorder()
		restricted.ServeHTTP(rec, req)
		return rec
	}

	t.Run("admits an allowed role", func(t *testing.T) {
		rec := serve(&model.User{ID: "u2", Role: model.RoleAdmin})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("rejects a disallowed role with 403", func(t *testing.T) {
		rec := serve(&model.User{ID: "u1", Role: model.RoleUser})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN")
	})

	t.Run("rejects a request with no principal with 401", func(t *testing.T) {
		rec := serve(nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.HTTPStatus)
}
