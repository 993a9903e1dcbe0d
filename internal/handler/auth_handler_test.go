package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-tours-api/internal/mailer"
	"go-tours-api/internal/middleware"
	"go-tours-api/internal/model"
	"go-tours-api/internal/service"
)

// fakeUserStore is a compact in-memory service.UserStore for wiring the
// auth routes end to end without a database.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Active && u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !u.Active {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return model.ErrUserAlreadyExists
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) RotatePassword(_ context.Context, id string, passwordHash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = &changedAt
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) SetResetToken(_ context.Context, id string, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiresAt = &expiresAt
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) ClearResetToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) RedeemResetToken(_ context.Context, tokenHash string, passwordHash string, changedAt time.Time, now time.Time) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if !u.Active || u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash || !u.ResetTokenExpiresAt.After(now) {
			continue
		}
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changedAt
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		s.users[id] = u
		return u, nil
	}
	return model.User{}, model.ErrResetTokenInvalid
}

type discardMailer struct{}

func (discardMailer) Send(context.Context, mailer.Message) error { return nil }

// newAuthTestServer wires the auth handler, the access guard and a protected
// probe endpoint the way the application router does.
func newAuthTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := &fakeUserStore{users: map[string]model.User{}}
	tokens := service.NewTokenService("test-secret", time.Hour)
	svc := service.NewAuthService(
		store,
		tokens,
		service.NewPasswordHasher(bcrypt.MinCost),
		service.NewResetTokenManager(10*time.Minute),
		discardMailer{},
		"http://localhost/api/v1/auth/reset-password",
	)
	guard := middleware.NewAuthMiddleware(tokens, store)
	h := NewAuthHandler(svc)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", h.Signup)
		r.Post("/auth/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Patch("/auth/update-password", h.UpdatePassword)
			r.Get("/probe", func(w http.ResponseWriter, req *http.Request) {
				principal, _ := middleware.PrincipalFromContext(req.Context())
				writeSuccess(w, http.StatusOK, map[string]string{"id": principal.ID}, nil)
			})
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func postJSON(t *testing.T, url string, body any) (*http.Response, envelope) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestAuthRoutes_SignupLoginAndProtect(t *testing.T) {
	t.Parallel()

	srv := newAuthTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/v1/auth/signup", model.SignupRequest{
		Name:            "Ada",
		Email:           "a@x.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var signedUp model.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &signedUp))
	require.NotEmpty(t, signedUp.Token)
	assert.Equal(t, model.RoleUser, signedUp.User.Role)

	// The signup token is accepted by the guard and resolves to the same
	// subject.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/probe", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signedUp.Token)

	probeResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer probeResp.Body.Close()
	require.Equal(t, http.StatusOK, probeResp.StatusCode)

	var probeEnv envelope
	require.NoError(t, json.NewDecoder(probeResp.Body).Decode(&probeEnv))
	var probeData struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(probeEnv.Data, &probeData))
	assert.Equal(t, signedUp.User.ID, probeData.ID)

	// Login with the same credentials also works.
	resp, env = postJSON(t, srv.URL+"/api/v1/auth/login", model.LoginRequest{
		Email:    "a@x.com",
		Password: "secret123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestAuthRoutes_Rejections(t *testing.T) {
	t.Parallel()

	srv := newAuthTestServer(t)

	t.Run("probe without a token is rejected", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/probe")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("login for an unregistered email is a generic 401", func(t *testing.T) {
		resp, env := postJSON(t, srv.URL+"/api/v1/auth/login", model.LoginRequest{
			Email:    "nobody@x.com",
			Password: "secret123",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.NotNil(t, env.Error)
		assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/auth/signup", "application/json", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("signup with a short password is a 400", func(t *testing.T) {
		resp, env := postJSON(t, srv.URL+"/api/v1/auth/signup", model.SignupRequest{
			Name:            "Bob",
			Email:           "b@x.com",
			Password:        "short",
			PasswordConfirm: "short",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NotNil(t, env.Error)
		assert.Equal(t, "BAD_REQUEST", env.Error.Code)
	})
}

func TestAuthRoutes_UpdatePasswordInvalidatesOldToken(t *testing.T) {
	t.Parallel()

	srv := newAuthTestServer(t)

	_, env := postJSON(t, srv.URL+"/api/v1/auth/signup", model.SignupRequest{
		Name:            "Ada",
		Email:           "a@x.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
	})
	var signedUp model.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &signedUp))
	oldToken := signedUp.Token

	// Tokens carry whole-second timestamps, so make sure the rotation lands
	// strictly after the old token's issue time even with the backdating
	// margin applied.
	time.Sleep(2100 * time.Millisecond)

	body, err := json.Marshal(model.UpdatePasswordRequest{
		PasswordCurrent: "secret123",
		Password:        "newsecret1",
		PasswordConfirm: "newsecret1",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/v1/auth/update-password", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+oldToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rotatedEnv envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rotatedEnv))
	var rotated model.AuthResult
	require.NoError(t, json.Unmarshal(rotatedEnv.Data, &rotated))
	require.NotEmpty(t, rotated.Token)

	probe := func(token string) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/probe", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, probe(oldToken))
	assert.Equal(t, http.StatusOK, probe(rotated.Token))
}
