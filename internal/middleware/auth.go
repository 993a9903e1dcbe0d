package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-tours-api/internal/model"
	"go-tours-api/pkg/apierror"
)

type tokenVerifier interface {
	Verify(tokenString string) (*model.SessionClaims, error)
}

type subjectStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

// AuthMiddleware is the access guard. Authenticate is the guard proper — a
// pure function from an Authorization header to an admitted principal or a
// rejection; RequireAuth and RequireRoles adapt it to the router's
// middleware chain.
type AuthMiddleware struct {
	tokens tokenVerifier
	users  subjectStore
}

func NewAuthMiddleware(tokens tokenVerifier, users subjectStore) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Authenticate runs the admission state machine: extract the bearer token,
// verify signature and expiry, resolve the live subject (soft-deleted users
// are invisible to the lookup), and reject tokens issued before the
// subject's last credential rotation. The subject is re-resolved on every
// request; there is no session cache.
func (m *AuthMiddleware) Authenticate(ctx context.Context, authorizationHeader string) (model.User, error) {
	header := strings.TrimSpace(authorizationHeader)
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return model.User{}, apierror.New("UNAUTHORIZED", "you are not logged in, please log in to get access", "", http.StatusUnauthorized)
	}

	claims, err := m.tokens.Verify(strings.TrimSpace(header[len("bearer "):]))
	if err != nil {
		return model.User{}, apierror.New("UNAUTHORIZED", "invalid or expired token", "", http.StatusUnauthorized)
	}

	user, err := m.users.FindByID(ctx, claims.SubjectID)
	if err != nil {
		// "subject no longer exists" stays in the details field for
		// operators; the client sees the same 401 as any other rejection.
		return model.User{}, apierror.New("UNAUTHORIZED", "invalid or expired token", "subject no longer exists", http.StatusUnauthorized)
	}

	if user.PasswordChangedAfter(claims.IssuedAt) {
		return model.User{}, apierror.New("UNAUTHORIZED", "password was changed recently, please log in again", "", http.StatusUnauthorized)
	}

	return user, nil
}

// RequireAuth admits or rejects the request and attaches the principal for
// downstream handlers.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles gates an already-authenticated request on a role whitelist.
// It is a pure predicate over the principal; no store access.
func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeAuthError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
				return
			}

			if _, allowed := roleSet[principal.Role]; !allowed {
				writeAuthError(w, apierror.New("FORBIDDEN", "you do not have permission to perform this action", "", http.StatusForbidden))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFromContext(ctx context.Context) (model.User, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.User)
	return principal, ok
}

func writeAuthError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apierror.APIError)
	if !ok {
		apiErr = apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}
