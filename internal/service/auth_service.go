package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-tours-api/internal/mailer"
	"go-tours-api/internal/model"
	"go-tours-api/pkg/apierror"
)

const minPasswordLength = 8

// passwordChangedAtMargin backdates the recorded rotation timestamp.
// Session tokens truncate iat to whole seconds, and the rotation row can be
// written fractionally after the fresh token is signed; without the margin
// the token the rotation flow just issued would fail the guard's staleness
// check.
const passwordChangedAtMargin = time.Second

// UserStore is the credential-store contract the auth flows depend on. All
// lookups exclude soft-deleted users. Mutating operations apply their whole
// effect as a single atomic update.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	Create(ctx context.Context, u model.User) error

	// RotatePassword replaces the stored hash and records changedAt in the
	// same update.
	RotatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error

	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error

	// RedeemResetToken rotates the credential of the user whose pending
	// reset-token hash equals tokenHash and has not expired at now,
	// clearing both reset fields in the same conditional update. It returns
	// model.ErrResetTokenInvalid when no row matches, which is also how a
	// concurrent second redeemer loses the race.
	RedeemResetToken(ctx context.Context, tokenHash string, passwordHash string, changedAt time.Time, now time.Time) (model.User, error)
}

// AuthService orchestrates registration, login and the credential rotation
// flows over the hasher, token issuer, reset-token manager and mailer.
type AuthService struct {
	users        UserStore
	tokens       *TokenService
	hasher       *PasswordHasher
	resetTokens  *ResetTokenManager
	mail         mailer.Mailer
	resetURLBase string
	now          func() time.Time
}

func NewAuthService(
	users UserStore,
	tokens *TokenService,
	hasher *PasswordHasher,
	resetTokens *ResetTokenManager,
	mail mailer.Mailer,
	resetURLBase string,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		hasher:       hasher,
		resetTokens:  resetTokens,
		mail:         mail,
		resetURLBase: strings.TrimRight(resetURLBase, "/"),
		now:          time.Now,
	}
}

// Signup creates a user with a hashed secret and signs them in. The role is
// always the default; client-supplied roles are ignored.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.AuthResult{}, apierror.New("BAD_REQUEST", "name is required", "name", http.StatusBadRequest)
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return model.AuthResult{}, err
	}

	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		return model.AuthResult{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         model.RoleUser,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.AuthResult{}, apierror.New("ALREADY_EXISTS", "email is already registered", "", http.StatusConflict)
		}
		return model.AuthResult{}, err
	}

	return s.signIn(user)
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error so the response does not reveal
// whether an account exists.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.AuthResult{}, apierror.New("BAD_REQUEST", "email and password are required", "", http.StatusBadRequest)
	}

	user, err := s.users.FindByEmail(ctx, normalize(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.AuthResult{}, invalidCredentials()
		}
		return model.AuthResult{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return model.AuthResult{}, invalidCredentials()
	}

	return s.signIn(user)
}

// UpdatePassword rotates the secret of an authenticated user after
// verifying the current one, then issues a fresh session token.
func (s *AuthService) UpdatePassword(ctx context.Context, userID string, req model.UpdatePasswordRequest) (model.AuthResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.AuthResult{}, err
	}

	if !s.hasher.Verify(req.PasswordCurrent, user.PasswordHash) {
		return model.AuthResult{}, apierror.New("UNAUTHORIZED", "current password is wrong", "", http.StatusUnauthorized)
	}

	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		return model.AuthResult{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	changedAt := s.now().UTC().Add(-passwordChangedAtMargin)
	if err := s.users.RotatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return model.AuthResult{}, err
	}

	return s.signIn(user)
}

// ForgotPassword issues a reset token and mails its raw form to the user.
// Unknown emails get the same nil result as known ones and cause no store
// mutation. If delivery fails, the just-persisted reset fields are cleared
// before the error is returned so the user is left in the pre-request
// state.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalize(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			slog.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	raw, hash, expiresAt, err := s.resetTokens.Generate()
	if err != nil {
		return err
	}

	if err := s.users.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/%s", s.resetURLBase, raw)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Your password reset token (valid for 10 min)",
		Body: "Forgot your password? Submit a PATCH request with your new password and password_confirm to: " +
			resetURL + "\nIf you didn't forget your password, please ignore this email.",
	}

	if err := s.mail.Send(ctx, msg); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			slog.Error("failed to clear reset token after delivery failure", "user_id", user.ID, "error", clearErr)
		}
		return apierror.New("EMAIL_DELIVERY_FAILED", "there was an error sending the email, try again later", "", http.StatusBadGateway)
	}

	return nil
}

// ResetPassword redeems a raw reset token: the rotation, the changed-at
// update and the clearing of the reset fields happen in one conditional
// store update, so a token is redeemable at most once.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, req model.ResetPasswordRequest) (model.AuthResult, error) {
	if err := validatePassword(req.Password, req.PasswordConfirm); err != nil {
		return model.AuthResult{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	now := s.now().UTC()
	changedAt := now.Add(-passwordChangedAtMargin)
	user, err := s.users.RedeemResetToken(ctx, s.resetTokens.HashToken(rawToken), hash, changedAt, now)
	if err != nil {
		if errors.Is(err, model.ErrResetTokenInvalid) {
			return model.AuthResult{}, apierror.New("BAD_REQUEST", "token is invalid or has expired", "", http.StatusBadRequest)
		}
		return model.AuthResult{}, err
	}

	return s.signIn(user)
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) signIn(user model.User) (model.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("issue session token: %w", err)
	}
	return model.AuthResult{Token: token, User: user.Public()}, nil
}

func invalidCredentials() error {
	return apierror.New("UNAUTHORIZED", "incorrect email or password", "", http.StatusUnauthorized)
}

func validatePassword(password string, confirm string) error {
	if len(password) < minPasswordLength {
		return apierror.New("BAD_REQUEST", "password must be at least 8 characters", "password", http.StatusBadRequest)
	}
	if password != confirm {
		return apierror.New("BAD_REQUEST", "passwords are not the same", "password_confirm", http.StatusBadRequest)
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmail(email string) (string, error) {
	normalized := normalize(email)
	if normalized == "" {
		return "", apierror.New("BAD_REQUEST", "email is required", "email", http.StatusBadRequest)
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", apierror.New("BAD_REQUEST", "please provide a valid email", "email", http.StatusBadRequest)
	}
	return normalized, nil
}
