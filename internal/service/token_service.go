package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-tours-api/internal/model"
)

// TokenService issues and verifies the stateless HS256 session tokens that
// authenticate requests. Verification is a pure function of the token and
// the signing secret; resolving the subject behind a token is the access
// guard's job.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a session token for the given subject with the configured
// time-to-live. Tokens carry only sub/iat/exp.
func (s *TokenService) Issue(subjectID string) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subjectID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Verify parses and validates a session token. Malformed tokens, wrong
// signatures and expired tokens all collapse into model.ErrInvalidToken so
// the caller reveals nothing about which check failed.
func (s *TokenService) Verify(tokenString string) (*model.SessionClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return nil, model.ErrInvalidToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, model.ErrInvalidToken
	}

	subject, _ := claimsMap["sub"].(string)
	if subject == "" {
		return nil, model.ErrInvalidToken
	}

	issuedAtUnix, ok := claimsMap["iat"].(float64)
	if !ok {
		return nil, model.ErrInvalidToken
	}

	return &model.SessionClaims{
		SubjectID: subject,
		IssuedAt:  time.Unix(int64(issuedAtUnix), 0).UTC(),
	}, nil
}
