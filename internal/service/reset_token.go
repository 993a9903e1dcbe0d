package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ResetTokenTTL is how long a password-reset token stays redeemable.
const ResetTokenTTL = 10 * time.Minute

// resetTokenBytes gives 256 bits of entropy; the raw token is hex-encoded
// for URL transport.
const resetTokenBytes = 32

// ResetTokenManager generates single-use password-reset tokens. Only the
// SHA-256 hash of a token is ever persisted; the raw value exists once, in
// the email to the user.
type ResetTokenManager struct {
	ttl time.Duration
	now func() time.Time
}

func NewResetTokenManager(ttl time.Duration) *ResetTokenManager {
	if ttl <= 0 {
		ttl = ResetTokenTTL
	}
	return &ResetTokenManager{ttl: ttl, now: time.Now}
}

// Generate returns the raw token for one-time delivery, the hash to
// persist, and the expiry to store alongside it.
func (m *ResetTokenManager) Generate() (raw string, hash string, expiresAt time.Time, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}

	raw = hex.EncodeToString(buf)
	return raw, m.HashToken(raw), m.now().UTC().Add(m.ttl), nil
}

// HashToken maps a presented raw token onto the persisted form. The same
// function is used at issuance and redemption so lookups match.
func (m *ResetTokenManager) HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
