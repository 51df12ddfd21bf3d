package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// SessionClaims is the identity carried by a session token.
type SessionClaims struct {
	Email        string    `json:"email"`
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	PartnerEmail string    `json:"partner_email"`
}

// TokenCodec signs and verifies session tokens.
// Uses PASETO v4.local (symmetric encryption with XChaCha20-Poly1305).
type TokenCodec struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewTokenCodec(symmetricKey []byte) (*TokenCodec, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &TokenCodec{symmetricKey: key}, nil
}

// Issue encrypts the claims into a token valid for the given duration.
func (c *TokenCodec) Issue(claims SessionClaims, duration time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(duration))
	token.SetString("email", claims.Email)
	token.SetString("user_id", claims.UserID.String())
	token.SetString("name", claims.Name)
	token.SetString("partner_email", claims.PartnerEmail)

	return token.V4Encrypt(c.symmetricKey, nil), nil
}

// Verify decrypts and validates a token. It returns nil on any failure
// (malformed input, wrong key, missing claim, expired) without telling the
// caller which. Callers must not be able to turn verification into an
// oracle for what exactly was wrong.
func (c *TokenCodec) Verify(tokenStr string) *SessionClaims {
	parser := paseto.NewParser()

	// The default parser rules reject expired tokens
	token, err := parser.ParseV4Local(c.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil
	}

	userIDStr, err := token.GetString("user_id")
	if err != nil {
		return nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}

	name, err := token.GetString("name")
	if err != nil {
		return nil
	}

	partnerEmail, err := token.GetString("partner_email")
	if err != nil {
		return nil
	}

	return &SessionClaims{
		Email:        email,
		UserID:       userID,
		Name:         name,
		PartnerEmail: partnerEmail,
	}
}
