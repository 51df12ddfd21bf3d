package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrNameRequired       = errors.New("display name is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// Argon2id parameters - tuned for security vs performance balance
// Time: 3, Memory: 64MB, Threads: 4, KeyLen: 32 bytes
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// UserAccounts is the slice of the user repository the identity flow needs.
type UserAccounts interface {
	Create(ctx context.Context, email, name, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateProfile(ctx context.Context, email, name string, partnerEmail *string) (*user.User, error)
}

// SessionWriter issues and revokes the server-side session mirror.
type SessionWriter interface {
	Issue(ctx context.Context, email, token string, ttl time.Duration) error
	Revoke(ctx context.Context, email string) error
}

// Service handles registration, login and profile management.
type Service struct {
	users           UserAccounts
	codec           *TokenCodec
	sessions        SessionWriter
	logger          *logging.Logger
	sessionDuration time.Duration
}

func NewService(
	users UserAccounts,
	codec *TokenCodec,
	sessions SessionWriter,
	logger *logging.Logger,
	sessionDuration time.Duration,
) *Service {
	return &Service{
		users:           users,
		codec:           codec,
		sessions:        sessions,
		logger:          logger,
		sessionDuration: sessionDuration,
	}
}

// Session is what a successful login produces: the signed token, the
// account it belongs to, and the absolute expiry the cookie should carry.
type Session struct {
	Token     string
	User      *user.User
	ExpiresAt time.Time
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, email, name, password string) (*user.User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, name, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) || errors.Is(err, user.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates an account and issues a fresh session. The mirror
// write replaces any previous session for the same email, so a login on a
// second device logs the first one out.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.verifyPassword(account.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	claims := SessionClaims{
		Email:  account.Email,
		UserID: account.ID,
		Name:   account.Name,
	}
	if account.PartnerEmail != nil {
		claims.PartnerEmail = *account.PartnerEmail
	}

	token, err := s.codec.Issue(claims, s.sessionDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.sessions.Issue(ctx, account.Email, token, s.sessionDuration); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return &Session{
		Token:     token,
		User:      account,
		ExpiresAt: time.Now().Add(s.sessionDuration),
	}, nil
}

// Logout drops the mirrored session. The client token keeps verifying
// until it expires, but the mirror cross-check rejects it from now on.
func (s *Service) Logout(ctx context.Context, email string) error {
	return s.sessions.Revoke(ctx, email)
}

// UpdateProfile changes the display name and/or the linked-partner email.
// A nil partnerEmail leaves the link untouched; an empty string clears it.
func (s *Service) UpdateProfile(ctx context.Context, email, name string, partnerEmail *string) (*user.User, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if partnerEmail != nil && *partnerEmail != "" {
		if _, err := mail.ParseAddress(*partnerEmail); err != nil {
			return nil, ErrInvalidEmailFormat
		}
	}

	updated, err := s.users.UpdateProfile(ctx, email, name, partnerEmail)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return updated, nil
}

// hashPassword creates an argon2id hash of the password
func (s *Service) hashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)

	// Encode as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		encodedSalt,
		encodedHash,
	), nil
}

// verifyPassword checks if a password matches the stored hash
func (s *Service) verifyPassword(encodedHash, password string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	var memory, time uint32
	var threads uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads)
	if err != nil {
		return false
	}
	_, err = fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	inputHash := argon2.IDKey(
		[]byte(password),
		salt,
		time,
		memory,
		threads,
		uint32(len(decodedHash)),
	)

	return subtle.ConstantTimeCompare(decodedHash, inputHash) == 1
}
