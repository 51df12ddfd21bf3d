package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps the server-side mirror of each issued session token
// in Redis. A session is only valid while the client cookie and the mirror
// match byte for byte; revoking or overwriting the mirror kills the
// session even though the token itself still verifies.
//
// Keys are per email, so each account has at most one live session. A
// login on a second device overwrites the mirror and invalidates the
// first device on its next request.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(email string) string {
	return fmt.Sprintf("session:%s", email)
}

// Issue stores the token as the account's current session.
func (s *SessionStore) Issue(ctx context.Context, email, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(email), token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Lookup returns the mirrored token for an account.
func (s *SessionStore) Lookup(ctx context.Context, email string) (string, error) {
	token, err := s.client.Get(ctx, sessionKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	return token, nil
}

// Revoke deletes the mirrored token (logout).
func (s *SessionStore) Revoke(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, sessionKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
