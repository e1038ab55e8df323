package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mizan-erp/mizan-erp/internal/shared"
)

const tokenKeyPrefix = "mizan:token:"

// TokenStore keeps bearer tokens in Redis with a sliding expiry.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a fresh token bound to the user id.
func (s *TokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("auth: token store not configured")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := s.client.Set(ctx, tokenKeyPrefix+token, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token back to its user id and refreshes the expiry.
func (s *TokenStore) Lookup(ctx context.Context, token string) (int64, error) {
	if s == nil || s.client == nil || token == "" {
		return 0, shared.ErrInvalidCredentials
	}
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrInvalidCredentials
		}
		return 0, err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidCredentials
	}
	_ = s.client.Expire(ctx, tokenKeyPrefix+token, s.ttl).Err()
	return userID, nil
}

// Revoke deletes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if s == nil || s.client == nil || token == "" {
		return nil
	}
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}

// TTL reports the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	if s == nil {
		return 0
	}
	return s.ttl
}
