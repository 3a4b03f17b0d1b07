package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	statePrefix = "kromio:oauth:state:"
	stateTTL    = 10 * time.Minute
)

// ErrBadState rejects callbacks whose state is missing, expired, or replayed.
var ErrBadState = errors.New("oauth state is invalid or expired")

// StateStore issues and redeems single-use CSRF state tokens through redis,
// so any server instance can complete a flow another one started.
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

// Issue stores a fresh random state bound to the caller's post-login redirect.
func (s *StateStore) Issue(ctx context.Context, redirectURI string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, statePrefix+state, redirectURI, stateTTL).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return state, nil
}

// Redeem consumes the state and returns the redirect it was issued with.
// A state can be redeemed exactly once.
func (s *StateStore) Redeem(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrBadState
	}

	redirectURI, err := s.rdb.GetDel(ctx, statePrefix+state).Result()
	if err == redis.Nil {
		return "", ErrBadState
	}
	if err != nil {
		return "", fmt.Errorf("redeem oauth state: %w", err)
	}
	return redirectURI, nil
}
