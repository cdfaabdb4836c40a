package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated user behind a request. A nil *Identity means
// nobody is signed in.
type Identity struct {
	UserID    uuid.UUID
	Username  string
	Email     string
	TokenID   string
	SessionID string
	ExpiresAt time.Time
}

// KeyValueStore is the subset of a cache needed to keep revoked token ids.
type KeyValueStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RevocationList remembers signed-out access tokens until they would have expired anyway.
type RevocationList struct {
	store KeyValueStore
}

func NewRevocationList(store KeyValueStore) *RevocationList {
	return &RevocationList{store: store}
}

func revocationKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}

func sessionRevocationKey(sessionID string) string {
	return "auth:revoked-session:" + sessionID
}

func (r *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, revocationKey(tokenID), true, ttl)
}

func (r *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	found, err := r.store.Get(ctx, revocationKey(tokenID), &revoked)
	if err != nil {
		return false, err
	}
	return found && revoked, nil
}

// RevokeSession ends every token of one sign-in, refresh tokens included.
// until must not be earlier than the expiry of the longest-lived token.
func (r *RevocationList) RevokeSession(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if sessionID == "" || ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, sessionRevocationKey(sessionID), true, ttl)
}

func (r *RevocationList) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	var revoked bool
	found, err := r.store.Get(ctx, sessionRevocationKey(sessionID), &revoked)
	if err != nil {
		return false, err
	}
	return found && revoked, nil
}

// Check reports whether the token behind identity, or its session, was revoked.
func (r *RevocationList) Check(ctx context.Context, identity *Identity) (bool, error) {
	revoked, err := r.IsRevoked(ctx, identity.TokenID)
	if err != nil || revoked {
		return revoked, err
	}
	return r.IsSessionRevoked(ctx, identity.SessionID)
}
