package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestManager() *JWTManager {
	return NewJWTManager("test-secret-key", time.Hour, 24*time.Hour)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("mypassword123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "" || hash == "mypassword123" {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !CheckPasswordHash("mypassword123", hash) {
		t.Error("CheckPasswordHash should accept the correct password")
	}
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("CheckPasswordHash should reject a wrong password")
	}
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	token, err := m.GenerateToken(userID.String(), "ada", "ada@example.com", "sess-1")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != userID.String() {
		t.Errorf("UserID = %q, want %q", claims.UserID, userID)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "ada@example.com")
	}
	if claims.ID == "" {
		t.Error("token id should be set")
	}

	identity, err := claims.Identity()
	if err != nil {
		t.Fatalf("Identity failed: %v", err)
	}
	if identity.UserID != userID {
		t.Errorf("identity.UserID = %v, want %v", identity.UserID, userID)
	}
	if identity.SessionID != "sess-1" {
		t.Errorf("identity.SessionID = %q, want %q", identity.SessionID, "sess-1")
	}
	if identity.ExpiresAt.Before(time.Now()) {
		t.Error("identity should carry a future expiry")
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := newTestManager()
	userID := uuid.NewString()

	access, _ := m.GenerateToken(userID, "ada", "ada@example.com", "sess-1")
	refresh, _ := m.GenerateRefreshToken(userID, "sess-1")

	if _, err := m.ValidateRefreshToken(access); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("access token as refresh: err = %v, want ErrWrongTokenType", err)
	}
	if _, err := m.ValidateAccessToken(refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("refresh token as access: err = %v, want ErrWrongTokenType", err)
	}
	if _, err := m.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("refresh token rejected: %v", err)
	}
}

func TestValidateTokenRejectsGarbageAndWrongSecret(t *testing.T) {
	m1 := NewJWTManager("secret-1", time.Hour, time.Hour)
	m2 := NewJWTManager("secret-2", time.Hour, time.Hour)

	if _, err := m1.ValidateToken("invalid.token.string"); err == nil {
		t.Error("expected error for malformed token")
	}

	token, _ := m1.GenerateToken(uuid.NewString(), "ada", "ada@example.com", "sess-1")
	if _, err := m2.ValidateToken(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	m := NewJWTManager("test-secret-key", -time.Minute, time.Hour)

	token, _ := m.GenerateToken(uuid.NewString(), "ada", "ada@example.com", "sess-1")
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

type mapStore map[string][]byte

func (s mapStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := s[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (s mapStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s[key] = data
	return nil
}

func TestRevocationList(t *testing.T) {
	ctx := context.Background()
	list := NewRevocationList(mapStore{})

	revoked, err := list.IsRevoked(ctx, "tok-1")
	if err != nil || revoked {
		t.Fatalf("fresh token: revoked=%v err=%v", revoked, err)
	}

	if err := list.Revoke(ctx, "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, _ := list.IsRevoked(ctx, "tok-1"); !revoked {
		t.Error("tok-1 should be revoked")
	}

	// already expired tokens need no entry
	if err := list.Revoke(ctx, "tok-2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, _ := list.IsRevoked(ctx, "tok-2"); revoked {
		t.Error("tok-2 should not be stored")
	}
}

func TestRevokedSessionCoversEveryToken(t *testing.T) {
	ctx := context.Background()
	list := NewRevocationList(mapStore{})

	access := &Identity{TokenID: "access-1", SessionID: "sess-1"}
	refresh := &Identity{TokenID: "refresh-1", SessionID: "sess-1"}
	other := &Identity{TokenID: "access-2", SessionID: "sess-2"}

	if err := list.RevokeSession(ctx, "sess-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	tests := []struct {
		name     string
		identity *Identity
		want     bool
	}{
		{"access token of revoked session", access, true},
		{"refresh token of revoked session", refresh, true},
		{"other session", other, false},
		{"token without session", &Identity{TokenID: "legacy"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := list.Check(ctx, tt.identity)
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check = %v, want %v", got, tt.want)
			}
		})
	}
}
