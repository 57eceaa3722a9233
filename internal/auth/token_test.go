package auth

import (
	"testing"
	"time"

	"github.com/spec-kit/cityfix-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	user := &domain.User{Email: "alice@example.com", Role: domain.UserRoleCitizen}

	token, expiresAt, err := tm.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Error("expiry must be in the future")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %s, want %s", claims.Email, user.Email)
	}
	if claims.Role != user.Role {
		t.Errorf("role = %s, want %s", claims.Role, user.Role)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 60)
	verifier := NewTokenManager("secret-b", 60)
	token, _, err := issuer.GenerateToken(&domain.User{Email: "a@example.com", Role: domain.UserRoleCitizen})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	if _, err := tm.ParseToken("not-a-token"); err == nil {
		t.Error("garbage must not parse")
	}
}
