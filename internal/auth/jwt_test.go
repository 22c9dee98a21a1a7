package auth

import (
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateToken(42, "owner@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.AccountID != 42 {
		t.Errorf("expected account 42, got %d", claims.AccountID)
	}
	if claims.Email != "owner@example.com" {
		t.Errorf("unexpected email claim: %q", claims.Email)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	InitJWT("test-secret")

	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("expected an error for a malformed token")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	InitJWT("secret-one")
	token, err := GenerateToken(1, "a@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	InitJWT("secret-two")
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected an error for a token signed with another secret")
	}
}
