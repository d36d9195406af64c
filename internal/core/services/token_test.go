package services

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")
	token, err := svc.GenerateToken("alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	subject, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if subject != "alice@example.com" {
		t.Fatalf("subject = %q, want alice@example.com", subject)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").GenerateToken("alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenService("secret-b").ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret validated")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	if _, err := NewTokenService("secret").ValidateToken("not-a-token"); err == nil {
		t.Fatal("garbage token validated")
	}
}
