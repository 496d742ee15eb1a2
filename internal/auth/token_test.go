package auth

import (
	"testing"

	"github.com/spec-kit/staff-access-service/internal/domain"
)

func TestTokenRoundTripCarriesCapabilities(t *testing.T) {
	tm := NewTokenManager("unit-secret", 5)
	caps := domain.CapabilitySet(domain.CapabilityInventory | domain.CapabilityChat)

	token, expiresAt, err := tm.GenerateToken("staff-1", domain.SubjectTypeStaff, caps)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("zero expiry")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SubjectID != "staff-1" || claims.Subject != domain.SubjectTypeStaff {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Capabilities != caps {
		t.Fatalf("caps = %v, want %v", claims.Capabilities.Names(), caps.Names())
	}
}

func TestOwnerTokenCarriesNoCapabilities(t *testing.T) {
	tm := NewTokenManager("unit-secret", 5)

	token, _, err := tm.GenerateToken("owner-1", domain.SubjectTypeOwner, domain.CapabilityNone)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !claims.Capabilities.IsEmpty() {
		t.Fatalf("owner token caps = %v, want empty", claims.Capabilities.Names())
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 5)
	verifier := NewTokenManager("secret-b", 5)

	token, _, err := issuer.GenerateToken("staff-1", domain.SubjectTypeStaff, domain.CapabilityNone)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("unit-secret", 5)
	if _, err := tm.ParseToken("not-a-token"); err == nil {
		t.Fatal("malformed token accepted")
	}
}
