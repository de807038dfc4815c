package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssuer(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	tok, expiresAt, err := issuer.Generate("acme_1234", "ACME", "u1", "Admin")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expected expiry in the future, got %v", expiresAt)
	}

	claims, err := issuer.Validate(tok)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.APIKey != "acme_1234" || claims.CompanyID != "ACME" || claims.UserID != "u1" || claims.Role != "Admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewIssuer("other", time.Hour)
		if _, err := other.Validate(tok); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		expired := NewIssuer("secret", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, _, err := expired.Generate("acme_1234", "ACME", "u1", "Admin")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if _, err := issuer.Validate(old); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := issuer.Validate("not-a-token"); err != ErrInvalidToken {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestPasswordHash(t *testing.T) {
	digest := Digest("secret")
	if len(digest) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(digest))
	}
	hash, err := HashPassword(digest)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPasswordHash(digest, hash) {
		t.Error("expected digest to match its hash")
	}
	if CheckPasswordHash(Digest("wrong"), hash) {
		t.Error("expected a different digest not to match")
	}
	if _, err := HashPassword(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("HashPassword() error = %v, want ErrPasswordTooLong", err)
	}
}
