package authkit

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedTestToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestTokenExpiryPrefersDeclaredLifetime(t *testing.T) {
	now := time.Now()
	claim := now.Add(time.Hour)

	got := tokenExpiry(signedTestToken(t, claim), 900, now)
	if want := now.Add(15 * time.Minute); !got.Equal(want) {
		t.Fatalf("expected declared lifetime to win, got %v want %v", got, want)
	}
}

func TestTokenExpiryFallsBackToClaim(t *testing.T) {
	now := time.Now()
	claim := now.Add(42 * time.Minute).Truncate(time.Second)

	got := tokenExpiry(signedTestToken(t, claim), 0, now)
	if !got.Equal(claim) {
		t.Fatalf("expected exp claim %v, got %v", claim, got)
	}
}

func TestTokenExpiryFallbackForOpaqueToken(t *testing.T) {
	now := time.Now()

	got := tokenExpiry("not-a-jwt", 0, now)
	if want := now.Add(fallbackTokenLifetime); !got.Equal(want) {
		t.Fatalf("expected fallback lifetime, got %v want %v", got, want)
	}
}
