package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	issued := time.Now()

	tok, err := GenerateToken("user-123", "alice@example.com", secret, issued, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := ParseToken(tok, secret, nil)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.UserID() != "user-123" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Unix(); got != issued.Add(time.Hour).Unix() {
		t.Fatalf("exp mismatch: got %d", got)
	}

	userID, err := GetUserIDFromToken(tok, secret)
	if err != nil || userID != "user-123" {
		t.Fatalf("GetUserIDFromToken = %q, %v", userID, err)
	}
}

func TestParseToken_UsesInjectedClock(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tok, err := GenerateToken("u1", "u1@example.com", secret, issued, 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	before := func() time.Time { return issued.Add(14 * time.Minute) }
	if _, err := ParseToken(tok, secret, before); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}

	after := func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := ParseToken(tok, secret, after); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestGetUserIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("u1", "u1@example.com", secret, time.Now(), -1*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetUserIDFromToken(tok, secret)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestGetUserIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", "u2@example.com", []byte("right-secret"), time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetUserIDFromToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u3",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	if _, err := ParseToken(s, secret, nil); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestGetUserIDFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := GetUserIDFromToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}
