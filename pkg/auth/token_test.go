package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenManager_DefaultTTL(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	if tm.TTL() != 7*24*time.Hour {
		t.Errorf("TTL() = %v, want %v", tm.TTL(), 7*24*time.Hour)
	}

	tm = NewTokenManager("secret", time.Hour)
	if tm.TTL() != time.Hour {
		t.Errorf("TTL() = %v, want 1h", tm.TTL())
	}
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	tm := NewTokenManager("secret", 0)

	token, err := tm.IssueToken("user-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected compact JWS, got %q", token)
	}

	userID, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("ValidateToken() = %q, want user-1", userID)
	}
}

func TestTokenManager_ClaimsShape(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 0)
	tm.now = func() time.Time { return issued }

	token, err := tm.IssueToken("abc")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}

	if claims["userId"] != "abc" {
		t.Errorf("userId claim = %v, want abc", claims["userId"])
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("missing exp claim: %v", err)
	}
	if !exp.Time.Equal(issued.Add(7 * 24 * time.Hour)) {
		t.Errorf("exp = %v, want %v", exp.Time, issued.Add(7*24*time.Hour))
	}
}

func TestTokenManager_IssueToken_EmptyUser(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	if _, err := tm.IssueToken(""); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestTokenManager_ValidateToken_Failures(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		token, _ := other.IssueToken("user-1")
		_, err := tm.ValidateToken(token)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not-a-token")
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := tm.ValidateToken("")
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager("secret", time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.IssueToken("user-1")
		if err != nil {
			t.Fatalf("IssueToken() error = %v", err)
		}
		_, err = tm.ValidateToken(token)
		if !errors.Is(err, ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("other signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		_, err = tm.ValidateToken(signed)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		_, err = tm.ValidateToken(signed)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("missing expiry", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-1"})
		signed, err := token.SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		_, err = tm.ValidateToken(signed)
		if !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
