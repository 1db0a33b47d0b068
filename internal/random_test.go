package internal

import (
	"encoding/base64"
	"testing"
)

func TestNewOpaqueTokenLengthAndDecode(t *testing.T) {
	token, err := NewOpaqueToken(32)
	if err != nil {
		t.Fatalf("NewOpaqueToken failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 raw bytes, got %d", len(raw))
	}
}

func TestNewOpaqueTokenRejectsShortLength(t *testing.T) {
	if _, err := NewOpaqueToken(8); err == nil {
		t.Fatal("expected error for short token length")
	}
}

func TestNewOpaqueTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		token, err := NewOpaqueToken(32)
		if err != nil {
			t.Fatalf("NewOpaqueToken failed: %v", err)
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}

func TestNewNumericChallengeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewNumericChallenge(6)
		if err != nil {
			t.Fatalf("NewNumericChallenge failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for j := 0; j < len(code); j++ {
			if code[j] < '0' || code[j] > '9' {
				t.Fatalf("non-digit in challenge %q", code)
			}
		}
	}
}

func TestNewNumericChallengeRejectsBadDigits(t *testing.T) {
	if _, err := NewNumericChallenge(4); err == nil {
		t.Fatal("expected error for 4 digits")
	}
	if _, err := NewNumericChallenge(11); err == nil {
		t.Fatal("expected error for 11 digits")
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("abc")
	b := HashToken("abc")
	if a != b {
		t.Fatal("expected identical digests for identical tokens")
	}
	if a == HashToken("abd") {
		t.Fatal("expected different digests for different tokens")
	}
}
