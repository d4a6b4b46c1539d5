package security

import (
	"regexp"
	"testing"
)

var (
	hexRe     = regexp.MustCompile(`^[0-9a-f]+$`)
	alnumRe   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	tokenSize = 32
)

func TestRandomToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := RandomToken(tokenSize)
		if err != nil {
			t.Fatalf("random token: %v", err)
		}
		if len(tok) != tokenSize*2 {
			t.Fatalf("expected %d hex chars, got %d", tokenSize*2, len(tok))
		}
		if !hexRe.MatchString(tok) {
			t.Fatalf("token not hex: %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}

func TestRandomTokenDefaultsLength(t *testing.T) {
	tok, err := RandomToken(0)
	if err != nil {
		t.Fatalf("random token: %v", err)
	}
	if len(tok) != 32 {
		t.Fatalf("expected default 16-byte token, got %d hex chars", len(tok))
	}
}

func TestRandomPassword(t *testing.T) {
	for _, n := range []int{8, 12, 24} {
		pw, err := RandomPassword(n)
		if err != nil {
			t.Fatalf("random password(%d): %v", n, err)
		}
		if len(pw) != n {
			t.Fatalf("expected length %d, got %d (%q)", n, len(pw), pw)
		}
		if !alnumRe.MatchString(pw) {
			t.Fatalf("password not alphanumeric: %q", pw)
		}
	}
}

func TestRandomPasswordEnforcesMinimum(t *testing.T) {
	pw, err := RandomPassword(2)
	if err != nil {
		t.Fatalf("random password: %v", err)
	}
	if len(pw) < 8 {
		t.Fatalf("expected provider-minimum length, got %d", len(pw))
	}
}
