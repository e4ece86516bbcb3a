package session

import (
	"errors"
	"testing"
	"time"

	"github.com/secsky/secsky/backend/internal/common"
)

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthority([]byte("test-secret"), 0)

	token, err := a.Issue("user-1", "u@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	uid, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if uid != "user-1" {
		t.Errorf("Expected user-1, got %q", uid)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewAuthority([]byte("secret-a"), 0)
	verifier := NewAuthority([]byte("secret-b"), 0)

	token, err := issuer.Issue("user-1", "u@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for forged token, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	a := NewAuthority([]byte("test-secret"), time.Millisecond)

	token, err := a.Issue("user-1", "u@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if _, err := a.Verify(token); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestVerify_EmptyAndGarbage(t *testing.T) {
	a := NewAuthority([]byte("test-secret"), 0)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := a.Verify(token); !errors.Is(err, common.ErrUnauthorized) {
			t.Errorf("Expected ErrUnauthorized for %q, got %v", token, err)
		}
	}
}
