package password

import "testing"

func TestBcryptHashAndVerify(t *testing.T) {
	h := NewBcryptHasher()

	stored, err := h.Hash("client-derived-login-hash")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if stored == "client-derived-login-hash" {
		t.Fatal("Stored form must not equal the input")
	}

	if !h.Verify(stored, "client-derived-login-hash") {
		t.Error("Verify rejected the correct credential")
	}
	if h.Verify(stored, "wrong-hash") {
		t.Error("Verify accepted a wrong credential")
	}
}

func TestMockHasher(t *testing.T) {
	h := NewMockHasher()

	stored, err := h.Hash("abc")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !h.Verify(stored, "abc") {
		t.Error("Verify rejected the correct credential")
	}
	if h.Verify(stored, "abd") {
		t.Error("Verify accepted a wrong credential")
	}
}
