package crypto

import (
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	for _, plaintext := range []string{
		"",
		"12/03/2024;-1.234,56;EUR;SEPA Uberweisung AN Max Mustermann",
		strings.Repeat("x", 10_000),
	} {
		sealed, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		got, err := c.Decrypt(sealed)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != plaintext {
			t.Errorf("round trip = %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	a, _ := c.Encrypt("same plaintext")
	b, _ := c.Encrypt("same plaintext")
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertexts")
	}
}

func TestDecryptLenientSentinel(t *testing.T) {
	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	for _, bad := range []string{"not base64 !!!", "aGVsbG8="} {
		if got := c.DecryptLenient(bad); got != DecryptionSentinel {
			t.Errorf("DecryptLenient(%q) = %q, want sentinel", bad, got)
		}
	}

	if got := c.DecryptLenient(""); got != "" {
		t.Errorf("DecryptLenient(\"\") = %q, want empty for unset fields", got)
	}
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	if _, err := NewCipher("zz"); err == nil {
		t.Error("expected error for non-hex key")
	}
	if _, err := NewCipher("abcd"); err == nil {
		t.Error("expected error for short key")
	}
}
