package sync

import (
	"strings"
	"testing"
)

func TestCryptoRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}

	c := NewCrypto("hunter2", salt)

	plaintext := "deep work on the parser"
	encrypted, err := c.Encrypt([]byte(plaintext))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if strings.Contains(encrypted, plaintext) {
		t.Fatal("ciphertext leaks plaintext")
	}

	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(decrypted) != plaintext {
		t.Errorf("round trip = %q, want %q", decrypted, plaintext)
	}
}

func TestCryptoWrongKeyFails(t *testing.T) {
	salt, _ := GenerateSalt()

	encrypted, err := NewCrypto("correct", salt).Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := NewCrypto("wrong", salt).Decrypt(encrypted); err == nil {
		t.Fatal("decrypt with wrong password must fail")
	}

	otherSalt, _ := GenerateSalt()
	if _, err := NewCrypto("correct", otherSalt).Decrypt(encrypted); err == nil {
		t.Fatal("decrypt with wrong salt must fail")
	}
}

func TestCryptoRejectsGarbage(t *testing.T) {
	salt, _ := GenerateSalt()
	c := NewCrypto("pw", salt)

	if _, err := c.Decrypt("not base64!!!"); err == nil {
		t.Error("invalid base64 must fail")
	}
	if _, err := c.Decrypt("c2hvcnQ="); err == nil {
		t.Error("too-short ciphertext must fail")
	}
}

func TestDeriveKeyDisplayStable(t *testing.T) {
	salt := []byte("0123456789abcdef")

	a := DeriveKeyDisplay("pw", salt)
	b := DeriveKeyDisplay("pw", salt)
	if a != b {
		t.Error("display key must be deterministic for the same password and salt")
	}
	if len(a) != 16 {
		t.Errorf("display key length = %d, want 16", len(a))
	}
	if DeriveKeyDisplay("other", salt) == a {
		t.Error("different passwords must not share a display key")
	}
}
