package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// sealTemp writes plaintext to a temp file, seals it, and returns the
// sealed path.
func sealTemp(t *testing.T, plaintext []byte, passphrase string) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "snapshot.json")
	if err := os.WriteFile(src, plaintext, 0600); err != nil {
		t.Fatal(err)
	}
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	dst := filepath.Join(dir, "snapshot.json.enc")
	if err := EncryptFile(src, dst, passphrase, salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return dst
}

func TestGenerateSaltIsUnique(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != saltLen {
		t.Errorf("salt length = %d, want %d", len(a), saltLen)
	}
	if bytes.Equal(a, b) {
		t.Error("two salts came out identical")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := bytes.Repeat([]byte{0x5a}, saltLen)

	k1 := DeriveKey("family-passphrase", salt)
	k2 := DeriveKey("family-passphrase", salt)
	if len(k1) != argonKeyLen {
		t.Errorf("key length = %d, want %d", len(k1), argonKeyLen)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt gave different keys")
	}
	if bytes.Equal(k1, DeriveKey("other-passphrase", salt)) {
		t.Error("different passphrases gave the same key")
	}
	if bytes.Equal(k1, DeriveKey("family-passphrase", bytes.Repeat([]byte{0xa5}, saltLen))) {
		t.Error("different salts gave the same key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"chorekeep_data":{"kids":{}}}`)
	sealed := sealTemp(t, plaintext, "family-passphrase")

	raw, err := os.ReadFile(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("chorekeep_data")) {
		t.Error("sealed file leaks plaintext")
	}

	out := filepath.Join(t.TempDir(), "restored.json")
	if err := DecryptFile(sealed, out, "family-passphrase"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip = %q, want %q", got, plaintext)
	}
}

func TestEncryptDecryptEmptyFile(t *testing.T) {
	sealed := sealTemp(t, nil, "family-passphrase")

	out := filepath.Join(t.TempDir(), "restored.json")
	if err := DecryptFile(sealed, out, "family-passphrase"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("restored %d bytes from an empty source", len(got))
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed := sealTemp(t, []byte("secret"), "family-passphrase")

	out := filepath.Join(t.TempDir(), "restored.json")
	if err := DecryptFile(sealed, out, "not-the-passphrase"); err == nil {
		t.Error("wrong passphrase decrypted successfully")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	sealed := sealTemp(t, []byte("secret"), "family-passphrase")

	data, err := os.ReadFile(sealed)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(sealed, data, 0600); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "restored.json")
	if err := DecryptFile(sealed, out, "family-passphrase"); err == nil {
		t.Error("flipped ciphertext bit went unnoticed")
	}
}

func TestDecryptTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "short.enc")
	if err := os.WriteFile(stub, make([]byte, saltLen+nonceLen-1), 0600); err != nil {
		t.Fatal(err)
	}

	err := DecryptFile(stub, filepath.Join(dir, "out.json"), "family-passphrase")
	if err == nil {
		t.Fatal("truncated file decrypted successfully")
	}
}
